/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gotest.tools/assert"
)

func setupTestManager(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()
	mr, err := miniredis.Run()
	assert.NilError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewManagerWithClient(client, 100*time.Millisecond, 16, 2)
}

func TestEnqueueReplacesExistingJob(t *testing.T) {
	_, m := setupTestManager(t)
	ctx := context.Background()

	first := &Job{Id: "escalation:1:2:0", Type: "escalation", RunAt: time.Now().Add(time.Hour)}
	assert.NilError(t, m.Enqueue(ctx, first))

	second := &Job{Id: "escalation:1:2:0", Type: "escalation", RunAt: time.Now().Add(2 * time.Hour)}
	assert.NilError(t, m.Enqueue(ctx, second))

	n, err := m.rdb.ZCard(ctx, schedKey).Result()
	assert.NilError(t, err)
	assert.Equal(t, n, int64(1))
}

func TestEnqueueRequiresIdAndType(t *testing.T) {
	_, m := setupTestManager(t)

	err := m.Enqueue(context.Background(), &Job{Id: "", Type: "escalation"})
	assert.ErrorContains(t, err, "required")
	err = m.Enqueue(context.Background(), &Job{Id: "x", Type: ""})
	assert.ErrorContains(t, err, "required")
}

func TestClaimDueSkipsFutureJobs(t *testing.T) {
	_, m := setupTestManager(t)
	ctx := context.Background()

	due := &Job{Id: "escalation:7:1:0", Type: "escalation", RunAt: time.Now().Add(-time.Second)}
	future := &Job{Id: "escalation:7:2:0", Type: "escalation", RunAt: time.Now().Add(time.Hour)}
	assert.NilError(t, m.Enqueue(ctx, due))
	assert.NilError(t, m.Enqueue(ctx, future))

	claimed, err := m.claimDue(ctx, time.Now())
	assert.NilError(t, err)
	assert.Equal(t, len(claimed), 1)
	assert.Equal(t, claimed[0].Id, "escalation:7:1:0")

	// The claimed job and its payload are gone, the future one stays.
	n, err := m.rdb.ZCard(ctx, schedKey).Result()
	assert.NilError(t, err)
	assert.Equal(t, n, int64(1))
	exists, err := m.rdb.HExists(ctx, payloadKey, "escalation:7:1:0").Result()
	assert.NilError(t, err)
	assert.Assert(t, !exists)
}

func TestClaimDueIsExclusive(t *testing.T) {
	mr, m := setupTestManager(t)
	ctx := context.Background()

	job := &Job{Id: "escalation:9:1:0", Type: "escalation", RunAt: time.Now().Add(-time.Second)}
	assert.NilError(t, m.Enqueue(ctx, job))

	// A competing replica already removed the member.
	mr.ZRem(schedKey, "escalation:9:1:0")

	claimed, err := m.claimDue(ctx, time.Now())
	assert.NilError(t, err)
	assert.Equal(t, len(claimed), 0)
}

func TestCancelPrefixDropsIncidentTimers(t *testing.T) {
	_, m := setupTestManager(t)
	ctx := context.Background()

	for _, id := range []string{"escalation:42:1:0", "escalation:42:2:0", "escalation:43:1:0"} {
		assert.NilError(t, m.Enqueue(ctx, &Job{Id: id, Type: "escalation", RunAt: time.Now().Add(time.Hour)}))
	}

	removed, err := m.CancelPrefix(ctx, "escalation:42:")
	assert.NilError(t, err)
	assert.Equal(t, removed, 2)

	n, err := m.rdb.ZCard(ctx, schedKey).Result()
	assert.NilError(t, err)
	assert.Equal(t, n, int64(1))
	exists, err := m.rdb.HExists(ctx, payloadKey, "escalation:43:1:0").Result()
	assert.NilError(t, err)
	assert.Assert(t, exists)
}

func TestRunToleratesTinyPollInterval(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NilError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	// A zero interval used to panic in the jitter draw before the first
	// poll ever happened.
	m := NewManagerWithClient(client, 0, 16, 1)

	handled := make(chan string, 1)
	m.Register("escalation", func(_ context.Context, job *Job) error {
		handled <- job.Id
		return nil
	})
	ctx := context.Background()
	assert.NilError(t, m.Enqueue(ctx, &Job{
		Id: "escalation:11:1:0", Type: "escalation", RunAt: time.Now().Add(-time.Second),
	}))

	m.Start(ctx)
	defer m.Stop()

	select {
	case id := <-handled:
		assert.Equal(t, id, "escalation:11:1:0")
	case <-time.After(3 * time.Second):
		t.Fatal("poll loop never claimed the due job")
	}
}

func TestDispatchRunsRegisteredHandler(t *testing.T) {
	_, m := setupTestManager(t)

	handled := make(chan string, 1)
	m.Register("escalation", func(ctx context.Context, job *Job) error {
		handled <- job.Id
		return nil
	})

	payload, _ := json.Marshal(map[string]int64{"incidentId": 5})
	m.dispatch(context.Background(), &Job{Id: "escalation:5:1:0", Type: "escalation", Payload: payload})

	select {
	case id := <-handled:
		assert.Equal(t, id, "escalation:5:1:0")
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}
