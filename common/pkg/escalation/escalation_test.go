/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/common/pkg/common"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	"github.com/beacon-oncall/beacon/common/pkg/queue"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
)

type fakeStore struct {
	incident *client.Incident
	policy   *client.EscalationPolicy
	levels   []*client.EscalationLevel

	advanced      [][2]int
	advanceDenied bool
	notifications []*client.Notification
	auditEvents   []*client.AuditEvent
	notifyErr     error
}

func (f *fakeStore) GetIncident(_ context.Context, _ int64) (*client.Incident, error) {
	return f.incident, nil
}

func (f *fakeStore) AdvanceIncidentLevel(_ context.Context, _ int64, level, cycle int) (bool, error) {
	if f.advanceDenied {
		return false, nil
	}
	f.advanced = append(f.advanced, [2]int{level, cycle})
	return true, nil
}

func (f *fakeStore) GetEscalationPolicy(_ context.Context, _ int64) (*client.EscalationPolicy, error) {
	return f.policy, nil
}

func (f *fakeStore) GetDefaultEscalationPolicy(_ context.Context, _ int64) (*client.EscalationPolicy, error) {
	return f.policy, nil
}

func (f *fakeStore) GetEscalationLevel(_ context.Context, _ int64, level int) (*client.EscalationLevel, error) {
	for _, l := range f.levels {
		if l.Level == level {
			return l, nil
		}
	}
	return nil, errors.New("level not found")
}

func (f *fakeStore) SelectEscalationLevels(_ context.Context, _ int64) ([]*client.EscalationLevel, error) {
	return f.levels, nil
}

func (f *fakeStore) SubmitNotification(_ context.Context, n *client.Notification) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeStore) InsertAuditEvent(_ context.Context, e *client.AuditEvent) error {
	f.auditEvents = append(f.auditEvents, e)
	return nil
}

type fakeQueue struct {
	enqueued []*queue.Job
	canceled []string
}

func (f *fakeQueue) Enqueue(_ context.Context, job *queue.Job) error {
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeQueue) CancelPrefix(_ context.Context, prefix string) (int, error) {
	f.canceled = append(f.canceled, prefix)
	return 2, nil
}

type fakeDispatcher struct {
	events []*workflow.Event
}

func (f *fakeDispatcher) Dispatch(_ context.Context, event *workflow.Event) error {
	f.events = append(f.events, event)
	return nil
}

func newTestScheduler(store *fakeStore, q *fakeQueue) *Scheduler {
	return &Scheduler{
		store:        store,
		queue:        q,
		maxRetry:     1,
		retryInitial: time.Millisecond,
	}
}

func twoLevelStore(repeat int) *fakeStore {
	return &fakeStore{
		incident: &client.Incident{
			Id:     42,
			TeamId: 3,
			Title:  "High CPU",
			Status: string(constvar.IncidentStatusOpen),
		},
		policy: &client.EscalationPolicy{Id: 9, Name: "core", RepeatCount: repeat},
		levels: []*client.EscalationLevel{
			{PolicyId: 9, Level: 1, TimeoutMinute: 5, Targets: `[{"type":"user","id":7}]`},
			{PolicyId: 9, Level: 2, TimeoutMinute: 10, Targets: `[{"type":"entire_team","id":3}]`},
		},
	}
}

func mustPayload(t *testing.T, incidentId int64, toLevel, cycle int) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"incidentId": incidentId, "toLevel": toLevel, "cycle": cycle,
	})
	require.NoError(t, err)
	return data
}

func TestJobIdFormat(t *testing.T) {
	assert.Equal(t, "escalation:42:1:0", JobId(42, 1, 0))
	assert.Equal(t, "escalation:42:", JobPrefix(42))
}

func TestScheduleInitial(t *testing.T) {
	store := twoLevelStore(0)
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	require.NoError(t, s.ScheduleInitial(context.Background(), store.incident))
	require.Len(t, q.enqueued, 1)

	job := q.enqueued[0]
	assert.Equal(t, "escalation:42:1:0", job.Id)
	assert.Equal(t, common.JobKindEscalation, job.Type)
	// Delayed by the level-1 timeout.
	assert.InDelta(t, 5*time.Minute, time.Until(job.RunAt), float64(10*time.Second))
}

func TestHandleJobFiresAndSchedulesNext(t *testing.T) {
	store := twoLevelStore(0)
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	err := s.HandleJob(context.Background(), &queue.Job{
		Id: JobId(42, 1, 0), Type: common.JobKindEscalation,
		Payload: mustPayload(t, 42, 1, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 0}}, store.advanced)
	require.Len(t, store.notifications, 1)
	n := store.notifications[0]
	assert.Equal(t, NotificationTopic, n.Topic)
	assert.Equal(t, "escalation:42:1:0:user:7", n.Uid)

	require.Len(t, q.enqueued, 1)
	assert.Equal(t, "escalation:42:2:0", q.enqueued[0].Id)
	assert.InDelta(t, 10*time.Minute, time.Until(q.enqueued[0].RunAt), float64(10*time.Second))
}

func TestHandleJobDispatchesEscalationTrigger(t *testing.T) {
	store := twoLevelStore(0)
	q := &fakeQueue{}
	d := &fakeDispatcher{}
	s := newTestScheduler(store, q)
	s.dispatcher = d

	err := s.HandleJob(context.Background(), &queue.Job{
		Id: JobId(42, 1, 0), Payload: mustPayload(t, 42, 1, 0),
	})
	require.NoError(t, err)

	// Workflows with an escalation trigger see the fired level.
	require.Len(t, d.events, 1)
	assert.Equal(t, constvar.TriggerEscalation, d.events[0].Type)
	require.NotNil(t, d.events[0].Incident)
	assert.Equal(t, int64(42), d.events[0].Incident.Id)
	assert.Equal(t, 1, d.events[0].Incident.CurrentLevel)
}

func TestHandleJobNoTriggerWhenAdvanceLost(t *testing.T) {
	store := twoLevelStore(0)
	store.advanceDenied = true
	q := &fakeQueue{}
	d := &fakeDispatcher{}
	s := newTestScheduler(store, q)
	s.dispatcher = d

	err := s.HandleJob(context.Background(), &queue.Job{
		Id: JobId(42, 1, 0), Payload: mustPayload(t, 42, 1, 0),
	})
	require.NoError(t, err)
	assert.Empty(t, d.events)
	assert.Empty(t, q.enqueued)
}

func TestHandleJobSkipsNonOpenIncident(t *testing.T) {
	store := twoLevelStore(0)
	store.incident.Status = string(constvar.IncidentStatusAcknowledged)
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	err := s.HandleJob(context.Background(), &queue.Job{
		Id: JobId(42, 1, 0), Payload: mustPayload(t, 42, 1, 0),
	})
	require.NoError(t, err)
	assert.Empty(t, store.advanced)
	assert.Empty(t, store.notifications)
	assert.Empty(t, q.enqueued)
}

func TestHandleJobSkipsStaleTimer(t *testing.T) {
	store := twoLevelStore(0)
	store.incident.CurrentLevel = 2
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	err := s.HandleJob(context.Background(), &queue.Job{
		Id: JobId(42, 1, 0), Payload: mustPayload(t, 42, 1, 0),
	})
	require.NoError(t, err)
	assert.Empty(t, store.advanced)
}

func TestHandleJobRepeatsCycle(t *testing.T) {
	store := twoLevelStore(1)
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	// Last level of cycle 0 fires, the policy restarts at level 1 cycle 1.
	err := s.HandleJob(context.Background(), &queue.Job{
		Id: JobId(42, 2, 0), Payload: mustPayload(t, 42, 2, 0),
	})
	require.NoError(t, err)
	require.Len(t, q.enqueued, 1)
	assert.Equal(t, "escalation:42:1:1", q.enqueued[0].Id)
}

func TestHandleJobExhaustsPolicy(t *testing.T) {
	store := twoLevelStore(0)
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	err := s.HandleJob(context.Background(), &queue.Job{
		Id: JobId(42, 2, 0), Payload: mustPayload(t, 42, 2, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{2, 0}}, store.advanced)
	assert.Empty(t, q.enqueued)
}

func TestHandleJobAuditsTargetExhaustion(t *testing.T) {
	store := twoLevelStore(0)
	store.notifyErr = errors.New("outbox unavailable")
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	err := s.HandleJob(context.Background(), &queue.Job{
		Id: JobId(42, 1, 0), Payload: mustPayload(t, 42, 1, 0),
	})
	require.NoError(t, err)

	// The level still advances and the failure leaves an audit trail.
	assert.Equal(t, [][2]int{{1, 0}}, store.advanced)
	require.Len(t, store.auditEvents, 1)
	assert.Equal(t, "escalation.target_failure", store.auditEvents[0].Action)
	assert.EqualValues(t, 3, store.auditEvents[0].TeamId.Int64)
}

func TestCancel(t *testing.T) {
	q := &fakeQueue{}
	s := newTestScheduler(twoLevelStore(0), q)

	n, err := s.Cancel(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"escalation:42:"}, q.canceled)
}
