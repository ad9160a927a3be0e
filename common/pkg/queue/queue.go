/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	"github.com/beacon-oncall/beacon/utils/pkg/channel"
)

const (
	// schedKey is a sorted set of job ids scored by due time in unix millis.
	schedKey = "beacon:jobs:sched"
	// payloadKey is a hash of job id to the serialized job.
	payloadKey = "beacon:jobs:payload"
)

var (
	once     sync.Once
	instance *Manager
)

// Job is a delayed unit of work. Id doubles as the dedup key: enqueuing a
// job with an existing id reschedules it instead of adding a second copy.
type Job struct {
	Id      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	RunAt   time.Time       `json:"runAt"`
	Attempt int             `json:"attempt"`
}

// HandlerFunc processes one claimed job. A returned error leaves the job
// consumed; handlers reschedule themselves when retry is wanted.
type HandlerFunc func(ctx context.Context, job *Job) error

// Manager schedules delayed jobs on redis and runs them when due. All
// replicas poll the same sorted set, the ZREM claim makes sure each due
// job runs on exactly one of them.
type Manager struct {
	rdb *redis.Client

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	pollInterval time.Duration
	claimBatch   int
	workers      int

	tomb *channel.Tomb
}

// NewManager creates the singleton queue manager connected to redis.
func NewManager() *Manager {
	once.Do(func() {
		rdb := redis.NewClient(&redis.Options{
			Addr:        commonconfig.GetRedisAddr(),
			Password:    commonconfig.GetRedisPassword(),
			DB:          commonconfig.GetRedisDB(),
			PoolSize:    commonconfig.GetRedisPoolSize(),
			DialTimeout: time.Duration(commonconfig.GetRedisDialTimeoutSecond()) * time.Second,
		})
		instance = &Manager{
			rdb:          rdb,
			handlers:     make(map[string]HandlerFunc),
			pollInterval: time.Duration(commonconfig.GetQueuePollIntervalMs()) * time.Millisecond,
			claimBatch:   commonconfig.GetQueueClaimBatch(),
			workers:      commonconfig.GetQueueWorkerConcurrent(),
			tomb:         channel.NewTomb(),
		}
	})
	return instance
}

// NewManagerWithClient builds a manager on an existing redis client. Tests
// use it with miniredis.
func NewManagerWithClient(rdb *redis.Client, pollInterval time.Duration, claimBatch, workers int) *Manager {
	return &Manager{
		rdb:          rdb,
		handlers:     make(map[string]HandlerFunc),
		pollInterval: pollInterval,
		claimBatch:   claimBatch,
		workers:      workers,
		tomb:         channel.NewTomb(),
	}
}

// Register binds a handler to a job type. Jobs of unregistered types are
// dropped with a log line when claimed.
func (m *Manager) Register(jobType string, handler HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[jobType] = handler
}

// Enqueue schedules the job at job.RunAt. An existing job with the same id
// is rescheduled and its payload replaced.
func (m *Manager) Enqueue(ctx context.Context, job *Job) error {
	if job == nil || job.Id == "" || job.Type == "" {
		return fmt.Errorf("job id and type are required")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = m.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, schedKey, redis.Z{Score: float64(job.RunAt.UnixMilli()), Member: job.Id})
		pipe.HSet(ctx, payloadKey, job.Id, data)
		return nil
	})
	if err != nil {
		klog.ErrorS(err, "failed to enqueue job", "id", job.Id, "type", job.Type)
		return err
	}
	return nil
}

// Cancel removes a scheduled job. Canceling an unknown id is a no-op.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	_, err := m.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, schedKey, id)
		pipe.HDel(ctx, payloadKey, id)
		return nil
	})
	if err != nil {
		klog.ErrorS(err, "failed to cancel job", "id", id)
	}
	return err
}

// CancelPrefix removes every scheduled job whose id starts with prefix.
// Escalation uses it to drop all pending timers of an incident at once.
func (m *Manager) CancelPrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	match := prefix + "*"
	for {
		members, next, err := m.rdb.ZScan(ctx, schedKey, cursor, match, 256).Result()
		if err != nil {
			return removed, err
		}
		// ZScan returns member and score pairs, keep the members only.
		ids := make([]interface{}, 0, len(members)/2)
		fields := make([]string, 0, len(members)/2)
		for i := 0; i < len(members); i += 2 {
			ids = append(ids, members[i])
			fields = append(fields, members[i])
		}
		if len(ids) > 0 {
			if err := m.rdb.ZRem(ctx, schedKey, ids...).Err(); err != nil {
				return removed, err
			}
			if err := m.rdb.HDel(ctx, payloadKey, fields...).Err(); err != nil {
				return removed, err
			}
			removed += len(ids)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}

// Start launches the poll loop. It returns immediately.
func (m *Manager) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop signals the poll loop to finish and waits for in-flight jobs.
func (m *Manager) Stop() {
	m.tomb.Stop()
}

func (m *Manager) run(ctx context.Context) {
	defer m.tomb.Done()
	if m.pollInterval <= 0 {
		// A non-positive configured interval would spin against redis.
		m.pollInterval = time.Second
	}
	klog.Infof("queue manager started, poll interval: %s, workers: %d", m.pollInterval, m.workers)

	jobCh := make(chan *Job, m.claimBatch)
	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				m.dispatch(ctx, job)
			}
		}()
	}
	defer func() {
		close(jobCh)
		wg.Wait()
	}()

	for {
		// Jitter spreads the polls of concurrent replicas. Intervals
		// under 4ns leave no room for it; rand.Int63n(0) would panic.
		var jitter time.Duration
		if spread := int64(m.pollInterval) / 4; spread > 0 {
			jitter = time.Duration(rand.Int63n(spread))
		}
		select {
		case <-ctx.Done():
			return
		case <-m.tomb.Stopping():
			return
		case <-time.After(m.pollInterval + jitter):
		}
		jobs, err := m.claimDue(ctx, time.Now())
		if err != nil {
			klog.ErrorS(err, "failed to claim due jobs")
			continue
		}
		for _, job := range jobs {
			jobCh <- job
		}
	}
}

// claimDue pops up to claimBatch due jobs. A job belongs to this replica
// only when its ZREM removed the member, losers of the race skip it.
func (m *Manager) claimDue(ctx context.Context, now time.Time) ([]*Job, error) {
	ids, err := m.rdb.ZRangeByScore(ctx, schedKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: int64(m.claimBatch),
	}).Result()
	if err != nil {
		return nil, err
	}

	var claimed []*Job
	for _, id := range ids {
		n, err := m.rdb.ZRem(ctx, schedKey, id).Result()
		if err != nil {
			return claimed, err
		}
		if n == 0 {
			continue
		}
		data, err := m.rdb.HGet(ctx, payloadKey, id).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return claimed, err
		}
		if err := m.rdb.HDel(ctx, payloadKey, id).Err(); err != nil {
			klog.ErrorS(err, "failed to delete job payload", "id", id)
		}
		var job Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			klog.ErrorS(err, "failed to decode job payload", "id", id)
			continue
		}
		claimed = append(claimed, &job)
	}
	return claimed, nil
}

func (m *Manager) dispatch(ctx context.Context, job *Job) {
	m.mu.RLock()
	handler, ok := m.handlers[job.Type]
	m.mu.RUnlock()
	if !ok {
		klog.Warningf("no handler registered for job type %s, dropping job %s", job.Type, job.Id)
		return
	}
	if err := handler(ctx, job); err != nil {
		klog.ErrorS(err, "job handler failed", "id", job.Id, "type", job.Type, "attempt", job.Attempt)
	}
}

// Ping verifies the redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}

// Close releases the redis connection.
func (m *Manager) Close() {
	if err := m.rdb.Close(); err != nil {
		klog.ErrorS(err, "failed to close redis connection")
	}
}
