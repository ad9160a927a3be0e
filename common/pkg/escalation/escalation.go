/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package escalation drives the per-incident escalation state machine on
// top of the delayed-job queue. Each pending step is one queue job whose
// id encodes the incident, the level it advances to and the repeat cycle,
// so rescheduling replaces the timer instead of duplicating it.
package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/common/pkg/common"
	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	"github.com/beacon-oncall/beacon/common/pkg/constvar"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	"github.com/beacon-oncall/beacon/common/pkg/metrics"
	"github.com/beacon-oncall/beacon/common/pkg/queue"
	"github.com/beacon-oncall/beacon/common/pkg/workflow"
	backoffutil "github.com/beacon-oncall/beacon/utils/pkg/backoff"
)

// NotificationTopic is the outbox topic escalation firings are written
// under. The external deliverer subscribes to it.
const NotificationTopic = "incident.escalation"

// Target is one notify destination of an escalation level, stored as a
// JSON array on the level row.
type Target struct {
	Type constvar.TargetType `json:"type"`
	Id   int64               `json:"id,omitempty"`
}

// jobPayload is the serialized body of an escalation queue job.
type jobPayload struct {
	IncidentId int64 `json:"incidentId"`
	ToLevel    int   `json:"toLevel"`
	Cycle      int   `json:"cycle"`
}

// Store is the slice of the database the scheduler needs.
type Store interface {
	GetIncident(ctx context.Context, id int64) (*client.Incident, error)
	AdvanceIncidentLevel(ctx context.Context, id int64, level, cycle int) (bool, error)
	GetEscalationPolicy(ctx context.Context, id int64) (*client.EscalationPolicy, error)
	GetDefaultEscalationPolicy(ctx context.Context, teamId int64) (*client.EscalationPolicy, error)
	GetEscalationLevel(ctx context.Context, policyId int64, level int) (*client.EscalationLevel, error)
	SelectEscalationLevels(ctx context.Context, policyId int64) ([]*client.EscalationLevel, error)
	SubmitNotification(ctx context.Context, notification *client.Notification) error
	InsertAuditEvent(ctx context.Context, event *client.AuditEvent) error
}

// Queue is the slice of the job queue the scheduler needs.
type Queue interface {
	Enqueue(ctx context.Context, job *queue.Job) error
	CancelPrefix(ctx context.Context, prefix string) (int, error)
}

// Dispatcher fires workflow trigger events. The workflow dispatcher
// implements it; a nil dispatcher disables the escalation trigger.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *workflow.Event) error
}

// Scheduler owns escalation timers. It is safe for concurrent use.
type Scheduler struct {
	store      Store
	queue      Queue
	dispatcher Dispatcher

	maxRetry     int
	retryInitial time.Duration
}

func NewScheduler(store Store, q Queue, dispatcher Dispatcher) *Scheduler {
	return &Scheduler{
		store:        store,
		queue:        q,
		dispatcher:   dispatcher,
		maxRetry:     commonconfig.GetEscalationMaxRetry(),
		retryInitial: time.Duration(commonconfig.GetEscalationRetryInitialSecond()) * time.Second,
	}
}

// JobId is the canonical id of the timer advancing incidentId to toLevel
// in the given repeat cycle.
func JobId(incidentId int64, toLevel, cycle int) string {
	return fmt.Sprintf("%s:%d:%d:%d", common.JobKindEscalation, incidentId, toLevel, cycle)
}

// JobPrefix matches every pending timer of one incident.
func JobPrefix(incidentId int64) string {
	return fmt.Sprintf("%s:%d:", common.JobKindEscalation, incidentId)
}

// ResolvePolicy returns the policy driving the incident: its pinned
// policy when set, otherwise the team default.
func (s *Scheduler) ResolvePolicy(ctx context.Context, incident *client.Incident) (*client.EscalationPolicy, error) {
	if incident.EscalationPolicyId.Valid {
		return s.store.GetEscalationPolicy(ctx, incident.EscalationPolicyId.Int64)
	}
	return s.store.GetDefaultEscalationPolicy(ctx, incident.TeamId)
}

// ScheduleInitial arms the level-1 timer for a freshly opened incident,
// delayed by the level-1 timeout.
func (s *Scheduler) ScheduleInitial(ctx context.Context, incident *client.Incident) error {
	policy, err := s.ResolvePolicy(ctx, incident)
	if err != nil {
		return err
	}
	return s.scheduleStep(ctx, incident.Id, policy.Id, 1, 0)
}

// Cancel drops every pending timer of the incident. Called on
// acknowledge and resolve.
func (s *Scheduler) Cancel(ctx context.Context, incidentId int64) (int, error) {
	return s.queue.CancelPrefix(ctx, JobPrefix(incidentId))
}

// HandleJob processes one fired escalation timer. Registered on the
// queue manager under the escalation job kind.
func (s *Scheduler) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload jobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("malformed escalation payload for job %s: %v", job.Id, err)
	}

	incident, err := s.store.GetIncident(ctx, payload.IncidentId)
	if err != nil {
		return err
	}
	// A late timer is a no-op once the incident left OPEN or the level
	// was already reached.
	if incident.Status != string(constvar.IncidentStatusOpen) {
		klog.V(4).InfoS("skipping escalation for non-open incident",
			"incidentId", incident.Id, "status", incident.Status)
		return nil
	}
	if incident.RepeatCycle > payload.Cycle ||
		(incident.RepeatCycle == payload.Cycle && incident.CurrentLevel >= payload.ToLevel) {
		klog.V(4).InfoS("skipping stale escalation timer",
			"incidentId", incident.Id, "toLevel", payload.ToLevel, "cycle", payload.Cycle)
		return nil
	}

	policy, err := s.ResolvePolicy(ctx, incident)
	if err != nil {
		return err
	}
	level, err := s.store.GetEscalationLevel(ctx, policy.Id, payload.ToLevel)
	if err != nil {
		return err
	}

	s.notifyTargets(ctx, incident, level, payload.Cycle)

	advanced, err := s.store.AdvanceIncidentLevel(ctx, incident.Id, payload.ToLevel, payload.Cycle)
	if err != nil {
		return err
	}
	if !advanced {
		// Lost the race against an acknowledge, nothing more to do.
		return nil
	}
	metrics.IncEscalationFiredCount(strconv.Itoa(payload.ToLevel))
	klog.InfoS("escalation level fired", "incidentId", incident.Id,
		"level", payload.ToLevel, "cycle", payload.Cycle, "policy", policy.Name)

	if s.dispatcher != nil {
		fired := *incident
		fired.CurrentLevel = payload.ToLevel
		fired.RepeatCycle = payload.Cycle
		if err := s.dispatcher.Dispatch(ctx, &workflow.Event{
			Type:     constvar.TriggerEscalation,
			Incident: &fired,
		}); err != nil {
			klog.ErrorS(err, "failed to dispatch escalation trigger", "incidentId", incident.Id)
		}
	}

	return s.scheduleNext(ctx, incident.Id, policy, payload.ToLevel, payload.Cycle)
}

// scheduleNext arms the timer following a fired level: the next level in
// the same cycle, a fresh cycle at level 1, or nothing once the policy is
// exhausted.
func (s *Scheduler) scheduleNext(ctx context.Context, incidentId int64, policy *client.EscalationPolicy, firedLevel, cycle int) error {
	levels, err := s.store.SelectEscalationLevels(ctx, policy.Id)
	if err != nil {
		return err
	}
	if firedLevel < len(levels) {
		return s.scheduleStep(ctx, incidentId, policy.Id, firedLevel+1, cycle)
	}
	if cycle < policy.RepeatCount {
		klog.InfoS("escalation policy restarting", "incidentId", incidentId,
			"policy", policy.Name, "cycle", cycle+1)
		return s.scheduleStep(ctx, incidentId, policy.Id, 1, cycle+1)
	}
	metrics.IncEscalationGaveUpCount(policy.Name)
	klog.InfoS("escalation policy exhausted", "incidentId", incidentId, "policy", policy.Name)
	return nil
}

// scheduleStep enqueues the timer advancing the incident to toLevel,
// delayed by that level's timeout.
func (s *Scheduler) scheduleStep(ctx context.Context, incidentId, policyId int64, toLevel, cycle int) error {
	level, err := s.store.GetEscalationLevel(ctx, policyId, toLevel)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(jobPayload{IncidentId: incidentId, ToLevel: toLevel, Cycle: cycle})
	if err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, &queue.Job{
		Id:      JobId(incidentId, toLevel, cycle),
		Type:    common.JobKindEscalation,
		Payload: payload,
		RunAt:   time.Now().UTC().Add(time.Duration(level.TimeoutMinute) * time.Minute),
	})
}

// notifyTargets writes one outbox notification per level target, with
// backoff on transient failures. Exhaustion is recorded as an audit
// event and never blocks the level from advancing.
func (s *Scheduler) notifyTargets(ctx context.Context, incident *client.Incident, level *client.EscalationLevel, cycle int) {
	var targets []Target
	if err := json.Unmarshal([]byte(level.Targets), &targets); err != nil {
		klog.ErrorS(err, "malformed escalation targets",
			"policyId", level.PolicyId, "level", level.Level)
		s.auditTargetFailure(ctx, incident, level, fmt.Sprintf("malformed targets: %v", err))
		return
	}

	for _, target := range targets {
		target := target
		op := func() error {
			return s.submitTargetNotification(ctx, incident, level, cycle, target)
		}
		if err := backoffutil.RetryWithInterval(op, uint64(s.maxRetry), s.retryInitial); err != nil {
			klog.ErrorS(err, "giving up on escalation target",
				"incidentId", incident.Id, "level", level.Level,
				"targetType", target.Type, "targetId", target.Id)
			s.auditTargetFailure(ctx, incident, level,
				fmt.Sprintf("target %s/%d: %v", target.Type, target.Id, err))
		}
	}
}

func (s *Scheduler) submitTargetNotification(ctx context.Context, incident *client.Incident, level *client.EscalationLevel, cycle int, target Target) error {
	data, err := json.Marshal(map[string]interface{}{
		"incidentId": incident.Id,
		"teamId":     incident.TeamId,
		"title":      incident.Title,
		"priority":   incident.Priority,
		"severity":   incident.Severity,
		"level":      level.Level,
		"cycle":      cycle,
		"target":     target,
	})
	if err != nil {
		return err
	}
	return s.store.SubmitNotification(ctx, &client.Notification{
		Topic: NotificationTopic,
		Uid: fmt.Sprintf("%s:%s:%d", JobId(incident.Id, level.Level, cycle),
			target.Type, target.Id),
		Data: string(data),
	})
}

func (s *Scheduler) auditTargetFailure(ctx context.Context, incident *client.Incident, level *client.EscalationLevel, message string) {
	event := &client.AuditEvent{
		Action:       "escalation.target_failure",
		Actor:        dbutils.NullString(common.UserSystem),
		TeamId:       dbutils.NullInt64(incident.TeamId),
		ResourceType: dbutils.NullString("incident"),
		ResourceId:   dbutils.NullString(strconv.FormatInt(incident.Id, 10)),
		Severity:     string(constvar.SeverityHigh),
		Metadata: dbutils.NullString(fmt.Sprintf(
			`{"level": %d, "message": %q}`, level.Level, message)),
	}
	if err := s.store.InsertAuditEvent(ctx, event); err != nil {
		klog.ErrorS(err, "failed to audit escalation target failure", "incidentId", incident.Id)
	}
}
