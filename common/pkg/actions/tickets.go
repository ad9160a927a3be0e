/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package actions

import (
	"context"
	"encoding/json"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
)

// Ticket is one external issue created on behalf of an incident. The
// list lives under "tickets" in the incident's first alert metadata.
type Ticket struct {
	Type      string `json:"type"`
	Id        string `json:"id"`
	Key       string `json:"key"`
	Url       string `json:"url"`
	CreatedAt string `json:"createdAt"`
}

// TicketStore is the slice of the database the ticket side-effect
// needs.
type TicketStore interface {
	SelectAlerts(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*client.Alert, error)
	UpdateAlert(ctx context.Context, alert *client.Alert) error
}

// recordTicket appends a ticket reference to the metadata of the
// incident's earliest alert. Failures are logged, not returned: the
// issue was already created upstream and the action must not fail
// because bookkeeping did.
func (r *Runner) recordTicket(ctx context.Context, tctx map[string]interface{}, ticket Ticket) {
	if r.tickets == nil {
		return
	}
	incidentId, ok := incidentIdFromContext(tctx)
	if !ok {
		return
	}
	ticket.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	alerts, err := r.tickets.SelectAlerts(ctx,
		sqrl.Eq{"incident_id": incidentId},
		[]string{client.TriggeredAt + " " + client.ASC}, 1, 0)
	if err != nil || len(alerts) == 0 {
		klog.ErrorS(err, "no alert to record ticket on", "incidentId", incidentId, "ticket", ticket.Key)
		return
	}
	alert := alerts[0]

	metadata := map[string]interface{}{}
	if alert.Metadata.Valid && alert.Metadata.String != "" {
		if err := json.Unmarshal([]byte(alert.Metadata.String), &metadata); err != nil {
			klog.ErrorS(err, "unreadable alert metadata", "alertId", alert.Id)
			metadata = map[string]interface{}{}
		}
	}
	tickets, _ := metadata["tickets"].([]interface{})
	tickets = append(tickets, ticket)
	metadata["tickets"] = tickets

	data, err := json.Marshal(metadata)
	if err != nil {
		klog.ErrorS(err, "failed to marshal alert metadata", "alertId", alert.Id)
		return
	}
	alert.Metadata = dbutils.NullString(string(data))
	if err := r.tickets.UpdateAlert(ctx, alert); err != nil {
		klog.ErrorS(err, "failed to record ticket", "alertId", alert.Id, "ticket", ticket.Key)
	}
}
