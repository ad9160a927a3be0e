/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package archive implements the retention sweep: webhook deliveries
// and audit events older than the configured retention are exported to
// S3 as JSONL objects (when a bucket is configured) and then pruned.
// Incidents and alerts are never touched.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/cespare/xxhash/v2"
	"k8s.io/klog/v2"

	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	s3client "github.com/beacon-oncall/beacon/common/pkg/s3"
)

const (
	exportBatch     = 500
	objectDayFormat = "2006.01.02"
	putTimeoutSec   = 60
)

// Store is the slice of the database the sweep needs.
type Store interface {
	SelectWebhookDeliveries(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*client.WebhookDelivery, error)
	DeleteWebhookDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	SelectAuditEvents(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*client.AuditEvent, error)
	DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ObjectStore is the slice of the S3 client the sweep needs.
type ObjectStore interface {
	PutObject(ctx context.Context, key, value string, timeout int64) error
}

type s3ObjectStore struct {
	client s3client.Interface
}

// NewS3ObjectStore adapts the shared S3 client to the sweep's needs.
func NewS3ObjectStore(client s3client.Interface) ObjectStore {
	return &s3ObjectStore{client: client}
}

func (o *s3ObjectStore) PutObject(ctx context.Context, key, value string, timeout int64) error {
	_, err := o.client.PutObject(ctx, key, value, timeout)
	return err
}

// Archiver runs the retention sweep. A nil ObjectStore skips export and
// prunes only.
type Archiver struct {
	store         Store
	objects       ObjectStore
	retentionDays int
	now           func() time.Time
}

func NewArchiver(store Store, objects ObjectStore) *Archiver {
	return &Archiver{
		store:         store,
		objects:       objects,
		retentionDays: commonconfig.GetRetentionDays(),
		now:           time.Now,
	}
}

// Sweep exports then prunes both retained tables. Export failures abort
// the sweep before anything is deleted: rows are only pruned once their
// archive object is durable.
func (a *Archiver) Sweep(ctx context.Context) error {
	cutoff := a.now().UTC().AddDate(0, 0, -a.retentionDays)

	if err := a.exportDeliveries(ctx, cutoff); err != nil {
		return fmt.Errorf("export deliveries: %w", err)
	}
	pruned, err := a.store.DeleteWebhookDeliveriesBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune deliveries: %w", err)
	}
	klog.InfoS("retention sweep pruned deliveries", "cutoff", cutoff, "rows", pruned)

	if err := a.exportAuditEvents(ctx, cutoff); err != nil {
		return fmt.Errorf("export audit events: %w", err)
	}
	pruned, err = a.store.DeleteAuditEventsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune audit events: %w", err)
	}
	klog.InfoS("retention sweep pruned audit events", "cutoff", cutoff, "rows", pruned)
	return nil
}

func (a *Archiver) exportDeliveries(ctx context.Context, cutoff time.Time) error {
	if a.objects == nil {
		return nil
	}
	for {
		rows, err := a.store.SelectWebhookDeliveries(ctx,
			sqrl.Lt{client.CreateTime: cutoff},
			[]string{client.CreateTime + " " + client.ASC}, exportBatch, 0)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		lines := make([]interface{}, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, row)
		}
		if err := a.putBatch(ctx, "deliveries", lines); err != nil {
			return err
		}
		// Pages that were just exported must go before the next select,
		// or the loop would re-read them forever.
		last := rows[len(rows)-1].CreateTime.Time.Add(time.Millisecond)
		if _, err := a.store.DeleteWebhookDeliveriesBefore(ctx, minTime(last, cutoff)); err != nil {
			return err
		}
		if len(rows) < exportBatch {
			return nil
		}
	}
}

func (a *Archiver) exportAuditEvents(ctx context.Context, cutoff time.Time) error {
	if a.objects == nil {
		return nil
	}
	for {
		rows, err := a.store.SelectAuditEvents(ctx,
			sqrl.Lt{client.CreateTime: cutoff},
			[]string{client.CreateTime + " " + client.ASC}, exportBatch, 0)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		lines := make([]interface{}, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, row)
		}
		if err := a.putBatch(ctx, "audit_events", lines); err != nil {
			return err
		}
		last := rows[len(rows)-1].CreateTime.Time.Add(time.Millisecond)
		if _, err := a.store.DeleteAuditEventsBefore(ctx, minTime(last, cutoff)); err != nil {
			return err
		}
		if len(rows) < exportBatch {
			return nil
		}
	}
}

// putBatch writes one JSONL object named
// <prefix>/<day>-<xxhash>.jsonl, where the hash covers the content so
// re-running a failed sweep overwrites the same object instead of
// duplicating it.
func (a *Archiver) putBatch(ctx context.Context, prefix string, rows []interface{}) error {
	var sb strings.Builder
	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			return err
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	content := sb.String()
	key := fmt.Sprintf("%s/%s-%x.jsonl",
		prefix, a.now().UTC().Format(objectDayFormat), xxhash.Sum64String(content))
	if err := a.objects.PutObject(ctx, key, content, putTimeoutSec); err != nil {
		return err
	}
	klog.InfoS("retention sweep exported batch", "key", key, "rows", len(rows))
	return nil
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
