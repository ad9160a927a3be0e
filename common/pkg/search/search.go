/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package search mirrors accepted alerts into OpenSearch daily indices
// and answers free-text alert queries. The relational store stays the
// source of truth; this index is disabled unless an endpoint is
// configured.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	commonconfig "github.com/beacon-oncall/beacon/common/pkg/config"
	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
	commonerrors "github.com/beacon-oncall/beacon/common/pkg/errors"
	"github.com/beacon-oncall/beacon/common/pkg/opensearch"
)

const (
	alertIndex  = "alerts-"
	queueDepth  = 1024
	searchLimit = 100
)

// DocStore is the slice of the OpenSearch client the indexer needs.
type DocStore interface {
	IndexDocument(index string, day time.Time, id string, doc interface{}) error
	SearchByTimeRange(sinceTime, untilTime time.Time, index, uri string, body []byte) ([]byte, error)
}

// AlertDoc is the indexed shape of one alert.
type AlertDoc struct {
	AlertId     int64  `json:"alertId"`
	IncidentId  int64  `json:"incidentId,omitempty"`
	TeamId      int64  `json:"teamId,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity"`
	Service     string `json:"service,omitempty"`
	Source      string `json:"source,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	TriggeredAt string `json:"triggeredAt"`
}

// Indexer writes alert documents asynchronously so webhook ingestion
// never waits on OpenSearch.
type Indexer struct {
	store   DocStore
	index   string
	pending chan indexTask
}

type indexTask struct {
	day time.Time
	id  string
	doc AlertDoc
}

// NewIndexer returns a running indexer, or nil when OpenSearch is not
// configured. A nil Indexer accepts Submit calls and drops them.
func NewIndexer(ctx context.Context) *Indexer {
	if !commonconfig.IsOpenSearchEnable() || commonconfig.GetOpenSearchEndpoint() == "" {
		return nil
	}
	cfg := opensearch.SearchClientConfig{
		Endpoint: commonconfig.GetOpenSearchEndpoint(),
		Username: commonconfig.GetOpenSearchUser(),
		Password: commonconfig.GetOpenSearchPasswd(),
	}
	if err := cfg.Validate(); err != nil {
		klog.ErrorS(err, "opensearch config incomplete, alert search disabled")
		return nil
	}
	idx := newIndexer(opensearch.NewClient(cfg), commonconfig.GetOpenSearchIndexPrefix()+alertIndex)
	go idx.run(ctx)
	return idx
}

func newIndexer(store DocStore, index string) *Indexer {
	return &Indexer{
		store:   store,
		index:   index,
		pending: make(chan indexTask, queueDepth),
	}
}

// Submit queues one alert for indexing. Submitting never blocks: when
// the queue is full the document is dropped with a log line, because
// losing a search mirror entry must not slow ingestion down.
func (i *Indexer) Submit(alert *client.Alert, teamId int64) {
	if i == nil {
		return
	}
	doc := AlertDoc{
		AlertId:     alert.Id,
		IncidentId:  alert.IncidentId.Int64,
		TeamId:      teamId,
		Title:       alert.Title,
		Description: dbutils.ParseNullString(alert.Description),
		Severity:    alert.Severity,
		Service:     dbutils.ParseNullString(alert.Service),
		Source:      dbutils.ParseNullString(alert.Source),
		Fingerprint: alert.Fingerprint,
		TriggeredAt: dbutils.ParseNullTimeToString(alert.TriggeredAt),
	}
	day := dbutils.ParseNullTime(alert.TriggeredAt)
	if day.IsZero() {
		day = time.Now().UTC()
	}
	task := indexTask{day: day, id: strconv.FormatInt(alert.Id, 10), doc: doc}
	select {
	case i.pending <- task:
	default:
		klog.InfoS("alert index queue full, dropping document", "alertId", alert.Id)
	}
}

func (i *Indexer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-i.pending:
			if err := i.store.IndexDocument(i.index, task.day, task.id, task.doc); err != nil {
				klog.ErrorS(err, "failed to index alert", "alertId", task.doc.AlertId)
			}
		}
	}
}

// Query bounds one alert search.
type Query struct {
	Text     string
	Severity string
	Service  string
	TeamId   int64
	Since    time.Time
	Until    time.Time
}

// Search runs a bool query over the daily indices covering the range
// and returns matching documents newest first.
func (i *Indexer) Search(_ context.Context, q Query) ([]AlertDoc, error) {
	if i == nil {
		return nil, commonerrors.NewBadRequest("alert search is not enabled")
	}
	until := q.Until
	if until.IsZero() {
		until = time.Now().UTC()
	}
	since := q.Since
	if since.IsZero() {
		since = until.AddDate(0, 0, -7)
	}

	body, err := json.Marshal(buildQuery(q, since, until))
	if err != nil {
		return nil, err
	}
	raw, err := i.store.SearchByTimeRange(since, until, i.index, "/_search", body)
	if err != nil {
		return nil, err
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source AlertDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("unexpected opensearch response: %w", err)
	}
	docs := make([]AlertDoc, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

func buildQuery(q Query, since, until time.Time) map[string]interface{} {
	must := []interface{}{
		map[string]interface{}{
			"range": map[string]interface{}{
				"triggeredAt": map[string]interface{}{
					"gte": since.Format(time.RFC3339),
					"lte": until.Format(time.RFC3339),
				},
			},
		},
	}
	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"title", "description", "service"},
			},
		})
	}
	if q.Severity != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"severity": q.Severity},
		})
	}
	if q.Service != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"service": q.Service},
		})
	}
	if q.TeamId != 0 {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"teamId": q.TeamId},
		})
	}
	return map[string]interface{}{
		"size":  searchLimit,
		"sort":  []interface{}{map[string]interface{}{"triggeredAt": "desc"}},
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must}},
	}
}
