/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package search

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beacon-oncall/beacon/common/pkg/database/client"
	dbutils "github.com/beacon-oncall/beacon/common/pkg/database/utils"
)

type fakeDocStore struct {
	indexed  []string
	lastDay  time.Time
	lastBody []byte
	response []byte
	done     chan struct{}
}

func (f *fakeDocStore) IndexDocument(_ string, day time.Time, id string, _ interface{}) error {
	f.indexed = append(f.indexed, id)
	f.lastDay = day
	if f.done != nil {
		f.done <- struct{}{}
	}
	return nil
}

func (f *fakeDocStore) SearchByTimeRange(_, _ time.Time, _, _ string, body []byte) ([]byte, error) {
	f.lastBody = body
	return f.response, nil
}

func TestSubmitIndexesAsync(t *testing.T) {
	store := &fakeDocStore{done: make(chan struct{}, 1)}
	idx := newIndexer(store, "alerts-")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go idx.run(ctx)

	triggered := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	idx.Submit(&client.Alert{
		Id:          17,
		Title:       "High CPU",
		Severity:    "CRITICAL",
		TriggeredAt: dbutils.NullTime(triggered),
	}, 3)

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("document was never indexed")
	}
	assert.Equal(t, []string{"17"}, store.indexed)
	assert.Equal(t, triggered, store.lastDay)
}

func TestNilIndexerIsInert(t *testing.T) {
	var idx *Indexer
	idx.Submit(&client.Alert{Id: 1}, 0)
	_, err := idx.Search(context.Background(), Query{Text: "cpu"})
	assert.Error(t, err)
}

func TestSearchBuildsBoolQuery(t *testing.T) {
	store := &fakeDocStore{
		response: []byte(`{"hits":{"hits":[{"_source":{"alertId":17,"title":"High CPU","severity":"CRITICAL"}}]}}`),
	}
	idx := newIndexer(store, "alerts-")

	docs, err := idx.Search(context.Background(), Query{
		Text: "cpu", Severity: "CRITICAL", TeamId: 3,
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.EqualValues(t, 17, docs[0].AlertId)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(store.lastBody, &body))
	must := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})
	// range filter plus text, severity and team clauses
	assert.Len(t, must, 4)
}
