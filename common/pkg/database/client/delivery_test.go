/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gotest.tools/assert"
)

func TestWithIngestLockAcquiresAndReleases(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec(`SELECT pg_advisory_lock`).
		WithArgs(ingestLockKey(3, "fp-1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).
		WithArgs(ingestLockKey(3, "fp-1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	var ran bool
	err := client.WithIngestLock(context.Background(), 3, "fp-1", func(context.Context) error {
		ran = true
		return nil
	})
	assert.NilError(t, err)
	assert.Assert(t, ran)
	assert.NilError(t, mock.ExpectationsWereMet())
}

func TestWithIngestLockReleasesOnError(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec(`SELECT pg_advisory_lock`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	boom := errors.New("insert failed")
	err := client.WithIngestLock(context.Background(), 3, "fp-1", func(context.Context) error {
		return boom
	})
	assert.Assert(t, errors.Is(err, boom))
	assert.NilError(t, mock.ExpectationsWereMet())
}

func TestIngestLockKeyScopedToIntegration(t *testing.T) {
	assert.Equal(t, ingestLockKey(3, "fp-1"), ingestLockKey(3, "fp-1"))
	assert.Assert(t, ingestLockKey(3, "fp-1") != ingestLockKey(4, "fp-1"))
	assert.Assert(t, ingestLockKey(3, "fp-1") != ingestLockKey(3, "fp-2"))
}
