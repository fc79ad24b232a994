/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_SentThenOutcome(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	sentAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordSent(ctx, SentEntry{
		CorrelationID: "01JCORR",
		BrokerID:      "A",
		SessionID:     "FIX.4.4:GW->A",
		TradeReportID: "R1",
		RequestType:   "0",
		SentAt:        sentAt,
	}))

	e, err := j.Lookup(ctx, "01JCORR")
	require.NoError(t, err)
	assert.Equal(t, "pending", e.Status)
	assert.Equal(t, "R1", e.TradeReportID)
	assert.True(t, e.SentAt.Equal(sentAt))
	assert.Nil(t, e.CompletedAt)
	assert.Nil(t, e.ReportCount)

	count := 3
	require.NoError(t, j.RecordOutcome(ctx, OutcomeEntry{
		CorrelationID: "01JCORR",
		Status:        "success",
		ReportCount:   &count,
		CompletedAt:   sentAt.Add(2 * time.Second),
	}))

	e, err = j.Lookup(ctx, "01JCORR")
	require.NoError(t, err)
	assert.Equal(t, "success", e.Status)
	assert.Empty(t, e.Error)
	require.NotNil(t, e.ReportCount)
	assert.Equal(t, 3, *e.ReportCount)
	require.NotNil(t, e.CompletedAt)
}

func TestJournal_OutcomeRecordsError(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.RecordSent(ctx, SentEntry{CorrelationID: "01JCORR", BrokerID: "A", SessionID: "s", RequestType: "0", SentAt: time.Now()}))
	require.NoError(t, j.RecordOutcome(ctx, OutcomeEntry{CorrelationID: "01JCORR", Status: "timeout", Error: "no response within 1s", CompletedAt: time.Now()}))

	e, err := j.Lookup(ctx, "01JCORR")
	require.NoError(t, err)
	assert.Equal(t, "timeout", e.Status)
	assert.Equal(t, "no response within 1s", e.Error)
}

func TestJournal_OutcomeForUnknownRequest(t *testing.T) {
	j := openTestJournal(t)

	err := j.RecordOutcome(context.Background(), OutcomeEntry{CorrelationID: "missing", Status: "success", CompletedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = j.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJournal_DuplicateSentRejected(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	e := SentEntry{CorrelationID: "01JCORR", BrokerID: "A", SessionID: "s", RequestType: "0", SentAt: time.Now()}

	require.NoError(t, j.RecordSent(ctx, e))
	assert.Error(t, j.RecordSent(ctx, e))
}
