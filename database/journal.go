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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HappyCodeDog/fix-gateway/logging"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("database: journal entry not found")

// SentEntry describes a request at the moment it is dispatched.
type SentEntry struct {
	CorrelationID string
	BrokerID      string
	SessionID     string
	TradeReportID string
	RequestType   string
	SentAt        time.Time
}

// OutcomeEntry describes how a request ended.
type OutcomeEntry struct {
	CorrelationID string
	Status        string
	Error         string
	ReportCount   *int
	CompletedAt   time.Time
}

// Entry is one journal row.
type Entry struct {
	SentEntry
	Status      string
	Error       string
	ReportCount *int
	CompletedAt *time.Time
}

// Journal is a SQLite audit trail of trade capture requests.
// Statements are prepared once at open and reused for every request.
type Journal struct {
	db     *sql.DB
	logger *zap.Logger

	stmtSent    *sql.Stmt
	stmtOutcome *sql.Stmt
	stmtLookup  *sql.Stmt
}

func OpenJournal(dbPath string, logger *zap.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	j := &Journal{db: db, logger: logging.OrNop(logger).Named("journal")}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if j.stmtSent, err = db.Prepare(insertSentQuery); err != nil {
		return nil, j.closeOnError(fmt.Errorf("failed to prepare sent statement: %w", err))
	}
	if j.stmtOutcome, err = db.Prepare(updateOutcomeQuery); err != nil {
		return nil, j.closeOnError(fmt.Errorf("failed to prepare outcome statement: %w", err))
	}
	if j.stmtLookup, err = db.Prepare(selectEntryQuery); err != nil {
		return nil, j.closeOnError(fmt.Errorf("failed to prepare lookup statement: %w", err))
	}

	j.logger.Info("request journal initialized", zap.String("path", dbPath))
	return j, nil
}

func (j *Journal) closeOnError(err error) error {
	_ = j.Close()
	return err
}

// Close releases prepared statements and the database handle.
func (j *Journal) Close() error {
	var err error
	for _, stmt := range []*sql.Stmt{j.stmtSent, j.stmtOutcome, j.stmtLookup} {
		if stmt != nil {
			err = multierr.Append(err, stmt.Close())
		}
	}
	return multierr.Append(err, j.db.Close())
}

func (j *Journal) RecordSent(ctx context.Context, e SentEntry) error {
	_, err := j.stmtSent.ExecContext(ctx,
		e.CorrelationID, e.BrokerID, e.SessionID, e.TradeReportID, e.RequestType, e.SentAt.UTC())
	if err != nil {
		return fmt.Errorf("record sent %s: %w", e.CorrelationID, err)
	}
	return nil
}

// RecordOutcome sets the final status of a journaled request.
func (j *Journal) RecordOutcome(ctx context.Context, e OutcomeEntry) error {
	res, err := j.stmtOutcome.ExecContext(ctx,
		e.Status, nullString(e.Error), e.ReportCount, e.CompletedAt.UTC(), e.CorrelationID)
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", e.CorrelationID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("record outcome %s: %w", e.CorrelationID, ErrNotFound)
	}
	return nil
}

func (j *Journal) Lookup(ctx context.Context, correlationID string) (*Entry, error) {
	var (
		e           Entry
		errText     sql.NullString
		count       sql.NullInt64
		completedAt sql.NullTime
	)
	err := j.stmtLookup.QueryRowContext(ctx, correlationID).Scan(
		&e.CorrelationID, &e.BrokerID, &e.SessionID, &e.TradeReportID, &e.RequestType, &e.SentAt,
		&e.Status, &errText, &count, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", correlationID, err)
	}

	e.Error = errText.String
	if count.Valid {
		n := int(count.Int64)
		e.ReportCount = &n
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
