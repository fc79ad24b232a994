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

const schema = `
CREATE TABLE IF NOT EXISTS trade_capture_requests (
	correlation_id     TEXT PRIMARY KEY,
	broker_id          TEXT NOT NULL,
	session_id         TEXT NOT NULL,
	trade_report_id    TEXT NOT NULL DEFAULT '',
	request_type       TEXT NOT NULL,
	sent_at            TIMESTAMP NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending',
	error              TEXT,
	report_count       INTEGER,
	completed_at       TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_requests_broker_sent ON trade_capture_requests(broker_id, sent_at);
CREATE INDEX IF NOT EXISTS idx_requests_status ON trade_capture_requests(status);
`

const insertSentQuery = `
INSERT INTO trade_capture_requests (correlation_id, broker_id, session_id, trade_report_id, request_type, sent_at)
VALUES (?, ?, ?, ?, ?, ?)`

const updateOutcomeQuery = `
UPDATE trade_capture_requests
SET status = ?, error = ?, report_count = ?, completed_at = ?
WHERE correlation_id = ?`

const selectEntryQuery = `
SELECT correlation_id, broker_id, session_id, trade_report_id, request_type, sent_at,
       status, error, report_count, completed_at
FROM trade_capture_requests
WHERE correlation_id = ?`
