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

package gateway

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoBrokerConfigured is returned by the default-broker path when no broker
// session is running.
var ErrNoBrokerConfigured = errors.New("gateway: no broker configured")

// SessionNotFoundError means the broker id has no started session.
type SessionNotFoundError struct {
	BrokerID string
	Err      error
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("no FIX session for broker %q", e.BrokerID)
}

func (e *SessionNotFoundError) Unwrap() error { return e.Err }

// DispatchError means the transport refused the request synchronously.
type DispatchError struct {
	BrokerID      string
	CorrelationID string
	Err           error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s to broker %q: %v", e.CorrelationID, e.BrokerID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// TimeoutError means no response arrived within the deadline. Err is set
// when the registry expired the entry before the caller's deadline.
type TimeoutError struct {
	BrokerID      string
	CorrelationID string
	Timeout       time.Duration
	Err           error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no response from broker %q for %s within %s", e.BrokerID, e.CorrelationID, e.Timeout.Round(time.Millisecond))
}

func (e *TimeoutError) Unwrap() error { return e.Err }
