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

package fixclient

import (
	"errors"
	"fmt"
)

// ErrNotLoggedOn is returned by Send when the target session has no active logon.
var ErrNotLoggedOn = errors.New("fixclient: session not logged on")

// RejectedError is the outcome of a request the counterparty refused, either
// through a TradeCaptureReportRequestAck or a BusinessMessageReject.
type RejectedError struct {
	CorrelationID string
	MsgType       string
	Code          string
	Text          string
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("request %s rejected by counterparty (msg type %s, code %s)", e.CorrelationID, e.MsgType, e.Code)
	if e.Text != "" {
		msg += ": " + e.Text
	}
	return msg
}
