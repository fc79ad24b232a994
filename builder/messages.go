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

package builder

import (
	"sort"
	"time"

	"github.com/HappyCodeDog/fix-gateway/constants"

	"github.com/quickfixgo/quickfix"
)

// FieldSetter abstracts setting fields on FIX message components.
type FieldSetter interface {
	SetField(tag quickfix.Tag, field quickfix.FieldValueWriter) *quickfix.FieldMap
}

func setString(fs FieldSetter, tag quickfix.Tag, value string) {
	fs.SetField(tag, quickfix.FIXString(value))
}

// setStringIfNotEmpty sets a field only if the value is non-empty.
func setStringIfNotEmpty(fs FieldSetter, tag quickfix.Tag, value string) {
	if value != "" {
		fs.SetField(tag, quickfix.FIXString(value))
	}
}

// buildHeader sets common header fields for outgoing messages. The session's
// BeginString is used so the same builder serves FIX.4.4 and FIXT.1.1 sessions.
func buildHeader(header *quickfix.Header, msgType string, sid quickfix.SessionID) {
	setString(header, constants.TagBeginString, sid.BeginString)
	setString(header, constants.TagMsgType, msgType)
	setString(header, constants.TagSenderCompId, sid.SenderCompID)
	setString(header, constants.TagTargetCompId, sid.TargetCompID)
	setString(header, constants.TagSendingTime, time.Now().UTC().Format(constants.FixTimeFormat))
}

// --- Trade Capture Report Request (AD) ---

// TradeCaptureParams contains parameters for a trade capture report request.
type TradeCaptureParams struct {
	TradeRequestID   string // Correlation id echoed in Tag 568 (required)
	TradeRequestType string // Tag 569, defaults to all trades
	TradeReportID    string // Tag 571 (optional)

	// Fields carries caller-supplied business fields. Header tags and the
	// tags above (568, 569, 571, 263) are never taken from it; TradeReportID
	// is set only from the field above.
	Fields map[quickfix.Tag]string
}

var reservedTags = map[quickfix.Tag]struct{}{
	constants.TagBeginString:         {},
	constants.TagMsgType:             {},
	constants.TagSenderCompId:        {},
	constants.TagTargetCompId:        {},
	constants.TagSendingTime:         {},
	constants.TagMsgSeqNum:           {},
	constants.TagTradeRequestID:      {},
	constants.TagTradeRequestType:    {},
	constants.TagTradeReportID:       {},
	constants.TagSubscriptionReqType: {},
}

// BuildTradeCaptureReportRequest creates a Trade Capture Report Request (AD)
// snapshot addressed to the given session.
//
// Example:
//
//	params := TradeCaptureParams{TradeRequestID: "01J...", TradeReportID: "R1"}
//	msg := BuildTradeCaptureReportRequest(params, sid)
func BuildTradeCaptureReportRequest(params TradeCaptureParams, sid quickfix.SessionID) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeTradeCaptureReportRequest, sid)

	requestType := params.TradeRequestType
	if requestType == "" {
		requestType = constants.TradeRequestTypeAllTrades
	}

	setString(&m.Body, constants.TagTradeRequestID, params.TradeRequestID)
	setString(&m.Body, constants.TagTradeRequestType, requestType)
	setString(&m.Body, constants.TagSubscriptionReqType, constants.SubscriptionRequestTypeSnapshot)
	setStringIfNotEmpty(&m.Body, constants.TagTradeReportID, params.TradeReportID)

	// Deterministic order keeps the encoded message stable for logs and tests.
	tags := make([]int, 0, len(params.Fields))
	for tag := range params.Fields {
		if _, reserved := reservedTags[tag]; reserved {
			continue
		}
		tags = append(tags, int(tag))
	}
	sort.Ints(tags)
	for _, tag := range tags {
		setStringIfNotEmpty(&m.Body, quickfix.Tag(tag), params.Fields[quickfix.Tag(tag)])
	}

	return m
}
