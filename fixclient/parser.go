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

// Package fixclient adapts the quickfix engine to the gateway: it receives
// application callbacks, classifies inbound messages and extracts the
// trade capture reports that complete pending requests.
//
// Parsing Strategy:
// Reports are read through quickfix's structured field access rather than raw
// string scanning. A TradeCaptureReport carries a handful of typed fields the
// gateway cares about plus an arbitrary set of broker-specific tags, so every
// tag of the header, body and trailer is also copied into Report.Fields.
package fixclient

import (
	"strconv"
	"time"

	"github.com/HappyCodeDog/fix-gateway/constants"

	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

// Report is a TradeCaptureReport (AE) as seen by the gateway.
type Report struct {
	ReceivedAt time.Time

	TradeRequestID     string
	TradeReportID      string
	TotNumTradeReports *int

	Symbol       string
	Side         string
	LastQty      decimal.NullDecimal
	LastPx       decimal.NullDecimal
	TradeDate    string
	TransactTime string
	ExecID       string
	OrderID      string

	// Fields holds every tag of the message keyed by tag number.
	Fields map[string]string
}

// ParseReport extracts a Report from msg. Missing fields are left empty and
// malformed numeric fields are left unset; parsing never fails.
func ParseReport(msg *quickfix.Message) *Report {
	r := &Report{
		ReceivedAt:     msg.ReceiveTime,
		TradeRequestID: getString(msg, constants.TagTradeRequestID),
		TradeReportID:  getString(msg, constants.TagTradeReportID),
		Symbol:         getString(msg, constants.TagSymbol),
		Side:           getString(msg, constants.TagSide),
		TradeDate:      getString(msg, constants.TagTradeDate),
		TransactTime:   getString(msg, constants.TagTransactTime),
		ExecID:         getString(msg, constants.TagExecID),
		OrderID:        getString(msg, constants.TagOrderID),
		LastQty:        getDecimal(msg, constants.TagLastQty),
		LastPx:         getDecimal(msg, constants.TagLastPx),
		Fields:         allFields(msg),
	}
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now()
	}

	if s := getString(msg, constants.TagTotNumTradeReports); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			r.TotNumTradeReports = &n
		}
	}
	return r
}

// getString reads tag from the body, falling back to the header.
func getString(msg *quickfix.Message, tag quickfix.Tag) string {
	if msg.Body.Has(tag) {
		v, _ := msg.Body.GetString(tag)
		return v
	}
	if msg.Header.Has(tag) {
		v, _ := msg.Header.GetString(tag)
		return v
	}
	return ""
}

func getDecimal(msg *quickfix.Message, tag quickfix.Tag) decimal.NullDecimal {
	s := getString(msg, tag)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// allFields flattens the header, body and trailer. Repeating group members
// are not expanded; only the group count tag appears.
func allFields(msg *quickfix.Message) map[string]string {
	fields := make(map[string]string)
	copyFields(fields, &msg.Header.FieldMap)
	copyFields(fields, &msg.Body.FieldMap)
	copyFields(fields, &msg.Trailer.FieldMap)
	return fields
}

func copyFields(dst map[string]string, fm *quickfix.FieldMap) {
	for _, tag := range fm.Tags() {
		if v, err := fm.GetString(tag); err == nil {
			dst[strconv.Itoa(int(tag))] = v
		}
	}
}

// intField parses tag as an int; ok is false when absent or malformed.
func intField(msg *quickfix.Message, tag quickfix.Tag) (int, bool) {
	s := getString(msg, tag)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
