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
	"testing"
	"time"

	"github.com/HappyCodeDog/fix-gateway/constants"

	"github.com/quickfixgo/quickfix"
)

// Tests for trade capture report parsing.
// These tests verify that typed fields are extracted from AE messages and that
// the flattened field map keeps every header, body and trailer tag.

func newMessage(msgType string, body map[quickfix.Tag]string) *quickfix.Message {
	m := quickfix.NewMessage()
	m.Header.SetString(constants.TagBeginString, constants.DefaultBeginString)
	m.Header.SetString(constants.TagMsgType, msgType)
	m.Header.SetString(constants.TagSenderCompId, "BROKER")
	m.Header.SetString(constants.TagTargetCompId, "GW")
	for tag, v := range body {
		m.Body.SetString(tag, v)
	}
	return m
}

// TestParseReport_TypedFields verifies the fields the gateway surfaces are
// read from a fully populated report.
func TestParseReport_TypedFields(t *testing.T) {
	msg := newMessage(constants.MsgTypeTradeCaptureReport, map[quickfix.Tag]string{
		constants.TagTradeRequestID:     "01JCORR",
		constants.TagTradeReportID:      "R1",
		constants.TagTotNumTradeReports: "3",
		constants.TagSymbol:             "BTC-USD",
		constants.TagSide:               "1",
		constants.TagLastQty:            "1.2500",
		constants.TagLastPx:             "50000.10",
		constants.TagTradeDate:          "20250101",
		constants.TagTransactTime:       "20250101-12:00:00.000",
		constants.TagExecID:             "E-9",
		constants.TagOrderID:            "O-7",
	})

	r := ParseReport(msg)

	if r.TradeRequestID != "01JCORR" || r.TradeReportID != "R1" {
		t.Fatalf("ids = %q/%q, want 01JCORR/R1", r.TradeRequestID, r.TradeReportID)
	}
	if r.TotNumTradeReports == nil || *r.TotNumTradeReports != 3 {
		t.Fatalf("TotNumTradeReports = %v, want 3", r.TotNumTradeReports)
	}
	if r.Symbol != "BTC-USD" || r.Side != "1" {
		t.Errorf("symbol/side = %q/%q", r.Symbol, r.Side)
	}
	if !r.LastQty.Valid || r.LastQty.Decimal.String() != "1.25" {
		t.Errorf("LastQty = %v, want 1.25", r.LastQty)
	}
	if !r.LastPx.Valid || r.LastPx.Decimal.String() != "50000.1" {
		t.Errorf("LastPx = %v, want 50000.1", r.LastPx)
	}
	if r.TradeDate != "20250101" || r.ExecID != "E-9" || r.OrderID != "O-7" {
		t.Errorf("unexpected trade detail: %+v", r)
	}
	if r.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

// TestParseReport_FieldMapIncludesHeader verifies header tags appear next to
// body tags, keyed by tag number.
func TestParseReport_FieldMapIncludesHeader(t *testing.T) {
	msg := newMessage(constants.MsgTypeTradeCaptureReport, map[quickfix.Tag]string{
		constants.TagTradeRequestID: "01JCORR",
		quickfix.Tag(9001):          "custom",
	})

	r := ParseReport(msg)

	tests := map[string]string{
		"35":   "AE",
		"49":   "BROKER",
		"568":  "01JCORR",
		"9001": "custom",
	}
	for tag, want := range tests {
		if got := r.Fields[tag]; got != want {
			t.Errorf("Fields[%s] = %q, want %q", tag, got, want)
		}
	}
}

// TestParseReport_MissingAndMalformed verifies absent or unparsable numeric
// fields are left unset rather than failing the parse.
func TestParseReport_MissingAndMalformed(t *testing.T) {
	msg := newMessage(constants.MsgTypeTradeCaptureReport, map[quickfix.Tag]string{
		constants.TagTradeRequestID:     "01JCORR",
		constants.TagTotNumTradeReports: "many",
		constants.TagLastPx:             "n/a",
	})

	r := ParseReport(msg)

	if r.TotNumTradeReports != nil {
		t.Errorf("TotNumTradeReports = %d, want nil", *r.TotNumTradeReports)
	}
	if r.LastPx.Valid {
		t.Error("LastPx should be invalid")
	}
	if r.LastQty.Valid {
		t.Error("LastQty should be invalid when absent")
	}
	if r.TradeReportID != "" {
		t.Errorf("TradeReportID = %q, want empty", r.TradeReportID)
	}
}

func TestParseReport_KeepsReceiveTime(t *testing.T) {
	msg := newMessage(constants.MsgTypeTradeCaptureReport, nil)
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	msg.ReceiveTime = at

	if got := ParseReport(msg).ReceivedAt; !got.Equal(at) {
		t.Errorf("ReceivedAt = %v, want %v", got, at)
	}
}
