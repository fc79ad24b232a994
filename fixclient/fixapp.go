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

/*
Inbound Message Flow

┌─────────────────────────────────────────────────────────────────────────────┐
│                           NETWORK LAYER                                     │
│              (quickfix handles TCP, logon, heartbeats, resend)              │
└─────────────────────────────────────────────────────────────────────────────┘
                                     │
                                     ▼
┌─────────────────────────────────────────────────────────────────────────────┐
│ [1] FromApp()                                                  ENTRY POINT │
│     • Called on a quickfix goroutine for every application message         │
│     • Classify(MsgType) picks one InboundKind                              │
└─────────────────────────────────────────────────────────────────────────────┘
                                     │
        ┌───────────────────┬────────┴──────────┬─────────────────────┐
        ▼                   ▼                   ▼                     ▼
┌───────────────┐  ┌─────────────────┐  ┌──────────────────┐  ┌──────────────┐
│ AE report     │  │ AQ request ack  │  │ j business reject│  │ unrecognized │
│ ParseReport   │  │ reject → Fail   │  │ Fail(379)        │  │ logged only  │
│ Complete(568) │  │ empty → Complete│  │                  │  │              │
└───────────────┘  └─────────────────┘  └──────────────────┘  └──────────────┘
                                     │
                                     ▼
┌─────────────────────────────────────────────────────────────────────────────┐
│ [2] Completer (the correlation registry)                                    │
│     • Atomic lookup-and-remove by correlation id, then single completion    │
│     • Unknown ids are logged and counted, never surfaced                    │
└─────────────────────────────────────────────────────────────────────────────┘
*/

package fixclient

import (
	"context"
	"sync"

	"github.com/HappyCodeDog/fix-gateway/constants"
	"github.com/HappyCodeDog/fix-gateway/logging"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"
)

// InboundKind is the closed set of application messages the gateway reacts to.
type InboundKind int

const (
	KindUnrecognized InboundKind = iota
	KindTradeCaptureReport
	KindTradeRequestAck
	KindBusinessReject
)

func (k InboundKind) String() string {
	switch k {
	case KindTradeCaptureReport:
		return "TradeCaptureReport"
	case KindTradeRequestAck:
		return "TradeCaptureReportRequestAck"
	case KindBusinessReject:
		return "BusinessMessageReject"
	default:
		return "Unrecognized"
	}
}

// Classify maps a MsgType (tag 35) to its InboundKind.
func Classify(msgType string) InboundKind {
	switch msgType {
	case constants.MsgTypeTradeCaptureReport:
		return KindTradeCaptureReport
	case constants.MsgTypeTradeCaptureReportRequestAck:
		return KindTradeRequestAck
	case constants.MsgTypeBusinessReject:
		return KindBusinessReject
	default:
		return KindUnrecognized
	}
}

// Completer delivers outcomes to waiting requests by correlation id.
// *registry.Registry[*Report] satisfies it.
type Completer interface {
	Complete(id string, r *Report) bool
	Fail(id string, err error) bool
}

// SessionObserver is notified of logon state changes.
type SessionObserver interface {
	SessionLoggedOn(session string, on bool)
}

type sessionState struct {
	loggedOn bool
	// up is closed while loggedOn is true and replaced on logout.
	up chan struct{}
}

// App implements quickfix.Application for every session of the gateway.
// One App is shared by all initiators.
type App struct {
	completer Completer
	observer  SessionObserver
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[quickfix.SessionID]*sessionState
}

func NewApp(completer Completer, observer SessionObserver, logger *zap.Logger) *App {
	return &App{
		completer: completer,
		observer:  observer,
		logger:    logging.OrNop(logger).Named("fixapp"),
		sessions:  make(map[quickfix.SessionID]*sessionState),
	}
}

// state returns the entry for sid, creating it. Callers hold a.mu.
func (a *App) state(sid quickfix.SessionID) *sessionState {
	s, ok := a.sessions[sid]
	if !ok {
		s = &sessionState{up: make(chan struct{})}
		a.sessions[sid] = s
	}
	return s
}

func (a *App) OnCreate(sid quickfix.SessionID) {
	a.mu.Lock()
	a.state(sid)
	a.mu.Unlock()
	a.logger.Info("session created", zap.Stringer("session", sid))
}

func (a *App) OnLogon(sid quickfix.SessionID) {
	a.mu.Lock()
	s := a.state(sid)
	if !s.loggedOn {
		s.loggedOn = true
		close(s.up)
	}
	a.mu.Unlock()

	a.logger.Info("FIX logon", zap.Stringer("session", sid))
	if a.observer != nil {
		a.observer.SessionLoggedOn(sid.String(), true)
	}
}

func (a *App) OnLogout(sid quickfix.SessionID) {
	a.mu.Lock()
	s := a.state(sid)
	if s.loggedOn {
		s.loggedOn = false
		s.up = make(chan struct{})
	}
	a.mu.Unlock()

	a.logger.Info("FIX logout", zap.Stringer("session", sid))
	if a.observer != nil {
		a.observer.SessionLoggedOn(sid.String(), false)
	}
}

func (a *App) ToAdmin(_ *quickfix.Message, _ quickfix.SessionID) {}

func (a *App) FromAdmin(msg *quickfix.Message, sid quickfix.SessionID) quickfix.MessageRejectError {
	if t, _ := msg.Header.GetString(constants.TagMsgType); t == constants.MsgTypeReject {
		a.logger.Warn("session-level reject",
			zap.Stringer("session", sid),
			zap.String("text", getString(msg, constants.TagText)),
		)
	}
	return nil
}

func (a *App) ToApp(_ *quickfix.Message, _ quickfix.SessionID) error {
	return nil
}

// FromApp is the entry point for all application-level FIX messages. It never
// rejects; anything the gateway does not understand is logged and ignored.
func (a *App) FromApp(msg *quickfix.Message, sid quickfix.SessionID) quickfix.MessageRejectError {
	msgType, _ := msg.Header.GetString(constants.TagMsgType)

	switch Classify(msgType) {
	case KindTradeCaptureReport:
		a.handleTradeCaptureReport(msg, sid)
	case KindTradeRequestAck:
		a.handleTradeRequestAck(msg, sid)
	case KindBusinessReject:
		a.handleBusinessReject(msg, sid)
	default:
		a.logger.Debug("ignoring application message",
			zap.Stringer("session", sid),
			zap.String("msg_type", msgType),
		)
	}
	return nil
}

// handleTradeCaptureReport completes the request named by TradeRequestID with
// the first report received for it.
func (a *App) handleTradeCaptureReport(msg *quickfix.Message, sid quickfix.SessionID) {
	report := ParseReport(msg)
	if report.TradeRequestID == "" {
		a.logger.Warn("trade capture report without TradeRequestID", zap.Stringer("session", sid))
		return
	}
	a.logger.Debug("trade capture report",
		zap.Stringer("session", sid),
		zap.String("correlation_id", report.TradeRequestID),
		zap.String("trade_report_id", report.TradeReportID),
	)
	a.completer.Complete(report.TradeRequestID, report)
}

// handleTradeRequestAck fails rejected requests and completes requests that
// matched no trades. Accepted acks are followed by AE reports and ignored.
func (a *App) handleTradeRequestAck(msg *quickfix.Message, sid quickfix.SessionID) {
	id := getString(msg, constants.TagTradeRequestID)
	if id == "" {
		return
	}
	status := getString(msg, constants.TagTradeRequestStatus)
	result := getString(msg, constants.TagTradeRequestResult)

	if status == constants.TradeRequestStatusRejected ||
		(result != "" && result != constants.TradeRequestResultSuccessful) {
		a.logger.Info("trade capture request rejected",
			zap.Stringer("session", sid),
			zap.String("correlation_id", id),
			zap.String("result", result),
		)
		a.completer.Fail(id, &RejectedError{
			CorrelationID: id,
			MsgType:       constants.MsgTypeTradeCaptureReportRequestAck,
			Code:          result,
			Text:          getString(msg, constants.TagText),
		})
		return
	}

	if n, ok := intField(msg, constants.TagTotNumTradeReports); ok && n == 0 &&
		status == constants.TradeRequestStatusCompleted {
		report := ParseReport(msg)
		report.TradeRequestID = id
		a.completer.Complete(id, report)
	}
}

func (a *App) handleBusinessReject(msg *quickfix.Message, sid quickfix.SessionID) {
	id := getString(msg, constants.TagBusinessRejectRefID)
	code := getString(msg, constants.TagBusinessRejectCode)
	text := getString(msg, constants.TagText)

	a.logger.Warn("business message reject",
		zap.Stringer("session", sid),
		zap.String("ref_id", id),
		zap.String("code", code),
		zap.String("reason", BusinessRejectReasonDesc(code)),
		zap.String("text", text),
	)
	if id == "" {
		return
	}
	a.completer.Fail(id, &RejectedError{
		CorrelationID: id,
		MsgType:       constants.MsgTypeBusinessReject,
		Code:          code,
		Text:          text,
	})
}

// IsLoggedOn reports whether sid currently has an active logon.
func (a *App) IsLoggedOn(sid quickfix.SessionID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[sid]
	return ok && s.loggedOn
}

// WaitForLogon blocks until sid is logged on or ctx ends.
func (a *App) WaitForLogon(ctx context.Context, sid quickfix.SessionID) error {
	a.mu.Lock()
	up := a.state(sid).up
	a.mu.Unlock()

	select {
	case <-up:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BusinessRejectReasonDesc describes a BusinessRejectReason (tag 380) code.
func BusinessRejectReasonDesc(code string) string {
	switch code {
	case constants.BusinessRejectReasonOther:
		return "Other"
	case constants.BusinessRejectReasonUnknownID:
		return "Unknown ID"
	case constants.BusinessRejectReasonUnknownSecurity:
		return "Unknown Security"
	case constants.BusinessRejectReasonUnsupportedMsgType:
		return "Unsupported Message Type"
	case constants.BusinessRejectReasonApplicationNotAvail:
		return "Application not available"
	case constants.BusinessRejectReasonCondRequiredMissing:
		return "Conditionally required field missing"
	case constants.BusinessRejectReasonNotAuthorized:
		return "Not authorized"
	default:
		return "Unknown reason"
	}
}
