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

// Package gateway turns a FIX trade capture request into a blocking call.
//
// Request Flow:
//  1. Resolve the broker to a connector and session; unknown brokers fail
//     before anything is registered
//  2. Generate a ULID correlation id and build the AD message around it
//  3. Register the id, then dispatch; a synchronous send failure removes it
//  4. Wait on the pending entry; a timeout abandons it so a late response is
//     dropped as unmatched
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HappyCodeDog/fix-gateway/builder"
	"github.com/HappyCodeDog/fix-gateway/constants"
	"github.com/HappyCodeDog/fix-gateway/database"
	"github.com/HappyCodeDog/fix-gateway/fixclient"
	"github.com/HappyCodeDog/fix-gateway/logging"
	"github.com/HappyCodeDog/fix-gateway/orchestrator"
	"github.com/HappyCodeDog/fix-gateway/registry"

	"github.com/quickfixgo/quickfix"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("fix-gateway/gateway")

// DefaultTimeout applies when a caller passes a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// SessionResolver is the read side of the orchestrator.
type SessionResolver interface {
	Resolve(brokerID string) (orchestrator.ResolvedSession, error)
	FirstBrokerID() (string, bool)
}

// Journal records requests for audit. *database.Journal satisfies it.
type Journal interface {
	RecordSent(ctx context.Context, e database.SentEntry) error
	RecordOutcome(ctx context.Context, e database.OutcomeEntry) error
}

// Metrics observes finished requests. *metrics.Metrics satisfies it.
type Metrics interface {
	ObserveRequest(broker, outcome string, elapsed time.Duration)
}

// TradeCaptureRequest is the business payload of one request.
type TradeCaptureRequest struct {
	TradeReportID    string
	TradeRequestType string
	Fields           map[quickfix.Tag]string
}

type Gateway struct {
	sessions SessionResolver
	pending  *registry.Registry[*fixclient.Report]
	journal  Journal
	metrics  Metrics
	logger   *zap.Logger

	newID          func() string
	defaultTimeout time.Duration
}

type Option func(*Gateway)

func WithJournal(j Journal) Option { return func(g *Gateway) { g.journal = j } }

func WithMetrics(m Metrics) Option { return func(g *Gateway) { g.metrics = m } }

// WithIDGenerator replaces NewCorrelationID, for tests.
func WithIDGenerator(f func() string) Option { return func(g *Gateway) { g.newID = f } }

func WithDefaultTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.defaultTimeout = d
		}
	}
}

func New(sessions SessionResolver, pending *registry.Registry[*fixclient.Report], logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		sessions:       sessions,
		pending:        pending,
		logger:         logging.OrNop(logger).Named("gateway"),
		newID:          NewCorrelationID,
		defaultTimeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send dispatches a trade capture report request to brokerID and waits up to
// timeout for the first matching response.
func (g *Gateway) Send(ctx context.Context, brokerID string, req TradeCaptureRequest, timeout time.Duration) (report *fixclient.Report, err error) {
	if timeout <= 0 {
		timeout = g.defaultTimeout
	}
	start := time.Now()
	ctx, span := tracer.Start(ctx, "gateway.Send", trace.WithAttributes(
		attribute.String("fix.broker_id", brokerID),
		attribute.String("fix.trade_report_id", req.TradeReportID),
	))

	var (
		id string
		p  *registry.Pending[*fixclient.Report]
	)
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("send panicked", zap.String("broker_id", brokerID), zap.Any("panic", r), zap.Stack("stack"))
			report, err = nil, fmt.Errorf("internal error: %v", r)
		}
		if p != nil && err != nil {
			g.pending.Abandon(p, err)
		}
		if id != "" {
			g.recordOutcome(ctx, id, report, err)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(StatusOf(err)))
		}
		span.End()
		if g.metrics != nil {
			g.metrics.ObserveRequest(brokerID, string(StatusOf(err)), time.Since(start))
		}
	}()

	rs, err := g.sessions.Resolve(brokerID)
	if err != nil {
		return nil, &SessionNotFoundError{BrokerID: brokerID, Err: err}
	}

	correlationID := g.newID()
	span.SetAttributes(attribute.String("fix.correlation_id", correlationID))
	logger := g.logger.With(zap.String("broker_id", brokerID), zap.String("correlation_id", correlationID))

	requestType := req.TradeRequestType
	if requestType == "" {
		requestType = constants.TradeRequestTypeAllTrades
	}
	msg := builder.BuildTradeCaptureReportRequest(builder.TradeCaptureParams{
		TradeRequestID:   correlationID,
		TradeRequestType: requestType,
		TradeReportID:    req.TradeReportID,
		Fields:           req.Fields,
	}, rs.SessionID)

	p, err = g.pending.Register(correlationID)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", correlationID, err)
	}
	id = correlationID
	g.recordSent(ctx, database.SentEntry{
		CorrelationID: id,
		BrokerID:      brokerID,
		SessionID:     rs.SessionID.String(),
		TradeReportID: req.TradeReportID,
		RequestType:   requestType,
		SentAt:        start,
	})

	if sendErr := rs.Connector.Send(msg, rs.SessionID); sendErr != nil {
		logger.Warn("dispatch failed", zap.Error(sendErr))
		return nil, &DispatchError{BrokerID: brokerID, CorrelationID: id, Err: sendErr}
	}
	logger.Debug("trade capture request sent", zap.Stringer("session", rs.SessionID))

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report, err = p.Wait(waitCtx)
	if errors.Is(err, registry.ErrExpired) {
		logger.Info("request expired by sweep")
		return nil, &TimeoutError{BrokerID: brokerID, CorrelationID: id, Timeout: time.Since(start), Err: err}
	}
	if err == nil || !errors.Is(err, waitCtx.Err()) {
		return report, err
	}

	var cause error = &TimeoutError{BrokerID: brokerID, CorrelationID: id, Timeout: timeout}
	if errors.Is(err, context.Canceled) {
		cause = fmt.Errorf("request %s: %w", id, err)
	}
	if g.pending.Abandon(p, cause) {
		logger.Info("request abandoned", zap.Error(cause))
		return nil, cause
	}
	// A response won the race with the deadline.
	return p.Outcome()
}

// SendDefault sends to the first broker in declaration order.
func (g *Gateway) SendDefault(ctx context.Context, req TradeCaptureRequest, timeout time.Duration) (*fixclient.Report, string, error) {
	brokerID, ok := g.sessions.FirstBrokerID()
	if !ok {
		return nil, "", ErrNoBrokerConfigured
	}
	report, err := g.Send(ctx, brokerID, req, timeout)
	return report, brokerID, err
}

// RequestReport is the upward API. An empty brokerID selects the default
// broker. It always returns a Result; errors and panics become failure
// statuses.
func (g *Gateway) RequestReport(ctx context.Context, brokerID, tradeReportID, requestType string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("request panicked", zap.String("broker_id", brokerID), zap.Any("panic", r), zap.Stack("stack"))
			res = failureResult(brokerID, fmt.Errorf("internal error: %v", r))
		}
	}()

	req := TradeCaptureRequest{TradeReportID: tradeReportID, TradeRequestType: requestType}

	var (
		report *fixclient.Report
		err    error
	)
	if brokerID == "" {
		report, brokerID, err = g.SendDefault(ctx, req, g.defaultTimeout)
	} else {
		report, err = g.Send(ctx, brokerID, req, g.defaultTimeout)
	}
	if err != nil {
		g.logger.Info("trade capture request failed",
			zap.String("broker_id", brokerID),
			zap.String("status", string(StatusOf(err))),
			zap.Error(err))
	}
	return ResultOf(brokerID, report, err)
}

func (g *Gateway) recordSent(ctx context.Context, e database.SentEntry) {
	if g.journal == nil {
		return
	}
	if err := g.journal.RecordSent(context.WithoutCancel(ctx), e); err != nil {
		g.logger.Warn("journal write failed", zap.String("correlation_id", e.CorrelationID), zap.Error(err))
	}
}

func (g *Gateway) recordOutcome(ctx context.Context, id string, report *fixclient.Report, err error) {
	if g.journal == nil {
		return
	}
	e := database.OutcomeEntry{
		CorrelationID: id,
		Status:        string(StatusOf(err)),
		CompletedAt:   time.Now(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if report != nil {
		e.ReportCount = report.TotNumTradeReports
	}
	if jerr := g.journal.RecordOutcome(context.WithoutCancel(ctx), e); jerr != nil {
		g.logger.Warn("journal write failed", zap.String("correlation_id", id), zap.Error(jerr))
	}
}
