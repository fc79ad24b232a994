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
	"context"
	"errors"

	"github.com/HappyCodeDog/fix-gateway/fixclient"
	"github.com/HappyCodeDog/fix-gateway/registry"

	"github.com/shopspring/decimal"
)

// Status is the outward classification of a request outcome.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusTimeout        Status = "timeout"
	StatusCancelled      Status = "cancelled"
	StatusUnknownBroker  Status = "unknown_broker"
	StatusNoBroker       Status = "no_broker"
	StatusDispatchFailed Status = "dispatch_failed"
	StatusRejected       Status = "rejected"
	StatusInternalError  Status = "internal_error"
)

// StatusOf classifies err. A nil error is success.
func StatusOf(err error) Status {
	var (
		notFound *SessionNotFoundError
		dispatch *DispatchError
		timeout  *TimeoutError
		rejected *fixclient.RejectedError
	)
	switch {
	case err == nil:
		return StatusSuccess
	case errors.As(err, &timeout), errors.Is(err, registry.ErrExpired):
		return StatusTimeout
	case errors.As(err, &notFound):
		return StatusUnknownBroker
	case errors.Is(err, ErrNoBrokerConfigured):
		return StatusNoBroker
	case errors.As(err, &dispatch):
		return StatusDispatchFailed
	case errors.As(err, &rejected):
		return StatusRejected
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	default:
		return StatusInternalError
	}
}

// Trade is the trade detail carried by one report.
type Trade struct {
	Symbol       string              `json:"symbol,omitempty"`
	Side         string              `json:"side,omitempty"`
	LastQty      decimal.NullDecimal `json:"lastQty"`
	LastPx       decimal.NullDecimal `json:"lastPx"`
	TradeDate    string              `json:"tradeDate,omitempty"`
	TransactTime string              `json:"transactTime,omitempty"`
	ExecID       string              `json:"execId,omitempty"`
	OrderID      string              `json:"orderId,omitempty"`
}

func (t Trade) empty() bool {
	return t.Symbol == "" && t.Side == "" && !t.LastQty.Valid && !t.LastPx.Valid &&
		t.TradeDate == "" && t.TransactTime == "" && t.ExecID == "" && t.OrderID == ""
}

// Result is the structured answer of RequestReport. It never carries a Go
// error; failures are described by Status and ErrorMessage.
type Result struct {
	Success        bool              `json:"success"`
	Status         Status            `json:"status"`
	BrokerID       string            `json:"brokerId,omitempty"`
	TradeRequestID string            `json:"tradeRequestId,omitempty"`
	TradeReportID  string            `json:"tradeReportId,omitempty"`
	TotalNumTrades *int              `json:"totalNumTrades,omitempty"`
	Trades         []Trade           `json:"trades"`
	FixFields      map[string]string `json:"fixFields,omitempty"`
	ErrorMessage   string            `json:"errorMessage,omitempty"`
}

// ResultOf converts the outcome of Send into a Result.
func ResultOf(brokerID string, report *fixclient.Report, err error) Result {
	if err != nil {
		return failureResult(brokerID, err)
	}
	return successResult(brokerID, report)
}

func successResult(brokerID string, r *fixclient.Report) Result {
	res := Result{
		Success:        true,
		Status:         StatusSuccess,
		BrokerID:       brokerID,
		TradeRequestID: r.TradeRequestID,
		TradeReportID:  r.TradeReportID,
		TotalNumTrades: r.TotNumTradeReports,
		FixFields:      r.Fields,
		Trades:         []Trade{},
	}
	t := Trade{
		Symbol:       r.Symbol,
		Side:         r.Side,
		LastQty:      r.LastQty,
		LastPx:       r.LastPx,
		TradeDate:    r.TradeDate,
		TransactTime: r.TransactTime,
		ExecID:       r.ExecID,
		OrderID:      r.OrderID,
	}
	if !t.empty() {
		res.Trades = append(res.Trades, t)
	}
	return res
}

func failureResult(brokerID string, err error) Result {
	return Result{
		Status:       StatusOf(err),
		BrokerID:     brokerID,
		Trades:       []Trade{},
		ErrorMessage: err.Error(),
	}
}
