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

// Package orchestrator turns resolved broker profiles into running connectors
// and answers which connector and session serve a broker.
//
// Lifecycle:
// - Start resolves each profile in order and starts one connector per
//   distinct settings source; failures are isolated to their profile
// - The broker table is published atomically once Start is done
// - Stop unpublishes the table, then stops every distinct connector once
package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/HappyCodeDog/fix-gateway/config"
	"github.com/HappyCodeDog/fix-gateway/logging"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("orchestrator: broker session not found")
	ErrAlreadyStarted = errors.New("orchestrator: already started")
)

// Connector is one running protocol engine initiator. It may serve several
// sessions.
type Connector interface {
	Start() error
	Stop()
	Send(msg *quickfix.Message, sid quickfix.SessionID) error
}

// ConnectorFactory creates a connector for the given settings.
type ConnectorFactory interface {
	NewConnector(profile config.BrokerProfile, settings *quickfix.Settings) (Connector, error)
}

// SettingsResolver is the part of config.Resolver the orchestrator needs.
type SettingsResolver interface {
	Resolve(p config.BrokerProfile) (config.Resolved, error)
	Reset()
}

// Observer receives lifecycle events. *metrics.Metrics satisfies it.
type Observer interface {
	ConnectorsRunning(n int)
	StartupFailed(brokerID string)
}

// ResolvedSession is a broker's live binding.
type ResolvedSession struct {
	BrokerID   string
	Connector  Connector
	SessionID  quickfix.SessionID
	SourcePath string
}

type sessionTable struct {
	sessions map[string]ResolvedSession
	order    []string
}

type Orchestrator struct {
	resolver SettingsResolver
	factory  ConnectorFactory
	observer Observer
	logger   *zap.Logger

	table atomic.Pointer[sessionTable]

	mu         sync.Mutex
	started    bool
	byPath     map[string]Connector
	pathOrder  []string
	standalone []Connector
}

func New(resolver SettingsResolver, factory ConnectorFactory, observer Observer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		resolver: resolver,
		factory:  factory,
		observer: observer,
		logger:   logging.OrNop(logger).Named("orchestrator"),
		byPath:   make(map[string]Connector),
	}
}

// Start brings up a connector for every profile that resolves. A profile that
// fails is logged and skipped; the others still start. Start returns an error
// only when called twice without Stop.
func (o *Orchestrator) Start(profiles []config.BrokerProfile) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return ErrAlreadyStarted
	}
	o.started = true

	table := &sessionTable{sessions: make(map[string]ResolvedSession, len(profiles))}
	for _, p := range profiles {
		if _, dup := table.sessions[p.BrokerID]; dup {
			o.logger.Warn("duplicate broker id skipped", zap.String("broker_id", p.BrokerID))
			continue
		}
		rs, err := o.startProfile(p)
		if err != nil {
			o.logger.Error("broker startup failed", zap.String("broker_id", p.BrokerID), zap.Error(err))
			if o.observer != nil {
				o.observer.StartupFailed(p.BrokerID)
			}
			continue
		}
		table.sessions[p.BrokerID] = rs
		table.order = append(table.order, p.BrokerID)
		o.logger.Info("broker session ready",
			zap.String("broker_id", p.BrokerID),
			zap.Stringer("session", rs.SessionID),
			zap.String("source", rs.SourcePath),
		)
	}

	if len(table.order) == 0 {
		o.logger.Warn("no broker sessions started")
	}
	if o.observer != nil {
		o.observer.ConnectorsRunning(len(o.byPath) + len(o.standalone))
	}
	o.table.Store(table)
	return nil
}

// startProfile resolves p and binds it to a running connector. A panic in the
// resolver or the factory fails this profile only. Callers hold o.mu.
func (o *Orchestrator) startProfile(p config.BrokerProfile) (_ ResolvedSession, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("broker startup panicked", zap.String("broker_id", p.BrokerID), zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("broker %s startup panicked: %v", p.BrokerID, r)
		}
	}()

	resolved, err := o.resolver.Resolve(p)
	if err != nil {
		return ResolvedSession{}, err
	}

	rs := ResolvedSession{
		BrokerID:   p.BrokerID,
		SessionID:  resolved.SessionID,
		SourcePath: resolved.SourcePath,
	}

	if resolved.SourcePath != "" {
		if conn, ok := o.byPath[resolved.SourcePath]; ok {
			rs.Connector = conn
			return rs, nil
		}
	}

	conn, err := o.factory.NewConnector(resolved.Profile, resolved.Settings)
	if err != nil {
		return ResolvedSession{}, fmt.Errorf("create connector: %w", err)
	}
	if err := conn.Start(); err != nil {
		return ResolvedSession{}, fmt.Errorf("start connector: %w", err)
	}

	if resolved.SourcePath != "" {
		o.byPath[resolved.SourcePath] = conn
		o.pathOrder = append(o.pathOrder, resolved.SourcePath)
	} else {
		o.standalone = append(o.standalone, conn)
	}
	rs.Connector = conn
	return rs, nil
}

// Stop unpublishes the broker table and stops every connector exactly once.
// It is safe to call when not started.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.table.Store(nil)

	stopped := 0
	for _, path := range o.pathOrder {
		o.stopConnector(o.byPath[path], zap.String("source", path))
		stopped++
	}
	for _, conn := range o.standalone {
		o.stopConnector(conn)
		stopped++
	}

	o.byPath = make(map[string]Connector)
	o.pathOrder = nil
	o.standalone = nil
	o.started = false
	o.resolver.Reset()

	if o.observer != nil {
		o.observer.ConnectorsRunning(0)
	}
	if stopped > 0 {
		o.logger.Info("connectors stopped", zap.Int("count", stopped))
	}
}

func (o *Orchestrator) stopConnector(conn Connector, fields ...zap.Field) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("connector stop panicked", append(fields, zap.Any("panic", r))...)
		}
	}()
	conn.Stop()
}

// Resolve returns the live binding for brokerID. It does not block and
// returns ErrNotFound before Start completes and after Stop.
func (o *Orchestrator) Resolve(brokerID string) (ResolvedSession, error) {
	t := o.table.Load()
	if t == nil {
		return ResolvedSession{}, ErrNotFound
	}
	rs, ok := t.sessions[brokerID]
	if !ok {
		return ResolvedSession{}, ErrNotFound
	}
	return rs, nil
}

// FirstBrokerID returns the first started broker in declaration order.
func (o *Orchestrator) FirstBrokerID() (string, bool) {
	t := o.table.Load()
	if t == nil || len(t.order) == 0 {
		return "", false
	}
	return t.order[0], true
}

// Sessions lists started sessions in declaration order.
func (o *Orchestrator) Sessions() []ResolvedSession {
	t := o.table.Load()
	if t == nil {
		return nil
	}
	out := make([]ResolvedSession, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.sessions[id])
	}
	return out
}
