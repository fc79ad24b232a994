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
	"fmt"

	"github.com/HappyCodeDog/fix-gateway/config"
	"github.com/HappyCodeDog/fix-gateway/constants"
	"github.com/HappyCodeDog/fix-gateway/logging"
	"github.com/HappyCodeDog/fix-gateway/orchestrator"

	_ "github.com/mattn/go-sqlite3"
	"github.com/quickfixgo/quickfix"
	filestore "github.com/quickfixgo/quickfix/store/file"
	sqlstore "github.com/quickfixgo/quickfix/store/sql"
	"go.uber.org/zap"
)

// InitiatorFactory creates quickfix initiators that all deliver into App.
type InitiatorFactory struct {
	App    *App
	Logger *zap.Logger
}

// NewConnector builds an initiator for settings. The profile selects the
// message store and session log implementation.
func (f InitiatorFactory) NewConnector(profile config.BrokerProfile, settings *quickfix.Settings) (orchestrator.Connector, error) {
	storeFactory, err := NewStoreFactory(profile.Store.Type, settings)
	if err != nil {
		return nil, err
	}
	logFactory, err := NewLogFactory(profile.Log.Type, settings, f.Logger)
	if err != nil {
		return nil, err
	}

	initiator, err := quickfix.NewInitiator(f.App, storeFactory, settings, logFactory)
	if err != nil {
		return nil, fmt.Errorf("create initiator for broker %s: %w", profile.BrokerID, err)
	}
	return &Connector{
		initiator: initiator,
		app:       f.App,
		logger:    logging.OrNop(f.Logger).With(zap.String("broker_id", profile.BrokerID)),
	}, nil
}

// NewStoreFactory maps a store selector to a quickfix MessageStoreFactory.
// An empty selector means memory.
func NewStoreFactory(kind string, settings *quickfix.Settings) (quickfix.MessageStoreFactory, error) {
	switch kind {
	case "", constants.StoreMemory:
		return quickfix.NewMemoryStoreFactory(), nil
	case constants.StoreFile:
		return filestore.NewStoreFactory(settings), nil
	case constants.StoreSQL:
		return sqlstore.NewStoreFactory(settings), nil
	default:
		return nil, fmt.Errorf("unknown message store type %q", kind)
	}
}

// NewLogFactory maps a log selector to a quickfix LogFactory. An empty
// selector routes session logs into logger.
func NewLogFactory(kind string, settings *quickfix.Settings, logger *zap.Logger) (quickfix.LogFactory, error) {
	switch kind {
	case "", constants.LogZap:
		return logging.NewFixLogFactory(logger), nil
	case constants.LogFile:
		lf, err := quickfix.NewFileLogFactory(settings)
		if err != nil {
			return nil, fmt.Errorf("create file log factory: %w", err)
		}
		return lf, nil
	case constants.LogScreen:
		return quickfix.NewScreenLogFactory(), nil
	case constants.LogNone:
		return quickfix.NewNullLogFactory(), nil
	default:
		return nil, fmt.Errorf("unknown session log type %q", kind)
	}
}

// Connector wraps one quickfix initiator.
type Connector struct {
	initiator *quickfix.Initiator
	app       *App
	logger    *zap.Logger
}

func (c *Connector) Start() error {
	if err := c.initiator.Start(); err != nil {
		return fmt.Errorf("start initiator: %w", err)
	}
	c.logger.Info("initiator started")
	return nil
}

func (c *Connector) Stop() {
	c.initiator.Stop()
	c.logger.Info("initiator stopped")
}

// Send dispatches msg on sid. It fails fast with ErrNotLoggedOn instead of
// letting the engine queue a message for a disconnected session.
func (c *Connector) Send(msg *quickfix.Message, sid quickfix.SessionID) error {
	if !c.app.IsLoggedOn(sid) {
		return fmt.Errorf("send on %s: %w", sid, ErrNotLoggedOn)
	}
	return quickfix.SendToTarget(msg, sid)
}
