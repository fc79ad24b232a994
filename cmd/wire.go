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

package cmd

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/HappyCodeDog/fix-gateway/config"
	"github.com/HappyCodeDog/fix-gateway/database"
	"github.com/HappyCodeDog/fix-gateway/fixclient"
	"github.com/HappyCodeDog/fix-gateway/gateway"
	"github.com/HappyCodeDog/fix-gateway/logging"
	"github.com/HappyCodeDog/fix-gateway/metrics"
	"github.com/HappyCodeDog/fix-gateway/orchestrator"
	"github.com/HappyCodeDog/fix-gateway/registry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type app struct {
	cfg    *config.Config
	logger *zap.Logger

	promRegistry *prometheus.Registry
	metrics      *metrics.Metrics
	journal      *database.Journal

	pending      *registry.Registry[*fixclient.Report]
	fixApp       *fixclient.App
	orchestrator *orchestrator.Orchestrator
	gateway      *gateway.Gateway
}

func wireApp(opts rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry, cfg.Metrics.Namespace)

	pending := registry.New[*fixclient.Report](logger, registry.WithObserver[*fixclient.Report](m))
	fixApp := fixclient.NewApp(pending, m, logger)

	var resources fs.FS
	if cfg.Fix.ResourceDir != "" {
		resources = os.DirFS(cfg.Fix.ResourceDir)
	}
	orch := orchestrator.New(
		config.NewResolver(resources, logger),
		fixclient.InitiatorFactory{App: fixApp, Logger: logger},
		m,
		logger,
	)

	gwOpts := []gateway.Option{
		gateway.WithMetrics(m),
		gateway.WithDefaultTimeout(cfg.Gateway.RequestTimeout),
	}
	var journal *database.Journal
	if cfg.Journal.Path != "" {
		journal, err = database.OpenJournal(cfg.Journal.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("wire request journal: %w", err)
		}
		gwOpts = append(gwOpts, gateway.WithJournal(journal))
	}

	return &app{
		cfg:          cfg,
		logger:       logger,
		promRegistry: promRegistry,
		metrics:      m,
		journal:      journal,
		pending:      pending,
		fixApp:       fixApp,
		orchestrator: orch,
		gateway:      gateway.New(orch, pending, logger, gwOpts...),
	}, nil
}

func (a *app) profiles() []config.BrokerProfile {
	return config.ResolveProfiles(a.cfg.Fix.Brokers, a.cfg.Fix.Session, a.logger)
}

// close stops every session and releases the journal.
func (a *app) close() error {
	a.orchestrator.Stop()

	var err error
	if a.journal != nil {
		err = multierr.Append(err, a.journal.Close())
	}
	_ = a.logger.Sync()
	return err
}
