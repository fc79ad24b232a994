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

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix  = "FIXGW"
	configName = "fixgateway"
)

// Config is the complete gateway configuration.
type Config struct {
	Fix     FixConfig     `mapstructure:"fix"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Log     LoggingConfig `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Journal JournalConfig `mapstructure:"journal"`
}

// FixConfig declares the broker sessions. Brokers takes precedence over the
// legacy Session block.
type FixConfig struct {
	Session *LegacySession  `mapstructure:"session"`
	Brokers []BrokerProfile `mapstructure:"brokers"`

	// ResourceDir is searched for shared settings files before the paths are
	// tried as plain files.
	ResourceDir string `mapstructure:"resource_dir"`
}

type GatewayConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	MaxPendingAge  time.Duration `mapstructure:"max_pending_age"`
	LogonWait      time.Duration `mapstructure:"logon_wait"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig controls the prometheus listener. An empty Address disables it.
type MetricsConfig struct {
	Address   string `mapstructure:"address"`
	Namespace string `mapstructure:"namespace"`
}

// JournalConfig controls the sqlite request journal. An empty Path disables it.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.request_timeout", 30*time.Second)
	v.SetDefault("gateway.sweep_interval", 30*time.Second)
	v.SetDefault("gateway.max_pending_age", 5*time.Minute)
	v.SetDefault("gateway.logon_wait", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.address", "")
	v.SetDefault("metrics.namespace", "fixgateway")
	v.SetDefault("journal.path", "")
}

// Load reads the configuration file at path (or searches the default
// locations when path is empty) and applies FIXGW_* environment overrides.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fixgateway")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Gateway.RequestTimeout <= 0 {
		return nil, errors.New("gateway.request_timeout must be positive")
	}
	if cfg.Gateway.SweepInterval > 0 && cfg.Gateway.MaxPendingAge <= cfg.Gateway.RequestTimeout {
		return nil, fmt.Errorf("gateway.max_pending_age (%s) must exceed gateway.request_timeout (%s)",
			cfg.Gateway.MaxPendingAge, cfg.Gateway.RequestTimeout)
	}
	return &cfg, nil
}
