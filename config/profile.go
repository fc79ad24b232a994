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

// Package config loads gateway configuration and resolves broker profiles
// into quickfix session settings.
package config

import (
	"strings"
	"time"

	"github.com/HappyCodeDog/fix-gateway/constants"
)

// DefaultBrokerID names the profile synthesized from a legacy single-session
// declaration.
const DefaultBrokerID = "default"

// TLSConfig holds transport-security parameters. Enabled defaults to true.
type TLSConfig struct {
	Enabled            *bool  `mapstructure:"enabled"`
	MinVersion         string `mapstructure:"min_version"` // TLS10, TLS11, TLS12, TLS13
	CAFile             string `mapstructure:"ca_file"`
	CertificateFile    string `mapstructure:"certificate_file"`
	PrivateKeyFile     string `mapstructure:"private_key_file"`
	ServerName         string `mapstructure:"server_name"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// IsEnabled reports whether TLS is on, treating an unset flag as enabled.
func (t TLSConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// StoreConfig selects the quickfix message store.
type StoreConfig struct {
	Type      string `mapstructure:"type"` // memory, file, sql
	Path      string `mapstructure:"path"` // file store directory
	SQLDriver string `mapstructure:"sql_driver"`
	SQLDSN    string `mapstructure:"sql_dsn"`
}

// LogConfig selects the quickfix session log.
type LogConfig struct {
	Type string `mapstructure:"type"` // zap, file, screen, none
	Path string `mapstructure:"path"` // file log directory
}

// Endpoint is the connection block shared by broker profiles and the legacy
// single-session declaration.
type Endpoint struct {
	SenderCompID      string        `mapstructure:"sender_comp_id"`
	TargetCompID      string        `mapstructure:"target_comp_id"`
	Host              string        `mapstructure:"socket_connect_host"`
	Port              int           `mapstructure:"socket_connect_port"`
	BeginString       string        `mapstructure:"begin_string"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
	DataDictionary    string        `mapstructure:"data_dictionary"`
	TLS               TLSConfig     `mapstructure:"tls"`
	Store             StoreConfig   `mapstructure:"store"`
	Log               LogConfig     `mapstructure:"log"`
}

// BrokerProfile is the logical, user-facing definition of one counterparty
// connection.
type BrokerProfile struct {
	BrokerID string   `mapstructure:"broker_id"`
	Endpoint `mapstructure:",squash"`

	// ConfigPath references a shared quickfix settings file. Profiles that
	// name the same path share one connector.
	ConfigPath string `mapstructure:"config_path"`

	// Session identity used to pick a session out of ConfigPath.
	SessionBeginString  string `mapstructure:"session_begin_string"`
	SessionSenderCompID string `mapstructure:"session_sender_comp_id"`
	SessionTargetCompID string `mapstructure:"session_target_comp_id"`
}

// LegacySession is the single-session declaration kept for older configs.
type LegacySession struct {
	Endpoint `mapstructure:",squash"`
}

// identityFields returns how many of the three session identity fields are set.
func (p BrokerProfile) identityFields() int {
	n := 0
	for _, v := range []string{p.SessionBeginString, p.SessionSenderCompID, p.SessionTargetCompID} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// withDefaults fills unset endpoint fields with the gateway defaults.
func (e Endpoint) withDefaults() Endpoint {
	if e.BeginString == "" {
		e.BeginString = constants.DefaultBeginString
	}
	if e.HeartbeatInterval <= 0 {
		e.HeartbeatInterval = 30 * time.Second
	}
	if e.ReconnectInterval <= 0 {
		e.ReconnectInterval = 60 * time.Second
	}
	if e.TLS.MinVersion == "" {
		e.TLS.MinVersion = "TLS12"
	}
	if e.Store.Type == "" {
		e.Store.Type = constants.StoreMemory
	}
	if e.Store.Path == "" {
		e.Store.Path = "logs"
	}
	if e.Store.Type == constants.StoreSQL && e.Store.SQLDriver == "" {
		e.Store.SQLDriver = "sqlite3"
	}
	if e.Log.Type == "" {
		e.Log.Type = constants.LogZap
	}
	if e.Log.Path == "" {
		e.Log.Path = "logs"
	}
	return e
}
