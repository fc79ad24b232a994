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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brokersYAML = `
fix:
  brokers:
    - broker_id: alpha
      sender_comp_id: GW
      target_comp_id: ALPHA
      socket_connect_host: alpha.example.com
      socket_connect_port: 4198
      heartbeat_interval: 15s
      tls:
        enabled: false
      store:
        type: sql
        sql_dsn: /tmp/alpha.db
    - broker_id: beta
      config_path: sessions/shared.cfg
      session_begin_string: FIX.4.4
      session_sender_comp_id: GW
      session_target_comp_id: BETA
gateway:
  request_timeout: 5s
journal:
  path: /tmp/journal.db
`

const legacyYAML = `
fix:
  session:
    sender_comp_id: GW
    target_comp_id: LEGACY
    socket_connect_host: legacy.example.com
    socket_connect_port: 9876
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixgateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Brokers(t *testing.T) {
	cfg, err := Load(writeConfig(t, brokersYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Fix.Brokers, 2)
	alpha := cfg.Fix.Brokers[0]
	assert.Equal(t, "alpha", alpha.BrokerID)
	assert.Equal(t, "alpha.example.com", alpha.Host)
	assert.Equal(t, 4198, alpha.Port)
	assert.Equal(t, 15*time.Second, alpha.HeartbeatInterval)
	assert.False(t, alpha.TLS.IsEnabled())
	assert.Equal(t, "sql", alpha.Store.Type)

	beta := cfg.Fix.Brokers[1]
	assert.Equal(t, "sessions/shared.cfg", beta.ConfigPath)
	assert.Equal(t, "BETA", beta.SessionTargetCompID)

	assert.Nil(t, cfg.Fix.Session)
	assert.Equal(t, 5*time.Second, cfg.Gateway.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Gateway.MaxPendingAge, "default applied")
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
}

// TestLoad_LegacyResolvesToDefault exercises the full path from file to the
// synthesized "default" profile.
func TestLoad_LegacyResolvesToDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, legacyYAML))
	require.NoError(t, err)
	require.NotNil(t, cfg.Fix.Session)

	profiles := ResolveProfiles(cfg.Fix.Brokers, cfg.Fix.Session, nil)

	require.Len(t, profiles, 1)
	assert.Equal(t, DefaultBrokerID, profiles[0].BrokerID)
	assert.Equal(t, "LEGACY", profiles[0].TargetCompID)
	assert.True(t, profiles[0].TLS.IsEnabled())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FIXGW_GATEWAY_REQUEST_TIMEOUT", "2s")

	cfg, err := Load(writeConfig(t, legacyYAML))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Gateway.RequestTimeout)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestLoad_PendingAgeMustExceedTimeout rejects a sweep that could expire
// requests still inside their deadline.
func TestLoad_PendingAgeMustExceedTimeout(t *testing.T) {
	for _, age := range []string{"0s", "1s", "5s"} {
		t.Run(age, func(t *testing.T) {
			body := legacyYAML + "gateway:\n  request_timeout: 5s\n  sweep_interval: 1s\n  max_pending_age: " + age + "\n"
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "max_pending_age")
		})
	}
}

func TestLoad_PendingAgeIgnoredWithoutSweep(t *testing.T) {
	body := legacyYAML + "gateway:\n  request_timeout: 5s\n  sweep_interval: 0s\n  max_pending_age: 1s\n"
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Gateway.SweepInterval)
}

func TestLoad_DefaultPendingAgeAccepted(t *testing.T) {
	cfg, err := Load(writeConfig(t, legacyYAML))
	require.NoError(t, err)
	assert.Greater(t, cfg.Gateway.MaxPendingAge, cfg.Gateway.RequestTimeout)
}
