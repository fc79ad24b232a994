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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HappyCodeDog/fix-gateway/constants"
	"github.com/HappyCodeDog/fix-gateway/logging"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"
)

// ResolveProfiles decides which broker profiles to instantiate. A non-empty
// declared list wins and keeps its order; otherwise a legacy declaration is
// turned into a single "default" profile. Profiles without an id are skipped.
func ResolveProfiles(declared []BrokerProfile, legacy *LegacySession, logger *zap.Logger) []BrokerProfile {
	logger = logging.OrNop(logger)

	if len(declared) == 0 {
		if legacy == nil {
			logger.Warn("no broker profiles and no legacy session configured")
			return nil
		}
		logger.Info("using legacy session configuration", zap.String("broker_id", DefaultBrokerID))
		return []BrokerProfile{{BrokerID: DefaultBrokerID, Endpoint: legacy.Endpoint.withDefaults()}}
	}

	profiles := make([]BrokerProfile, 0, len(declared))
	for i, p := range declared {
		p.BrokerID = strings.TrimSpace(p.BrokerID)
		if p.BrokerID == "" {
			logger.Warn("skipping broker profile without broker_id", zap.Int("index", i))
			continue
		}
		p.Endpoint = p.Endpoint.withDefaults()
		profiles = append(profiles, p)
	}
	return profiles
}

// Source is a parsed quickfix settings file.
type Source struct {
	Path     string
	Settings *quickfix.Settings

	// Sessions lists the file's sessions in declaration order.
	Sessions []quickfix.SessionID
}

// Resolved is a profile paired with the settings its connector runs and the
// session identity the profile uses on that connector.
type Resolved struct {
	Profile    BrokerProfile
	Settings   *quickfix.Settings
	SessionID  quickfix.SessionID
	SourcePath string // empty when the settings were built from the profile
}

// Resolver turns broker profiles into quickfix settings. Shared settings files
// are parsed at most once per path.
type Resolver struct {
	resources fs.FS
	logger    *zap.Logger

	mu      sync.Mutex
	sources map[string]*Source
}

// NewResolver creates a Resolver. resources, when non-nil, is searched for
// settings files before the OS filesystem.
func NewResolver(resources fs.FS, logger *zap.Logger) *Resolver {
	return &Resolver{
		resources: resources,
		logger:    logging.OrNop(logger),
		sources:   make(map[string]*Source),
	}
}

// Reset drops every cached source.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = make(map[string]*Source)
}

// LoadSource returns the parsed settings file at path, reading it on first use.
func (r *Resolver) LoadSource(path string) (*Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if src, ok := r.sources[path]; ok {
		return src, nil
	}

	raw, origin, err := r.read(path)
	if err != nil {
		return nil, err
	}

	settings, err := parseSettings(bytes.NewReader(raw))
	if err != nil {
		return nil, &ConfigError{Path: path, Msg: "parse settings", Err: err}
	}
	order, err := declaredSessions(raw, settings)
	if err != nil {
		return nil, &ConfigError{Path: path, Msg: "parse session blocks", Err: err}
	}

	src := &Source{Path: path, Settings: settings, Sessions: order}
	r.sources[path] = src
	r.logger.Info("loaded session settings",
		zap.String("path", path),
		zap.String("origin", origin),
		zap.Int("sessions", len(order)))
	return src, nil
}

func (r *Resolver) read(path string) ([]byte, string, error) {
	if r.resources != nil {
		name := strings.TrimPrefix(path, "/")
		if fs.ValidPath(name) {
			raw, err := fs.ReadFile(r.resources, name)
			if err == nil {
				return raw, "resource", nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, "", &ConfigError{Path: path, Msg: "read bundled resource", Err: err}
			}
		}
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		return raw, "file", nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", &ConfigError{Path: path, Msg: "not found as bundled resource or file"}
	}
	return nil, "", &ConfigError{Path: path, Msg: "read file", Err: err}
}

// Resolve produces the settings and session identity for one profile.
func (r *Resolver) Resolve(p BrokerProfile) (Resolved, error) {
	if p.ConfigPath == "" {
		settings, sid, err := buildSettings(p)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{Profile: p, Settings: settings, SessionID: sid}, nil
	}

	src, err := r.LoadSource(p.ConfigPath)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) && cfgErr.BrokerID == "" {
			withBroker := *cfgErr
			withBroker.BrokerID = p.BrokerID
			return Resolved{}, &withBroker
		}
		return Resolved{}, err
	}

	sid, err := selectSession(p, src)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Profile: p, Settings: src.Settings, SessionID: sid, SourcePath: src.Path}, nil
}

// selectSession picks the profile's session out of a shared source: an exact
// match when all identity fields are given, the first declared session when
// none are. A partial identity is rejected.
func selectSession(p BrokerProfile, src *Source) (quickfix.SessionID, error) {
	if len(src.Sessions) == 0 {
		return quickfix.SessionID{}, &ConfigError{BrokerID: p.BrokerID, Path: src.Path, Msg: "source declares no sessions"}
	}

	switch p.identityFields() {
	case 0:
		return src.Sessions[0], nil
	case 3:
		for _, sid := range src.Sessions {
			if sid.BeginString == p.SessionBeginString &&
				sid.SenderCompID == p.SessionSenderCompID &&
				sid.TargetCompID == p.SessionTargetCompID {
				return sid, nil
			}
		}
		return quickfix.SessionID{}, &ConfigError{
			BrokerID: p.BrokerID,
			Path:     src.Path,
			Msg: fmt.Sprintf("no session matches begin_string=%q sender_comp_id=%q target_comp_id=%q",
				p.SessionBeginString, p.SessionSenderCompID, p.SessionTargetCompID),
		}
	default:
		return quickfix.SessionID{}, &ConfigError{
			BrokerID: p.BrokerID,
			Path:     src.Path,
			Msg:      "session_begin_string, session_sender_comp_id and session_target_comp_id must be set together",
		}
	}
}

// parseSettings is quickfix.ParseSettings with its panics turned into errors.
// quickfix dereferences a nil section when a key=value line precedes the
// first [DEFAULT] or [SESSION] header.
func parseSettings(r io.Reader) (settings *quickfix.Settings, err error) {
	defer func() {
		if p := recover(); p != nil {
			settings, err = nil, fmt.Errorf("malformed settings: %v", p)
		}
	}()
	return quickfix.ParseSettings(r)
}

// declaredSessions recovers the declaration order of [SESSION] blocks, which
// quickfix.Settings keeps in a map. Each block is parsed on its own together
// with the [DEFAULT] block so ids are built exactly as quickfix builds them.
func declaredSessions(raw []byte, all *quickfix.Settings) ([]quickfix.SessionID, error) {
	var defaults bytes.Buffer
	var blocks []*bytes.Buffer
	var cur *bytes.Buffer

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.ToUpper(strings.TrimSpace(line)) {
		case "[DEFAULT]":
			cur = &defaults
		case "[SESSION]":
			cur = new(bytes.Buffer)
			blocks = append(blocks, cur)
		}
		if cur != nil {
			cur.WriteString(line)
			cur.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	known := all.SessionSettings()
	seen := make(map[quickfix.SessionID]struct{}, len(known))
	order := make([]quickfix.SessionID, 0, len(known))
	for _, block := range blocks {
		single, err := parseSettings(io.MultiReader(bytes.NewReader(defaults.Bytes()), bytes.NewReader(block.Bytes())))
		if err != nil {
			return nil, err
		}
		for sid := range single.SessionSettings() {
			if _, ok := known[sid]; !ok {
				continue
			}
			if _, dup := seen[sid]; dup {
				continue
			}
			seen[sid] = struct{}{}
			order = append(order, sid)
		}
	}

	// Anything the block scan missed goes last in a stable order.
	var rest []quickfix.SessionID
	for sid := range known {
		if _, ok := seen[sid]; !ok {
			rest = append(rest, sid)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].String() < rest[j].String() })
	return append(order, rest...), nil
}

// buildSettings creates initiator settings from the profile's discrete fields.
func buildSettings(p BrokerProfile) (*quickfix.Settings, quickfix.SessionID, error) {
	switch {
	case p.SenderCompID == "" || p.TargetCompID == "":
		return nil, quickfix.SessionID{}, &ConfigError{BrokerID: p.BrokerID, Msg: "sender_comp_id and target_comp_id are required"}
	case p.Host == "" || p.Port <= 0:
		return nil, quickfix.SessionID{}, &ConfigError{BrokerID: p.BrokerID, Msg: "socket_connect_host and socket_connect_port are required"}
	}

	settings := quickfix.NewSettings()

	global := settings.GlobalSettings()
	global.Set(constants.SettingStartTime, constants.DefaultSessionTime)
	global.Set(constants.SettingEndTime, constants.DefaultSessionTime)
	global.Set(constants.SettingHeartBtInt, seconds(p.HeartbeatInterval))
	global.Set(constants.SettingReconnectInterval, seconds(p.ReconnectInterval))
	global.Set(constants.SettingFileStorePath, p.Store.Path)
	global.Set(constants.SettingFileLogPath, p.Log.Path)
	if p.Store.Type == constants.StoreSQL {
		global.Set(constants.SettingSQLStoreDriver, p.Store.SQLDriver)
		global.Set(constants.SettingSQLStoreDataSourceName, p.Store.SQLDSN)
	}

	if p.TLS.IsEnabled() {
		global.Set(constants.SettingSocketUseSSL, "Y")
		global.Set(constants.SettingSocketMinimumTLS, p.TLS.MinVersion)
		setIfNotEmpty(global, constants.SettingSocketCAFile, p.TLS.CAFile)
		setIfNotEmpty(global, constants.SettingSocketCertificateFile, p.TLS.CertificateFile)
		setIfNotEmpty(global, constants.SettingSocketPrivateKeyFile, p.TLS.PrivateKeyFile)
		setIfNotEmpty(global, constants.SettingSocketServerName, p.TLS.ServerName)
		if p.TLS.InsecureSkipVerify {
			global.Set(constants.SettingSocketInsecureSkip, "Y")
		}
	} else {
		global.Set(constants.SettingSocketUseSSL, "N")
	}

	session := quickfix.NewSessionSettings()
	session.Set(constants.SettingBeginString, p.BeginString)
	session.Set(constants.SettingSenderCompID, p.SenderCompID)
	session.Set(constants.SettingTargetCompID, p.TargetCompID)
	session.Set(constants.SettingSocketConnectHost, p.Host)
	session.Set(constants.SettingSocketConnectPort, strconv.Itoa(p.Port))
	setIfNotEmpty(session, constants.SettingDataDictionary, p.DataDictionary)

	sid, err := settings.AddSession(session)
	if err != nil {
		return nil, quickfix.SessionID{}, &ConfigError{BrokerID: p.BrokerID, Msg: "add session", Err: err}
	}
	return settings, sid, nil
}

func setIfNotEmpty(ss *quickfix.SessionSettings, key, value string) {
	if value != "" {
		ss.Set(key, value)
	}
}

func seconds(d time.Duration) string {
	return strconv.Itoa(int(d / time.Second))
}
