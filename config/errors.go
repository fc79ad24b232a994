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

import "fmt"

// ConfigError reports a bad or missing configuration source or an
// unresolvable session identity.
type ConfigError struct {
	BrokerID string
	Path     string
	Msg      string
	Err      error
}

func (e *ConfigError) Error() string {
	s := "config"
	if e.BrokerID != "" {
		s += fmt.Sprintf(" broker %q", e.BrokerID)
	}
	if e.Path != "" {
		s += fmt.Sprintf(" source %q", e.Path)
	}
	s += ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
