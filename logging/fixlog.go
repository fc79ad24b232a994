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

package logging

import (
	"bytes"
	"fmt"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"
)

type fixLogFactory struct {
	logger *zap.Logger
}

// NewFixLogFactory returns a quickfix.LogFactory that writes engine events and
// raw wire traffic to the given zap logger. Wire traffic is logged at debug.
func NewFixLogFactory(logger *zap.Logger) quickfix.LogFactory {
	return fixLogFactory{logger: OrNop(logger).Named("quickfix")}
}

func (f fixLogFactory) Create() (quickfix.Log, error) {
	return fixLog{logger: f.logger}, nil
}

func (f fixLogFactory) CreateSessionLog(sid quickfix.SessionID) (quickfix.Log, error) {
	return fixLog{logger: f.logger.With(zap.Stringer("session", sid))}, nil
}

type fixLog struct {
	logger *zap.Logger
}

// SOH is unreadable in log output.
func printable(msg []byte) string {
	return string(bytes.ReplaceAll(msg, []byte{0x01}, []byte{'|'}))
}

func (l fixLog) OnIncoming(msg []byte) {
	if ce := l.logger.Check(zap.DebugLevel, "incoming"); ce != nil {
		ce.Write(zap.String("msg", printable(msg)))
	}
}

func (l fixLog) OnOutgoing(msg []byte) {
	if ce := l.logger.Check(zap.DebugLevel, "outgoing"); ce != nil {
		ce.Write(zap.String("msg", printable(msg)))
	}
}

func (l fixLog) OnEvent(msg string) {
	l.logger.Info(msg)
}

func (l fixLog) OnEventf(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}
