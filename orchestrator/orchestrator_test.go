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

package orchestrator

import (
	"errors"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/HappyCodeDog/fix-gateway/config"

	"github.com/quickfixgo/quickfix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sharedSettings = `[DEFAULT]
ConnectionType=initiator
HeartBtInt=30
StartTime=00:00:00
EndTime=00:00:00
SocketConnectHost=127.0.0.1
SocketConnectPort=9876

[SESSION]
BeginString=FIX.4.4
SenderCompID=GW
TargetCompID=ZETA

[SESSION]
BeginString=FIX.4.4
SenderCompID=GW
TargetCompID=ALPHA
`

type fakeConnector struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
}

func (c *fakeConnector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	return c.startErr
}

func (c *fakeConnector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *fakeConnector) Send(*quickfix.Message, quickfix.SessionID) error { return nil }

func (c *fakeConnector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts, c.stops
}

// fakeFactory records every connector it creates. Broker ids listed in
// failStart get a connector whose Start fails; ids in panicOn make
// NewConnector panic.
type fakeFactory struct {
	created   []*fakeConnector
	failStart map[string]bool
	panicOn   map[string]bool
}

func (f *fakeFactory) NewConnector(p config.BrokerProfile, _ *quickfix.Settings) (Connector, error) {
	if f.panicOn[p.BrokerID] {
		panic("factory exploded for " + p.BrokerID)
	}
	c := &fakeConnector{}
	if f.failStart[p.BrokerID] {
		c.startErr = errors.New("connect refused")
	}
	f.created = append(f.created, c)
	return c, nil
}

type countingObserver struct {
	running  int
	failures []string
}

func (o *countingObserver) ConnectorsRunning(n int)       { o.running = n }
func (o *countingObserver) StartupFailed(brokerID string) { o.failures = append(o.failures, brokerID) }

// headerlessSettings has a key before any section header.
const headerlessSettings = `ConnectionType=initiator
[SESSION]
BeginString=FIX.4.4
SenderCompID=GW
TargetCompID=ZETA
`

func newResolver() *config.Resolver {
	return config.NewResolver(fstest.MapFS{
		"sessions/shared.cfg":     &fstest.MapFile{Data: []byte(sharedSettings)},
		"sessions/headerless.cfg": &fstest.MapFile{Data: []byte(headerlessSettings)},
	}, nil)
}

func programmatic(id string) config.BrokerProfile {
	return config.BrokerProfile{
		BrokerID: id,
		Endpoint: config.Endpoint{
			SenderCompID: "GW",
			TargetCompID: "BROKER_" + id,
			Host:         "fix.example.com",
			Port:         4198,
		},
	}
}

func shared(id, target string) config.BrokerProfile {
	p := config.BrokerProfile{BrokerID: id, ConfigPath: "sessions/shared.cfg"}
	if target != "" {
		p.SessionBeginString = "FIX.4.4"
		p.SessionSenderCompID = "GW"
		p.SessionTargetCompID = target
	}
	return p
}

func profiles(declared ...config.BrokerProfile) []config.BrokerProfile {
	return config.ResolveProfiles(declared, nil, nil)
}

// TestStart_SingleProgrammaticProfile covers one broker without a shared source.
func TestStart_SingleProgrammaticProfile(t *testing.T) {
	factory := &fakeFactory{}
	o := New(newResolver(), factory, nil, nil)

	require.NoError(t, o.Start(profiles(programmatic("A"))))

	rs, err := o.Resolve("A")
	require.NoError(t, err)
	assert.Equal(t, "BROKER_A", rs.SessionID.TargetCompID)
	require.Len(t, factory.created, 1)
	assert.Same(t, factory.created[0], rs.Connector)
}

func TestStart_DistinctSourcesGetDistinctConnectors(t *testing.T) {
	factory := &fakeFactory{}
	o := New(newResolver(), factory, nil, nil)

	require.NoError(t, o.Start(profiles(programmatic("A"), programmatic("B"), programmatic("C"))))

	assert.Len(t, factory.created, 3)
	for _, c := range factory.created {
		starts, _ := c.counts()
		assert.Equal(t, 1, starts)
	}
}

// TestStart_SharedSourceSharesConnector verifies two brokers on one path get
// one connector and their own session identities.
func TestStart_SharedSourceSharesConnector(t *testing.T) {
	factory := &fakeFactory{}
	o := New(newResolver(), factory, nil, nil)

	require.NoError(t, o.Start(profiles(shared("A", ""), shared("B", "ALPHA"))))

	require.Len(t, factory.created, 1)
	a, err := o.Resolve("A")
	require.NoError(t, err)
	b, err := o.Resolve("B")
	require.NoError(t, err)

	assert.Same(t, a.Connector, b.Connector)
	assert.Equal(t, "ZETA", a.SessionID.TargetCompID, "first declared session")
	assert.Equal(t, "ALPHA", b.SessionID.TargetCompID)
	assert.Equal(t, "sessions/shared.cfg", a.SourcePath)
}

// TestStop_StopsSharedConnectorOnce verifies teardown is per connector, not per broker.
func TestStop_StopsSharedConnectorOnce(t *testing.T) {
	factory := &fakeFactory{}
	obs := &countingObserver{}
	o := New(newResolver(), factory, obs, nil)

	require.NoError(t, o.Start(profiles(shared("A", ""), shared("B", "ALPHA"), programmatic("C"))))
	require.Len(t, factory.created, 2)
	assert.Equal(t, 2, obs.running)

	o.Stop()

	for _, c := range factory.created {
		_, stops := c.counts()
		assert.Equal(t, 1, stops)
	}
	for _, id := range []string{"A", "B", "C"} {
		_, err := o.Resolve(id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
	assert.Equal(t, 0, obs.running)
	assert.Empty(t, o.Sessions())
}

// TestStart_FailureIsIsolated verifies a broken profile does not stop the
// brokers declared after it.
func TestStart_FailureIsIsolated(t *testing.T) {
	factory := &fakeFactory{failStart: map[string]bool{"B": true}}
	obs := &countingObserver{}
	o := New(newResolver(), factory, obs, nil)

	missing := config.BrokerProfile{BrokerID: "X", ConfigPath: "sessions/missing.cfg"}
	require.NoError(t, o.Start(profiles(missing, programmatic("A"), programmatic("B"), programmatic("C"))))

	_, err := o.Resolve("X")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = o.Resolve("B")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = o.Resolve("A")
	assert.NoError(t, err)
	_, err = o.Resolve("C")
	assert.NoError(t, err)

	assert.Equal(t, []string{"X", "B"}, obs.failures)
	assert.Equal(t, 2, obs.running)
}

// TestStart_MalformedSourceIsIsolated verifies a settings file that quickfix
// cannot parse fails only the broker that names it.
func TestStart_MalformedSourceIsIsolated(t *testing.T) {
	factory := &fakeFactory{}
	obs := &countingObserver{}
	o := New(newResolver(), factory, obs, nil)

	bad := config.BrokerProfile{BrokerID: "BAD", ConfigPath: "sessions/headerless.cfg"}
	require.NotPanics(t, func() {
		require.NoError(t, o.Start(profiles(bad, programmatic("A"))))
	})

	_, err := o.Resolve("BAD")
	assert.ErrorIs(t, err, ErrNotFound)
	rs, err := o.Resolve("A")
	require.NoError(t, err)
	assert.Equal(t, "BROKER_A", rs.SessionID.TargetCompID)

	assert.Equal(t, []string{"BAD"}, obs.failures)
	assert.Equal(t, 1, obs.running)
}

func TestStart_FactoryPanicIsIsolated(t *testing.T) {
	factory := &fakeFactory{panicOn: map[string]bool{"A": true}}
	obs := &countingObserver{}
	o := New(newResolver(), factory, obs, nil)

	require.NotPanics(t, func() {
		require.NoError(t, o.Start(profiles(programmatic("A"), programmatic("B"))))
	})

	_, err := o.Resolve("A")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = o.Resolve("B")
	assert.NoError(t, err)
	assert.Equal(t, []string{"A"}, obs.failures)

	o.Stop()
	_, stops := factory.created[0].counts()
	assert.Equal(t, 1, stops)
}

func TestResolve_BeforeStart(t *testing.T) {
	o := New(newResolver(), &fakeFactory{}, nil, nil)

	_, err := o.Resolve("A")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := o.FirstBrokerID()
	assert.False(t, ok)
}

func TestStart_Twice(t *testing.T) {
	o := New(newResolver(), &fakeFactory{}, nil, nil)
	require.NoError(t, o.Start(profiles(programmatic("A"))))

	assert.ErrorIs(t, o.Start(profiles(programmatic("B"))), ErrAlreadyStarted)
}

func TestStart_RestartAfterStop(t *testing.T) {
	factory := &fakeFactory{}
	o := New(newResolver(), factory, nil, nil)

	require.NoError(t, o.Start(profiles(shared("A", ""))))
	o.Stop()
	require.NoError(t, o.Start(profiles(shared("A", ""))))

	_, err := o.Resolve("A")
	require.NoError(t, err)
	assert.Len(t, factory.created, 2, "path cache cleared by Stop")
}

func TestFirstBrokerID_DeclarationOrder(t *testing.T) {
	factory := &fakeFactory{failStart: map[string]bool{"A": true}}
	o := New(newResolver(), factory, nil, nil)

	require.NoError(t, o.Start(profiles(programmatic("A"), programmatic("B"), programmatic("C"))))

	id, ok := o.FirstBrokerID()
	require.True(t, ok)
	assert.Equal(t, "B", id)

	var ids []string
	for _, rs := range o.Sessions() {
		ids = append(ids, rs.BrokerID)
	}
	assert.Equal(t, []string{"B", "C"}, ids)
}

func TestStart_DuplicateBrokerIDSkipped(t *testing.T) {
	factory := &fakeFactory{}
	o := New(newResolver(), factory, nil, nil)

	first := programmatic("A")
	second := programmatic("A")
	second.TargetCompID = "OTHER"
	require.NoError(t, o.Start(profiles(first, second)))

	rs, err := o.Resolve("A")
	require.NoError(t, err)
	assert.Equal(t, "BROKER_A", rs.SessionID.TargetCompID)
	assert.Len(t, factory.created, 1)
}

func TestStop_WithoutStart(t *testing.T) {
	o := New(newResolver(), &fakeFactory{}, nil, nil)
	assert.NotPanics(t, o.Stop)
}
