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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("A", "success", time.Second)
		m.PendingChanged(1)
		m.Unmatched()
		m.Expired(2)
		m.SessionLoggedOn("FIX.4.4:GW->A", true)
		m.ConnectorsRunning(1)
		m.StartupFailed("A")
	})
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test")

	m.ObserveRequest("A", "success", 50*time.Millisecond)
	m.ObserveRequest("A", "timeout", time.Second)
	m.ObserveRequest("A", "success", 20*time.Millisecond)
	m.PendingChanged(1)
	m.PendingChanged(1)
	m.PendingChanged(-1)
	m.Expired(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("A", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("A", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pending))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.expired))
}
