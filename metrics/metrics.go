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

// Package metrics holds the gateway's prometheus collectors. All methods are
// safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	pending        prometheus.Gauge
	unmatched      prometheus.Counter
	expired        prometheus.Counter
	loggedOn       *prometheus.GaugeVec
	connectors     prometheus.Gauge
	startupFailure *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Trade capture requests by broker and outcome.",
		}, []string{"broker", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from dispatch to response.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"broker"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_responses",
			Help:      "Requests registered and awaiting a response.",
		}),
		unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmatched_responses_total",
			Help:      "Inbound responses with no pending request.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_responses_total",
			Help:      "Pending entries removed by the expiry sweep.",
		}),
		loggedOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_logged_on",
			Help:      "1 while the FIX session is logged on.",
		}, []string{"session"}),
		connectors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connectors_running",
			Help:      "Distinct initiators currently running.",
		}),
		startupFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_startup_failures_total",
			Help:      "Broker profiles that failed to start.",
		}, []string{"broker"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.latency, m.pending, m.unmatched, m.expired,
			m.loggedOn, m.connectors, m.startupFailure)
	}
	return m
}

// ObserveRequest records a finished request.
func (m *Metrics) ObserveRequest(broker, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(broker, outcome).Inc()
	m.latency.WithLabelValues(broker).Observe(elapsed.Seconds())
}

func (m *Metrics) PendingChanged(delta int) {
	if m == nil {
		return
	}
	m.pending.Add(float64(delta))
}

func (m *Metrics) Unmatched() {
	if m == nil {
		return
	}
	m.unmatched.Inc()
}

func (m *Metrics) Expired(n int) {
	if m == nil {
		return
	}
	m.expired.Add(float64(n))
}

func (m *Metrics) SessionLoggedOn(session string, on bool) {
	if m == nil {
		return
	}
	v := 0.0
	if on {
		v = 1
	}
	m.loggedOn.WithLabelValues(session).Set(v)
}

func (m *Metrics) ConnectorsRunning(n int) {
	if m == nil {
		return
	}
	m.connectors.Set(float64(n))
}

func (m *Metrics) StartupFailed(broker string) {
	if m == nil {
		return
	}
	m.startupFailure.WithLabelValues(broker).Inc()
}
