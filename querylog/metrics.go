// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package querylog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// logMetrics are the query log's own phase-transition metrics. The
// execution engine and semaphore's metrics are out of scope (§1); these
// three track only what the log itself observes.
type logMetrics struct {
	pushedTotal   prometheus.Counter
	evictedTotal  prometheus.Counter
	phaseDuration *prometheus.HistogramVec
}

// newLogMetrics registers the log's metrics against reg. reg may be nil, in
// which case metrics collection is a no-op (tests default to this).
func newLogMetrics(reg prometheus.Registerer) *logMetrics {
	if reg == nil {
		return nil
	}
	m := &logMetrics{
		pushedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "querylog_pushed_total",
			Help: "Number of query log entries pushed.",
		}),
		evictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "querylog_evicted_total",
			Help: "Number of query log entries evicted from the ring buffer.",
		}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "querylog_phase_duration_seconds",
			Help: "Duration observed at each query log phase transition.",
		}, []string{"phase"}),
	}
	reg.MustRegister(m.pushedTotal, m.evictedTotal, m.phaseDuration)
	return m
}

func (m *logMetrics) incPushed() {
	if m == nil {
		return
	}
	m.pushedTotal.Inc()
}

func (m *logMetrics) incEvicted() {
	if m == nil {
		return
	}
	m.evictedTotal.Inc()
}

func (m *logMetrics) observePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}
