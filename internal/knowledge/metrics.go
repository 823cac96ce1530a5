// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package knowledge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of the engine. A nil *Metrics
// records nothing.
type Metrics struct {
	assembleDuration prometheus.Histogram
	fetchFailures    *prometheus.CounterVec
	selectedBlocks   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		assembleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "horizon",
			Subsystem: "context",
			Name:      "assemble_duration_seconds",
			Help:      "Time spent assembling a context window.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		fetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "horizon",
			Subsystem: "context",
			Name:      "fetch_failures_total",
			Help:      "Collaborator fetches that failed or timed out, by source.",
		}, []string{"source"}),
		selectedBlocks: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "horizon",
			Subsystem: "context",
			Name:      "selected_blocks",
			Help:      "Number of blocks kept per assembly.",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		}),
	}
}

func (m *Metrics) observeAssembly(d time.Duration, selected int) {
	if m == nil {
		return
	}
	m.assembleDuration.Observe(d.Seconds())
	m.selectedBlocks.Observe(float64(selected))
}

func (m *Metrics) fetchFailed(source string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(source).Inc()
}
