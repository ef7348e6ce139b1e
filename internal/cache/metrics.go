// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/muemud/mue/internal/world"
)

// Lookups counts imitate lookups by kind and result.
// Use RegisterMetrics to register this with a Prometheus registry.
var Lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mue_cache_lookups_total",
		Help: "Total number of object cache lookups",
	},
	[]string{"kind", "result"},
)

// Evictions counts objects removed from the cache by kind.
var Evictions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mue_cache_evictions_total",
		Help: "Total number of objects evicted from the object cache",
	},
	[]string{"kind"},
)

// RegisterMetrics registers cache metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Lookups)
	reg.MustRegister(Evictions)
}

func recordHit(kind world.Kind) {
	Lookups.WithLabelValues(kind.String(), "hit").Inc()
}

func recordMiss(kind world.Kind) {
	Lookups.WithLabelValues(kind.String(), "miss").Inc()
}

func recordEviction(kind world.Kind) {
	Evictions.WithLabelValues(kind.String()).Inc()
}
