// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core

import "github.com/prometheus/client_golang/prometheus"

const (
	directionSent     = "sent"
	directionReceived = "received"

	statusOK    = "ok"
	statusError = "error"
)

// ISCMessages counts inter-server messages by direction, event and status.
// Use RegisterMetrics to register this with a Prometheus registry.
var ISCMessages = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mue_isc_messages_total",
		Help: "Total number of inter-server messages",
	},
	[]string{"direction", "event", "status"},
)

// DroppedEvents counts local events not delivered because a subscriber was full.
var DroppedEvents = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "mue_world_events_dropped_total",
		Help: "Total number of local world events dropped on full subscribers",
	},
)

// RegisterMetrics registers world metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ISCMessages)
	reg.MustRegister(DroppedEvents)
}

func recordISC(direction, event, status string) {
	ISCMessages.WithLabelValues(direction, event, status).Inc()
}
