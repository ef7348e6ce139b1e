// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package storage

import "github.com/prometheus/client_golang/prometheus"

// Status labels for transaction metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Transactions counts storage transactions by operation and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Transactions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mue_storage_transactions_total",
		Help: "Total number of storage transactions",
	},
	[]string{"operation", "status"},
)

// RegisterMetrics registers storage metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Transactions)
}

func recordTransaction(op string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	Transactions.WithLabelValues(op, status).Inc()
}
