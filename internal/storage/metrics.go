package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vidshare_storage_operations_total",
		Help: "Remote media storage operations by kind and result",
	},
	[]string{"operation", "kind", "result"},
)

func observe(operation string, kind Kind, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	if kind == "" {
		kind = "unknown"
	}
	operationsTotal.WithLabelValues(operation, string(kind), result).Inc()
}
