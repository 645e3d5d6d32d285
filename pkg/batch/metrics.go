package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for batch operations.
var (
	chunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odoo_batch_chunks_total",
		Help: "Total chunks processed by operation",
	}, []string{"operation"})

	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odoo_batch_items_total",
		Help: "Total items processed by operation and status",
	}, []string{"operation", "status"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odoo_batch_job_duration_seconds",
		Help:    "Batch job duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"operation"})
)
