package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for RPC client operations.
var (
	rpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odoo_rpc_requests_total",
		Help: "Total RPC requests by method and status",
	}, []string{"method", "status"})

	rpcRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odoo_rpc_request_duration_seconds",
		Help:    "RPC request duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method"})

	rpcErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odoo_rpc_errors_total",
		Help: "Total RPC errors by kind",
	}, []string{"kind"})
)
