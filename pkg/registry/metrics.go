package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for registry operations.
var (
	connectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odoo_registry_connects_total",
		Help: "Total connection attempts by result",
	}, []string{"result"})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odoo_registry_reconnects_total",
		Help: "Total reconnects triggered by stale connections",
	})

	liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "odoo_registry_connections",
		Help: "Current number of live endpoint connections",
	})
)
