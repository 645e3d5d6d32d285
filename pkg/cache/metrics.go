package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations.
var (
	// Hits counts cache hits.
	Hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odoo_cache_hits_total",
		Help: "Total cache hits",
	})

	// Misses counts cache misses, including lazy expiries.
	Misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odoo_cache_misses_total",
		Help: "Total cache misses",
	})

	// Evictions counts removed entries by reason (expired, invalidated).
	Evictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odoo_cache_evictions_total",
		Help: "Total cache evictions by reason",
	}, []string{"reason"})

	// Entries tracks the current number of live entries across stores.
	Entries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "odoo_cache_entries",
		Help: "Current number of cache entries",
	})
)
