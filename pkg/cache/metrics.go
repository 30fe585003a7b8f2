package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by provider
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vacancy_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"provider"},
	)

	// CacheMisses tracks cache misses by provider
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vacancy_cache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"provider"},
	)

	// CacheStoredBytes tracks bytes written to the cache
	CacheStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vacancy_cache_stored_bytes_total",
			Help: "Total bytes of response entries written to the cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vacancy_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
