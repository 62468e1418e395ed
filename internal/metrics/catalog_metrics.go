package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsInserted is a Prometheus counter for rows inserted by reconciliation runs.
	RowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rows_inserted_total",
		Help: "The total number of catalog rows inserted by reconciliation",
	})

	// RowsUpdated is a Prometheus counter for rows updated by reconciliation runs.
	RowsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rows_updated_total",
		Help: "The total number of catalog rows updated by reconciliation",
	})

	// RowsSkipped is a Prometheus counter for rows dropped by reconciliation runs.
	RowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rows_skipped_total",
		Help: "The total number of catalog rows skipped by reconciliation",
	})

	// SnapshotsPublished is a Prometheus counter for published snapshot documents.
	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_snapshots_published_total",
		Help: "The total number of catalog snapshots published",
	})

	// CacheRefreshes is a Prometheus counter for storefront cache refreshes.
	CacheRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cache_refreshes_total",
		Help: "The total number of storefront cache refreshes",
	})

	// CacheFallbacks is a Prometheus counter for cache loads that could not
	// reach the snapshot source and fell back to a stale copy.
	CacheFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cache_fallbacks_total",
		Help: "The total number of storefront cache loads served from a fallback copy",
	})
)
