// Package metrics provides Prometheus metrics for the cardbase backend.
// Scrape these at /metrics for dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardbase_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardbase_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Catalog sync metrics
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardbase_sync_runs_total",
			Help: "Total number of catalog sync runs by type and final status",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardbase_sync_duration_seconds",
			Help:    "Time taken by one catalog sync run",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"type"},
	)

	SyncRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardbase_sync_records_processed_total",
			Help: "Catalog records processed by sync runs",
		},
		[]string{"type"},
	)

	SyncRecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardbase_sync_records_skipped_total",
			Help: "Catalog records skipped by sync runs (already present, or missing set)",
		},
	)

	// Scryfall client metrics
	ScryfallRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardbase_scryfall_requests_total",
			Help: "Total number of Scryfall API requests made",
		},
	)

	ScryfallRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardbase_scryfall_retries_total",
			Help: "Scryfall requests retried after a 5xx answer",
		},
	)

	ScryfallRateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardbase_scryfall_rate_limit_hits_total",
			Help: "Scryfall 429 answers observed",
		},
	)

	// Search metrics
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardbase_search_duration_seconds",
			Help:    "Card search latency by strategy",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	SearchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardbase_search_cache_hits_total",
			Help: "Card searches answered from the result cache",
		},
	)

	SearchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardbase_search_cache_misses_total",
			Help: "Card searches that went to storage",
		},
	)

	// Catalog size gauges
	CatalogCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardbase_catalog_cards",
			Help: "Number of cards in the local catalog",
		},
	)

	CatalogSets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardbase_catalog_sets",
			Help: "Number of sets in the local catalog",
		},
	)

	CatalogExtras = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardbase_catalog_extras",
			Help: "Number of cards classified as extras",
		},
	)
)

// UpdateCatalogMetrics refreshes the catalog size gauges. Called after sync
// runs; failures only leave gauges stale.
func UpdateCatalogMetrics(db *gorm.DB) {
	var cards, sets, extras int64
	if err := db.Table("cards").Count(&cards).Error; err == nil {
		CatalogCards.Set(float64(cards))
	}
	if err := db.Table("sets").Count(&sets).Error; err == nil {
		CatalogSets.Set(float64(sets))
	}
	if err := db.Table("cards").Where("is_extra = ?", true).Count(&extras).Error; err == nil {
		CatalogExtras.Set(float64(extras))
	}
}
