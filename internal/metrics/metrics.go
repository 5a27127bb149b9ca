// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MergesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oxcovid_merges_total",
		Help: "Merge operations by join kind and outcome",
	}, []string{"how", "outcome"})
	MergeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "oxcovid_merge_duration_seconds",
		Help:    "Wall time of a merge operation",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
	MergeRows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "oxcovid_merge_output_rows",
		Help:    "Rows produced by a merge",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	})
	RuleCacheFills = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oxcovid_rule_cache_fills_total",
		Help: "Column lists fetched from the backing store, by table",
	}, []string{"table"})
	StoreRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oxcovid_store_retries_total",
		Help: "Backing store retries by operation",
	}, []string{"op"})
	ColumnCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oxcovid_column_cache_hits_total",
		Help: "Column lists served from redis",
	})
	ColumnCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oxcovid_column_cache_misses_total",
		Help: "Column list lookups that missed redis",
	})
)

func init() {
	prometheus.MustRegister(MergesTotal)
	prometheus.MustRegister(MergeDuration)
	prometheus.MustRegister(MergeRows)
	prometheus.MustRegister(RuleCacheFills)
	prometheus.MustRegister(StoreRetries)
	prometheus.MustRegister(ColumnCacheHits)
	prometheus.MustRegister(ColumnCacheMisses)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
