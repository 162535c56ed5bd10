// Package metrics exposes Prometheus instrumentation for the query service.
//
//	metrics.RecordQuery("similar", "ok", time.Since(start))
//	metrics.RecordCacheHit()
//	metrics.SetCorpus(stats.NumEntities, stats.NumBuckets)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "simrec"

var (
	// QueriesTotal counts queries by operation and outcome (ok, empty, error).
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of similarity queries",
		},
		[]string{"operation", "outcome"},
	)

	// QueryDuration tracks query latency by operation.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of similarity queries in seconds",
			Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	// CacheRequestsTotal counts result cache lookups by result (hit, miss).
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Total number of result cache lookups",
		},
		[]string{"result"},
	)

	// CacheEvictionsTotal counts entries evicted from the result cache.
	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of result cache evictions",
		},
	)

	// CorpusEntities is the number of entities in the serving corpus.
	CorpusEntities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_entities",
			Help:      "Number of entities in the serving corpus",
		},
	)

	// CorpusBuckets is the number of non-empty buckets in the serving index.
	CorpusBuckets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_buckets",
			Help:      "Number of non-empty LSH buckets in the serving index",
		},
	)

	// CorpusBuildsTotal counts corpus builds by outcome (ok, error).
	CorpusBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_builds_total",
			Help:      "Total number of corpus builds",
		},
		[]string{"outcome"},
	)

	// CorpusBuildDuration tracks how long corpus builds take.
	CorpusBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "corpus_build_duration_seconds",
			Help:      "Duration of corpus builds in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)
)

// RecordQuery records the outcome and latency of one query.
func RecordQuery(operation, outcome string, d time.Duration) {
	QueriesTotal.WithLabelValues(operation, outcome).Inc()
	QueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCacheHit records a result cache hit.
func RecordCacheHit() {
	CacheRequestsTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a result cache miss.
func RecordCacheMiss() {
	CacheRequestsTotal.WithLabelValues("miss").Inc()
}

// RecordCacheEviction records one evicted cache entry.
func RecordCacheEviction() {
	CacheEvictionsTotal.Inc()
}

// SetCorpus publishes the size of the serving corpus.
func SetCorpus(entities, buckets int) {
	CorpusEntities.Set(float64(entities))
	CorpusBuckets.Set(float64(buckets))
}

// RecordBuild records a finished corpus build.
func RecordBuild(err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CorpusBuildsTotal.WithLabelValues(outcome).Inc()
	CorpusBuildDuration.Observe(d.Seconds())
}
