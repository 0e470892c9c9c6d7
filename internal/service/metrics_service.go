package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/competition-approval-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache, workflow and ledger activity.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	transitions     *prometheus.CounterVec
	ledgerAdjust    *prometheus.CounterVec
	ledgerPoints    *prometheus.CounterVec
	ledgerRejected  prometheus.Counter
	conflicts       *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transitions_total",
		Help: "Committed approval state transitions",
	}, []string{"kind", "from", "to"})

	ledgerAdjust := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_adjustments_total",
		Help: "Performance score adjustments by reason",
	}, []string{"reason"})

	ledgerPoints := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_points_total",
		Help: "Absolute performance points moved, split by direction",
	}, []string{"direction"})

	ledgerRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_insufficient_balance_total",
		Help: "Debits rejected because the score would drop below zero",
	})

	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_conflicts_total",
		Help: "Writes that lost a compare-and-swap or hit a unique constraint",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		transitions, ledgerAdjust, ledgerPoints, ledgerRejected, conflicts, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		transitions:     transitions,
		ledgerAdjust:    ledgerAdjust,
		ledgerPoints:    ledgerPoints,
		ledgerRejected:  ledgerRejected,
		conflicts:       conflicts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordTransition counts a committed state change.
func (m *MetricsService) RecordTransition(kind string, from, to models.ApprovalStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, string(from), string(to)).Inc()
}

// RecordLedgerEntry counts a committed score adjustment.
func (m *MetricsService) RecordLedgerEntry(entry models.LedgerEntry) {
	if m == nil {
		return
	}
	m.ledgerAdjust.WithLabelValues(string(entry.Reason)).Inc()
	if entry.Delta >= 0 {
		m.ledgerPoints.WithLabelValues("credit").Add(entry.Delta)
	} else {
		m.ledgerPoints.WithLabelValues("debit").Add(-entry.Delta)
	}
}

// RecordInsufficientBalance counts a rejected debit.
func (m *MetricsService) RecordInsufficientBalance() {
	if m == nil {
		return
	}
	m.ledgerRejected.Inc()
}

// RecordConflict counts a lost race or uniqueness violation.
func (m *MetricsService) RecordConflict(kind string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(kind).Inc()
}
