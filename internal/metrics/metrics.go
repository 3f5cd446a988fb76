// Package metrics encapsulates Prometheus instrumentation for the scheduler
// server, grounded on the teacher's internal/service/metrics_service.go.
package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service registers and serves scheduler-specific Prometheus collectors in
// place of the teacher's HTTP/DB-query metrics: run duration and outcome by
// state, colorer duration, optimizer generation counts, and cache hit ratio.
type Service struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	runDuration     *prometheus.HistogramVec
	runTotal        *prometheus.CounterVec
	colorerDuration prometheus.Observer
	optimizerGens   prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
	requestNanos   uint64
}

// New registers the collector set against a fresh registry.
func New() *Service {
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

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_run_duration_seconds",
		Help:    "Duration of a full scheduler Run.Execute call",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode", "state"})

	runTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_runs_total",
		Help: "Total scheduler runs by final state",
	}, []string{"state"})

	colorerDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_colorer_duration_seconds",
		Help:    "Duration of the DSATUR coloring pass",
		Buckets: prometheus.DefBuckets,
	})

	optimizerGens := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_optimizer_generations",
		Help:    "Generations run by the genetic optimizer per call",
		Buckets: prometheus.LinearBuckets(0, 20, 10),
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_cache_hit_ratio",
		Help: "Ratio of schedule cache hits to total lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_cache_hits_total",
		Help: "Total schedule cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_cache_misses_total",
		Help: "Total schedule cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	registry.MustRegister(
		requestDuration, requestTotal,
		runDuration, runTotal, colorerDuration, optimizerGens,
		cacheHitRatio, cacheHits, cacheMisses, goroutines,
	)

	return &Service{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runDuration:     runDuration,
		runTotal:        runTotal,
		colorerDuration: colorerDuration,
		optimizerGens:   optimizerGens,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (s *Service) Handler() http.Handler {
	if s == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return s.handler
}

// ObserveHTTPRequest records one request's duration and outcome.
func (s *Service) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	label := fmt.Sprintf("%d", status)
	s.requestDuration.WithLabelValues(method, path, label).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, label).Inc()
	atomic.AddUint64(&s.requestCount, 1)
	atomic.AddUint64(&s.requestNanos, uint64(duration.Nanoseconds()))
}

// ObserveRun records a completed Run.Execute call.
func (s *Service) ObserveRun(mode, state string, duration time.Duration) {
	if s == nil {
		return
	}
	s.runDuration.WithLabelValues(mode, state).Observe(duration.Seconds())
	s.runTotal.WithLabelValues(state).Inc()
}

// ObserveColorerDuration records one DSATUR coloring pass.
func (s *Service) ObserveColorerDuration(duration time.Duration) {
	if s == nil {
		return
	}
	s.colorerDuration.Observe(duration.Seconds())
}

// ObserveOptimizerGenerations records generations run by one optimizer call.
func (s *Service) ObserveOptimizerGenerations(generations int) {
	if s == nil {
		return
	}
	s.optimizerGens.Observe(float64(generations))
}

// RecordCacheLookup updates hit/miss counters and the derived hit ratio.
func (s *Service) RecordCacheLookup(hit bool) {
	if s == nil {
		return
	}
	if hit {
		s.cacheHits.Inc()
		atomic.AddUint64(&s.cacheHitCount, 1)
	} else {
		s.cacheMisses.Inc()
		atomic.AddUint64(&s.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&s.cacheHitCount)
	misses := atomic.LoadUint64(&s.cacheMissCount)
	if total := hits + misses; total > 0 {
		s.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}
