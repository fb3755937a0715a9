package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsgpx",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapsgpx",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Conversion metrics
	Conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsgpx",
		Subsystem: "convert",
		Name:      "total",
		Help:      "Conversions by source kind and outcome",
	}, []string{"kind", "outcome"})

	ConversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapsgpx",
		Subsystem: "convert",
		Name:      "duration_seconds",
		Help:      "Duration of a single conversion",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"kind"})

	RoutePoints = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mapsgpx",
		Subsystem: "convert",
		Name:      "route_points",
		Help:      "Waypoints plus track points per converted route",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsgpx",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"kind"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsgpx",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"kind"})

	// Batch pipeline metrics
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsgpx",
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Batch jobs by final status",
	}, []string{"status"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapsgpx",
		Subsystem: "jobs",
		Name:      "queue_depth",
		Help:      "Jobs waiting for a worker",
	})
)

// Middleware records request metrics under the matched chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
