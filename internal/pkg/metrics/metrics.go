package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "propertypulse",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "propertypulse",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Session metrics
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "session",
		Name:      "created_total",
		Help:      "Total browsing sessions created",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "propertypulse",
		Subsystem: "session",
		Name:      "active",
		Help:      "Sessions currently held in memory",
	})

	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "session",
		Name:      "evicted_total",
		Help:      "Sessions evicted after being idle",
	})

	// Dataset metrics
	DatasetsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "dataset",
		Name:      "loads_total",
		Help:      "Dataset uploads by outcome",
	}, []string{"outcome"})

	DatasetRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "propertypulse",
		Subsystem: "dataset",
		Name:      "rows",
		Help:      "Rows per accepted dataset",
		Buckets:   prometheus.ExponentialBuckets(10, 4, 7),
	})

	RowsWithoutCoordinates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "dataset",
		Name:      "rows_without_coordinates_total",
		Help:      "Accepted rows whose coordinates could not be used",
	})

	// Proximity and selection metrics
	ProximityEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "proximity",
		Name:      "evaluations_total",
		Help:      "Proximity filter runs by caller",
	}, []string{"view"})

	ProximityDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "propertypulse",
		Subsystem: "proximity",
		Name:      "duration_seconds",
		Help:      "Duration of a proximity filter run",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	SelectionChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "selection",
		Name:      "changes_total",
		Help:      "Selection set changes by action",
	}, []string{"action"})

	ExportsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "export",
		Name:      "created_total",
		Help:      "Spreadsheet exports generated",
	}, []string{"stored"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "propertypulse",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total export store hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total export store misses",
	}, []string{"operation"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propertypulse",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Session events published by kind and outcome",
	}, []string{"kind", "outcome"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
