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
		Namespace: "trailmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trailmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trailmap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Overlay engine metrics
	ReconcilePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "overlay",
		Name:      "reconcile_passes_total",
		Help:      "Reconciliation passes by result",
	}, []string{"result"})

	OverlayEffects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "overlay",
		Name:      "effects_total",
		Help:      "Surface effects issued by reconciliation",
	}, []string{"kind"})

	OverlaysAttached = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trailmap",
		Subsystem: "overlay",
		Name:      "attached",
		Help:      "Overlays currently attached across all visualizations",
	})

	Animations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "overlay",
		Name:      "animations_total",
		Help:      "Reveal animations by outcome",
	}, []string{"outcome"})

	ActiveScopes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trailmap",
		Subsystem: "overlay",
		Name:      "active_scopes",
		Help:      "Mounted visualization scopes",
	})

	// Catalog metrics
	CatalogLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "catalog",
		Name:      "loads_total",
		Help:      "Catalog loads by source and result",
	}, []string{"source", "result"})

	CatalogLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trailmap",
		Subsystem: "catalog",
		Name:      "load_duration_seconds",
		Help:      "Duration of catalog loads",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"source"})

	ConversionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "catalog",
		Name:      "conversion_errors_total",
		Help:      "Routes dropped during geometry conversion",
	}, []string{"format"})

	CatalogRoutes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trailmap",
		Subsystem: "catalog",
		Name:      "routes",
		Help:      "Routes in the current catalog",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trailmap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailmap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trailmap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trailmap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trailmap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
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

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	// Matched structurally so this package does not import pgxpool.
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
