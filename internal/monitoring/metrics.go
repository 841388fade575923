package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Métriques Prometheus du service
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	CombatsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "combats_started_total",
			Help: "Total number of combats started",
		},
		[]string{"mode"},
	)

	CombatsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "combats_finished_total",
			Help: "Total number of combats finished",
		},
		[]string{"mode", "reason"},
	)

	MatchesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvp_matches_created_total",
			Help: "Total number of PvP matches created by the matchmaker",
		},
		[]string{"opponent"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pvp_queue_depth",
			Help: "Current number of tickets in the matchmaking queue",
		},
	)

	Goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runtime_goroutines",
			Help: "Current number of goroutines",
		},
	)

	HeapAllocBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runtime_heap_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)
)

// Metrics porte le registre Prometheus du service
type Metrics struct {
	registry *prometheus.Registry
}

// NewMetrics crée le registre et y enregistre toutes les métriques
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CombatsStartedTotal,
		CombatsFinishedTotal,
		MatchesCreatedTotal,
		QueueDepth,
		Goroutines,
		HeapAllocBytes,
	)

	logrus.Info("Prometheus metrics initialized")
	return &Metrics{registry: registry}
}

// Handler retourne le handler d'exposition Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instrumente chaque requête HTTP
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, endpoint).
			Observe(time.Since(start).Seconds())
	}
}

// StartSnapshotRoutine rafraîchit périodiquement les jauges runtime et
// la profondeur de la file PvP
func (m *Metrics) StartSnapshotRoutine(interval time.Duration, queueDepth func(context.Context) int64) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			Goroutines.Set(float64(runtime.NumGoroutine()))
			HeapAllocBytes.Set(float64(stats.HeapAlloc))

			if queueDepth != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				QueueDepth.Set(float64(queueDepth(ctx)))
				cancel()
			}
		}
	}()
}
