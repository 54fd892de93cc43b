// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heritage_plates",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "heritage_plates",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	orderIDsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "heritage_plates",
			Subsystem: "orders",
			Name:      "order_ids_generated_total",
			Help:      "Order IDs handed out by the counter.",
		},
	)

	imageCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heritage_plates",
			Subsystem: "image_cache",
			Name:      "requests_total",
			Help:      "Image cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	imageCacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "heritage_plates",
			Subsystem: "image_cache",
			Name:      "evictions_total",
			Help:      "Entries removed by cleanup.",
		},
	)

	imageCacheBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "heritage_plates",
			Subsystem: "image_cache",
			Name:      "bytes",
			Help:      "Bytes currently held by the image cache.",
		},
	)

	pushMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heritage_plates",
			Subsystem: "push",
			Name:      "messages_total",
			Help:      "Push messages by ticket status.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		orderIDsGenerated,
		imageCacheRequests,
		imageCacheEvictions,
		imageCacheBytes,
		pushMessages,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count and latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if route == "/metrics" {
			return
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordOrderID() { orderIDsGenerated.Inc() }

func RecordImageCache(result string) { imageCacheRequests.WithLabelValues(result).Inc() }

func RecordImageEvictions(n int) { imageCacheEvictions.Add(float64(n)) }

func SetImageCacheBytes(n int64) { imageCacheBytes.Set(float64(n)) }

func RecordPush(status string, n int) { pushMessages.WithLabelValues(status).Add(float64(n)) }
