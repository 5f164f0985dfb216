package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerHTTPOnce sync.Once

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvforge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时分布（秒）。",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	httpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvforge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP 请求总数。",
		},
		[]string{"method", "path", "status"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cvforge",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "当前正在处理的 HTTP 请求数量。",
		},
	)
)

// GinMiddleware 为 Gin 路由注册 Prometheus 指标采集逻辑。
// 指标按路由模板（c.FullPath）聚合，未匹配的请求退回原始路径。
func GinMiddleware() gin.HandlerFunc {
	registerHTTPOnce.Do(func() {
		prometheus.MustRegister(httpDuration, httpTotal, httpInFlight)
	})

	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())

		httpDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
