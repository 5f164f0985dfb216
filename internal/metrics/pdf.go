package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pdfCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvforge",
			Subsystem: "pdf",
			Name:      "cache_lookups_total",
			Help:      "PDF 缓存查询总数，按命中/未命中区分。",
		},
		[]string{"result"},
	)

	pdfCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvforge",
			Subsystem: "pdf",
			Name:      "cache_evictions_total",
			Help:      "PDF 缓存淘汰总数，按原因区分（ttl/capacity）。",
		},
		[]string{"reason"},
	)

	pdfRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cvforge",
			Subsystem: "pdf",
			Name:      "render_duration_seconds",
			Help:      "PDF 渲染耗时分布（秒）。",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	publicDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvforge",
			Subsystem: "pdf",
			Name:      "public_downloads_total",
			Help:      "公开简历 PDF 下载总数，按结果区分。",
		},
		[]string{"status"},
	)
)

// ObservePDFCacheLookup 记录一次缓存查询结果，result 取 hit/miss。
func ObservePDFCacheLookup(result string) {
	pdfCacheLookups.WithLabelValues(result).Inc()
}

// ObservePDFCacheEviction 记录一次缓存淘汰，reason 取 ttl/capacity。
func ObservePDFCacheEviction(reason string) {
	pdfCacheEvictions.WithLabelValues(reason).Inc()
}

// ObservePDFRenderDuration 记录一次渲染耗时。
func ObservePDFRenderDuration(d time.Duration) {
	pdfRenderDuration.Observe(d.Seconds())
}

// ObservePublicDownload 记录一次公开下载请求的最终状态（ok/not_found/rate_limited/timeout/error）。
func ObservePublicDownload(status string) {
	publicDownloads.WithLabelValues(status).Inc()
}
