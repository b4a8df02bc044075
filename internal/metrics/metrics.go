package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "springsnow"

// Metrics 流水线与 HTTP 指标
type Metrics struct {
	registry *prometheus.Registry

	RowsRead       *prometheus.CounterVec
	RowsDropped    *prometheus.CounterVec
	RowsKept       *prometheus.CounterVec
	ImportRuns     *prometheus.CounterVec
	ImportDuration prometheus.Histogram
	MetricsWritten prometheus.Counter
	PriceRecords   prometheus.Counter
	RemoteBatches  *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	QualityScore   *prometheus.GaugeVec
}

// New 创建并注册全部指标到独立 Registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Rows read from source workbooks.",
		}, []string{"source"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped by filter rules.",
		}, []string{"source", "rule"}),
		RowsKept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_kept_total",
			Help:      "Rows kept after filtering.",
		}, []string{"source"}),
		ImportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_runs_total",
			Help:      "Import runs by kind and status.",
		}, []string{"kind", "status"}),
		ImportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of import runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		MetricsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_metrics_written_total",
			Help:      "DailyMetrics rows written to the store.",
		}),
		PriceRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_adjustments_written_total",
			Help:      "PriceAdjustments rows written to the store.",
		}),
		RemoteBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_batches_total",
			Help:      "Batches pushed to the remote import API.",
		}, []string{"status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		QualityScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Latest data quality score per dataset.",
		}, []string{"dataset"}),
	}

	m.registry.MustRegister(
		m.RowsRead, m.RowsDropped, m.RowsKept,
		m.ImportRuns, m.ImportDuration, m.MetricsWritten, m.PriceRecords,
		m.RemoteBatches, m.HTTPRequests, m.HTTPDuration, m.QualityScore,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLoad 记录一次源表读取
func (m *Metrics) ObserveLoad(source string, total, kept int, dropped map[string]int) {
	m.RowsRead.WithLabelValues(source).Add(float64(total))
	m.RowsKept.WithLabelValues(source).Add(float64(kept))
	for rule, n := range dropped {
		m.RowsDropped.WithLabelValues(source, rule).Add(float64(n))
	}
}

// ObserveImport 记录一次导入运行
func (m *Metrics) ObserveImport(kind string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ImportRuns.WithLabelValues(kind, status).Inc()
	m.ImportDuration.Observe(elapsed.Seconds())
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Default 进程级指标
var Default = New()
