package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 应用 Prometheus 指标集合（独立 Registry，便于测试隔离）
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	inFlight     prometheus.Gauge

	importRows   *prometheus.CounterVec
	exportFiles  *prometheus.CounterVec
	schedulerRun *prometheus.CounterVec
}

// New 创建并注册全部指标
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP 请求总数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "处理中的 HTTP 请求数",
		}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Excel 导入行数",
		}, []string{"entity", "result"}),
		exportFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_files_total",
			Help:      "导出文件数",
		}, []string{"report", "format"}),
		schedulerRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_runs_total",
			Help:      "定时任务执行次数",
		}, []string{"job", "result"}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.inFlight,
		m.importRows, m.exportFiles, m.schedulerRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 暴露内部 Registry（测试用）
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ── 记录方法（对 nil 接收者安全） ──

func (m *Metrics) IncInFlight() {
	if m != nil {
		m.inFlight.Inc()
	}
}

func (m *Metrics) DecInFlight() {
	if m != nil {
		m.inFlight.Dec()
	}
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveImport 记录导入成功/失败行数
func (m *Metrics) ObserveImport(entity string, success, failed int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(entity, "success").Add(float64(success))
	m.importRows.WithLabelValues(entity, "failed").Add(float64(failed))
}

// ObserveExport 记录一次导出
func (m *Metrics) ObserveExport(report, format string) {
	if m != nil {
		m.exportFiles.WithLabelValues(report, format).Inc()
	}
}

// ObserveSchedulerRun 记录定时任务执行结果
func (m *Metrics) ObserveSchedulerRun(job string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.schedulerRun.WithLabelValues(job, result).Inc()
}
