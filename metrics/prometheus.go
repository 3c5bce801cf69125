// Package metrics 提供调度器的 Prometheus 指标收集.
//
// PrometheusCollector 实现 scheduler.MetricsRecorder，
// 通过 scheduler.WithMetrics 注入调度器.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 执行结果标签.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// PrometheusCollector Prometheus 指标收集器.
type PrometheusCollector struct {
	config *Config

	jobs        prometheus.Gauge
	ticks       prometheus.Counter
	fires       *prometheus.CounterVec
	skips       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewPrometheus 创建 Prometheus 指标收集器.
//
// 每个收集器使用独立的注册表，避免与默认注册表冲突.
func NewPrometheus(cfg *Config) (*PrometheusCollector, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	cfg.ApplyDefaults()
	namespace := cfg.Namespace

	c := &PrometheusCollector{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	c.jobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "jobs",
		Help:      "Number of registered weekly jobs",
	})

	c.ticks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Total number of scheduler ticks",
	})

	c.fires = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "fires_total",
		Help:      "Total number of job handler invocations",
	}, []string{"job", "status"})

	c.skips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "skips_total",
		Help:      "Total number of due runs that were skipped",
	}, []string{"job", "reason"})

	c.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "duration_seconds",
		Help:      "Job handler duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"job"})

	c.lastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run",
	}, []string{"job"})

	collectors := []prometheus.Collector{
		c.jobs,
		c.ticks,
		c.fires,
		c.skips,
		c.duration,
		c.lastSuccess,
	}
	if cfg.RuntimeMetrics {
		collectors = append(collectors,
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	}

	for _, collector := range collectors {
		if err := c.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRegisterMetric, err)
		}
	}

	return c, nil
}

// MustNewPrometheus 创建指标收集器，失败时 panic.
func MustNewPrometheus(cfg *Config) *PrometheusCollector {
	c, err := NewPrometheus(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// RecordTick 记录一次 tick.
func (c *PrometheusCollector) RecordTick() {
	c.ticks.Inc()
}

// RecordFire 记录一次处理函数调用.
func (c *PrometheusCollector) RecordFire(job string, err error, d time.Duration) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	} else {
		c.lastSuccess.WithLabelValues(job).SetToCurrentTime()
	}
	c.fires.WithLabelValues(job, status).Inc()
	c.duration.WithLabelValues(job).Observe(d.Seconds())
}

// RecordSkip 记录一次跳过.
func (c *PrometheusCollector) RecordSkip(job, reason string) {
	c.skips.WithLabelValues(job, reason).Inc()
}

// SetJobs 更新已注册任务数.
func (c *PrometheusCollector) SetJobs(n int) {
	c.jobs.Set(float64(n))
}

// Registry 返回底层注册表，可用于注册额外指标.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 metrics 的 HTTP 处理器.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Path 返回 metrics 路径.
func (c *PrometheusCollector) Path() string {
	return c.config.Path
}

// Addr 返回 metrics 服务监听地址.
func (c *PrometheusCollector) Addr() string {
	return c.config.Addr
}
