// Package metrics 提供基于 Prometheus 的监控指标
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/monthroster/pkg/scheduler"
)

// Namespace 指标名前缀
const Namespace = "roster"

// Registry 排班服务的指标集合，各自持有独立的 Prometheus 注册表
type Registry struct {
	reg *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	runsTotal           *prometheus.CounterVec
	runDuration         *prometheus.HistogramVec
	violationsTotal     *prometheus.CounterVec
	balancerIterations  *prometheus.CounterVec
	balancerWorstSpread *prometheus.GaugeVec
	constraintScore     *prometheus.GaugeVec
	fairnessGini        *prometheus.GaugeVec
	coverageRate        *prometheus.GaugeVec

	holidayFailures *prometheus.CounterVec
}

var (
	registry *Registry
	once     sync.Once
)

// NewRegistry 创建并注册全部指标
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP请求总数",
	}, []string{"method", "path", "status"})
	r.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP请求延迟",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"method", "path"})

	r.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "runs_total",
		Help:      "排班运行次数",
	}, []string{"month", "status"})
	r.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "run_duration_seconds",
		Help:      "排班运行耗时",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"month"})
	r.violationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "violations_total",
		Help:      "校验发现的违反数",
	}, []string{"type"})
	r.balancerIterations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "balancer",
		Name:      "iterations_total",
		Help:      "均衡器迭代次数",
	}, []string{"stop_reason"})
	r.balancerWorstSpread = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "balancer",
		Name:      "worst_spread_hours",
		Help:      "均衡后最差周工时极差",
	}, []string{"month"})
	r.constraintScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "constraint_score",
		Help:      "约束满足度得分",
	}, []string{"month"})
	r.fairnessGini = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "fairness",
		Name:      "gini",
		Help:      "公平性基尼系数",
	}, []string{"month", "metric_type"})
	r.coverageRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "coverage_rate",
		Help:      "最低人数覆盖率",
	}, []string{"month"})

	r.holidayFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "holiday",
		Name:      "lookup_failures_total",
		Help:      "节假日查询失败次数",
	}, []string{"country"})

	r.reg.MustRegister(
		r.httpRequests,
		r.httpRequestDuration,
		r.runsTotal,
		r.runDuration,
		r.violationsTotal,
		r.balancerIterations,
		r.balancerWorstSpread,
		r.constraintScore,
		r.fairnessGini,
		r.coverageRate,
		r.holidayFailures,
	)
	return r
}

// GetRegistry 获取全局注册表，附带 Go 运行时和进程指标
func GetRegistry() *Registry {
	once.Do(func() {
		registry = NewRegistry()
		registry.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return registry
}

// Gatherer 底层注册表
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler 返回 Prometheus 格式的指标 HTTP 处理器
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// RecordRequest 记录请求指标
func (r *Registry) RecordRequest(method, path string, status int, duration time.Duration) {
	r.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordHolidayFailure 记录节假日查询失败
func (r *Registry) RecordHolidayFailure(country string) {
	r.holidayFailures.WithLabelValues(country).Inc()
}

// ObserveRun 实现 scheduler.Observer
func (r *Registry) ObserveRun(res *scheduler.Result) {
	month := res.Month.String()
	status := "valid"
	if !res.Valid {
		status = "violations"
	}
	r.runsTotal.WithLabelValues(month, status).Inc()
	r.runDuration.WithLabelValues(month).Observe(res.Duration.Seconds())

	for _, v := range res.Violations {
		r.violationsTotal.WithLabelValues(string(v.Type)).Inc()
	}
	if res.Balancer != nil {
		r.balancerIterations.WithLabelValues(res.Balancer.StopReason).Add(float64(res.Balancer.Iterations))
		r.balancerWorstSpread.WithLabelValues(month).Set(res.Balancer.FinalWorst)
	}
	r.constraintScore.WithLabelValues(month).Set(res.Score)
	if res.Fairness != nil {
		r.fairnessGini.WithLabelValues(month, "workload").Set(res.Fairness.WorkloadGini)
		r.fairnessGini.WithLabelValues(month, "weekend").Set(res.Fairness.WeekendShiftGini)
		r.fairnessGini.WithLabelValues(month, "on_call").Set(res.Fairness.OnCallGini)
	}
	if res.Coverage != nil {
		r.coverageRate.WithLabelValues(month).Set(res.Coverage.OverallCoverage)
	}
}

var _ scheduler.Observer = (*Registry)(nil)
