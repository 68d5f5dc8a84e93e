package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TaskMetrics 异步任务执行指标
type TaskMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewTaskMetrics 注册异步任务指标
func NewTaskMetrics(reg prometheus.Registerer) *TaskMetrics {
	if reg == nil {
		return &TaskMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "task_duration_seconds",
		Help:    "Duration of queue task handlers in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "task_success_total",
		Help: "Successful queue task executions.",
	}, []string{"task"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "task_failure_total",
		Help: "Failed queue task executions.",
	}, []string{"task"})
	reg.MustRegister(duration, success, failure)
	return &TaskMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// Observe 记录任务结果与耗时
func (m *TaskMetrics) Observe(task string, started time.Time, err error) {
	if m == nil || m.duration == nil {
		return
	}
	task = normalizeLabel(task)
	m.duration.WithLabelValues(task).Observe(time.Since(started).Seconds())
	if err != nil {
		m.failure.WithLabelValues(task).Inc()
		return
	}
	m.success.WithLabelValues(task).Inc()
}
