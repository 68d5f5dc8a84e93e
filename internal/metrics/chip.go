package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChipMetrics 芯片生命周期指标
type ChipMetrics struct {
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	rejections         *prometheus.CounterVec
	importRows         *prometheus.CounterVec
}

// NewChipMetrics 在给定注册器上注册芯片指标，reg 为空时返回空实现
func NewChipMetrics(reg prometheus.Registerer) *ChipMetrics {
	if reg == nil {
		return &ChipMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chip_transitions_total",
		Help: "Committed chip lifecycle transitions.",
	}, []string{"event", "to"})
	transitionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chip_transition_duration_seconds",
		Help:    "Duration of chip transition transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chip_security_rejections_total",
		Help: "Chip operations rejected for security reasons.",
	}, []string{"reason"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chip_import_rows_total",
		Help: "Rows processed by chip bulk imports.",
	}, []string{"result"})
	reg.MustRegister(transitions, transitionDuration, rejections, importRows)
	return &ChipMetrics{
		transitions:        transitions,
		transitionDuration: transitionDuration,
		rejections:         rejections,
		importRows:         importRows,
	}
}

// IncTransition 记录一次已提交的状态流转
func (m *ChipMetrics) IncTransition(event, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(event), normalizeLabel(to)).Inc()
}

// ObserveTransition 记录流转事务耗时
func (m *ChipMetrics) ObserveTransition(event string, duration time.Duration) {
	if m == nil || m.transitionDuration == nil {
		return
	}
	m.transitionDuration.WithLabelValues(normalizeLabel(event)).Observe(duration.Seconds())
}

// IncSecurityRejection 记录一次安全拦截
func (m *ChipMetrics) IncSecurityRejection(reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// AddImportRows 累加导入行结果（success/duplicate/error）
func (m *ChipMetrics) AddImportRows(result string, count int) {
	if m == nil || m.importRows == nil || count <= 0 {
		return
	}
	m.importRows.WithLabelValues(normalizeLabel(result)).Add(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
