package emotion

import (
	"github.com/prometheus/client_golang/prometheus"

	analysis "github.com/zhouzirui/moodart/backend/internal/analysis/emotion"
)

// Metrics 记录分类来源与引擎失败情况。nil 值可安全使用。
type Metrics struct {
	classifications *prometheus.CounterVec
	engineFailures  *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册情绪分类相关指标。
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moodart",
			Name:      "classifications_total",
			Help:      "Text classifications by result source and canonical emotion.",
		}, []string{"source", "emotion"}),
		engineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moodart",
			Name:      "engine_failures_total",
			Help:      "Classification engine failures absorbed by the fallback path.",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{m.classifications, m.engineFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	// 预先创建全部序列，未出现过的情绪也以 0 导出
	for _, source := range []Source{SourceEngine, SourceFallback} {
		for _, label := range analysis.Labels() {
			m.classifications.WithLabelValues(string(source), string(label))
		}
	}
	return m, nil
}

func (m *Metrics) classified(source Source, label analysis.Label) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(string(source), string(label)).Inc()
}

func (m *Metrics) engineFailure(reason string) {
	if m == nil {
		return
	}
	m.engineFailures.WithLabelValues(reason).Inc()
}
