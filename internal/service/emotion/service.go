package emotion

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	analysis "github.com/zhouzirui/moodart/backend/internal/analysis/emotion"
	"github.com/zhouzirui/moodart/backend/internal/model/artwork"
)

// Source 表示分类结果来自外部引擎还是关键词回退。
type Source string

const (
	SourceEngine   Source = "engine"
	SourceFallback Source = "fallback"
)

// Result 是一次文本分析的输出。
type Result struct {
	Emotion        analysis.Label `json:"emotion"`
	AssetReference string         `json:"asset_reference"`
	Response       string         `json:"response"`
	Source         Source         `json:"source"`
	Confidence     *float64       `json:"confidence,omitempty"`
	TableVersion   string         `json:"table_version"`
}

// Service 先尝试外部引擎，失败时回退到关键词规则，再映射到展示内容。
type Service struct {
	adapter    *Adapter
	normalizer *analysis.Normalizer
	catalog    *artwork.Catalog
	fallback   func(text string) analysis.Label
	metrics    *Metrics
	logger     logrus.FieldLogger
}

// NewService 创建情绪分析服务。adapter 可为 nil，此时始终使用回退规则。
func NewService(adapter *Adapter, normalizer *analysis.Normalizer, catalog *artwork.Catalog, metrics *Metrics, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		adapter:    adapter,
		normalizer: normalizer,
		catalog:    catalog,
		fallback:   analysis.Guess,
		metrics:    metrics,
		logger:     logger.WithField("component", "emotion"),
	}
}

// EngineState 返回外部引擎状态，供健康检查使用。
func (s *Service) EngineState() EngineState {
	return s.adapter.State()
}

// Analyze 对文本分类。只有空输入会返回错误，引擎不可用不会。
func (s *Service) Analyze(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyInput
	}

	var (
		label      analysis.Label
		source     Source
		confidence *float64
	)
	if pred, ok := s.adapter.Attempt(ctx, text); ok {
		label = s.normalizer.Normalize(pred.Label)
		source = SourceEngine
		c := pred.Confidence
		confidence = &c
		s.logger.WithFields(logrus.Fields{"raw_label": pred.Label, "emotion": label}).Debug("engine classification")
	} else {
		// 回退规则已输出规范标签，无需归一化
		label = s.fallback(text)
		source = SourceFallback
	}

	s.metrics.classified(source, label)

	p := s.catalog.Present(label)
	return Result{
		Emotion:        label,
		AssetReference: p.Asset,
		Response:       p.Response,
		Source:         source,
		Confidence:     confidence,
		TableVersion:   s.normalizer.Version() + "+" + s.catalog.Version(),
	}, nil
}
