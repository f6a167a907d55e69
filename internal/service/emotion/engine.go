package emotion

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput 表示待分析文本在去除空白后为空
	ErrEmptyInput = errors.New("text is required")
	// ErrEngineUnavailable 表示外部分类引擎当前不可用，仅在内部传递
	ErrEngineUnavailable = errors.New("classification engine unavailable")
)

// Prediction 是外部引擎给出的原始标签，尚未归一化。
type Prediction struct {
	Label      string
	Confidence float64
}

// Engine 是外部情绪分类能力。
type Engine interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// EngineFactory 延迟构造引擎，首次使用时调用。
type EngineFactory func(ctx context.Context) (Engine, error)

// EngineFunc 把普通函数适配为 Engine。
type EngineFunc func(ctx context.Context, text string) (Prediction, error)

func (f EngineFunc) Classify(ctx context.Context, text string) (Prediction, error) {
	return f(ctx, text)
}
