package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ArkEngine 通过大模型链路完成情绪分类。
type ArkEngine struct {
	classifier compose.Runnable[map[string]any, *schema.Message]
}

// NewArkEngine 编译 prompt 模板与 chatModel 组成的分类链。
func NewArkEngine(ctx context.Context, chatModel model.ChatModel) (*ArkEngine, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage(classifierUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile emotion classifier chain: %w", err)
	}
	return &ArkEngine{classifier: runnable}, nil
}

// ArkEngineFactory 在首次使用时创建 chatModel 并编译分类链。
func ArkEngineFactory(newChatModel func(context.Context) (model.ChatModel, error)) EngineFactory {
	return func(ctx context.Context) (Engine, error) {
		chatModel, err := newChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		return NewArkEngine(ctx, chatModel)
	}
}

func (e *ArkEngine) Classify(ctx context.Context, text string) (Prediction, error) {
	msg, err := e.classifier.Invoke(ctx, map[string]any{"text": text})
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier invoke: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return Prediction{}, fmt.Errorf("classifier returned empty content")
	}

	payload, err := parseClassifierOutput(msg.Content)
	if err != nil {
		return Prediction{}, fmt.Errorf("parse classifier output: %w", err)
	}

	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Prediction{Label: strings.TrimSpace(payload.Label), Confidence: confidence}, nil
}

// parseClassifierOutput 解析大模型返回的 JSON。
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

type classifierPayload struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

const classifierSystemPrompt = "You are an emotion classifier. Read the user's text and decide which single emotion it expresses.\n" +
	"Return only one JSON object with the fields label (one of anger, disgust, fear, joy, love, neutral, sadness, surprise) " +
	"and confidence (a number between 0 and 1). Do not output anything else."

const classifierUserPrompt = "Text:\n{text}"
