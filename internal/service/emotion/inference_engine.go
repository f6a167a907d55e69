package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const maxInferenceResponse = 1 << 20

// InferenceEngine 调用 Hugging Face 推理格式的文本分类接口。
type InferenceEngine struct {
	url    string
	token  string
	client *http.Client
}

// NewInferenceEngine 创建推理引擎，client 为 nil 时使用 http.DefaultClient。
func NewInferenceEngine(url, token string, client *http.Client) (*InferenceEngine, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("inference url is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &InferenceEngine{url: url, token: strings.TrimSpace(token), client: client}, nil
}

func (e *InferenceEngine) Classify(ctx context.Context, text string) (Prediction, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return Prediction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxInferenceResponse))
	if err != nil {
		return Prediction{}, fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Prediction{}, fmt.Errorf("inference status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return parseInferenceOutput(raw)
}

// parseInferenceOutput 接受 [[{label,score}]] 或 [{label,score}]，取分数最高者。
func parseInferenceOutput(raw []byte) (Prediction, error) {
	if !gjson.ValidBytes(raw) {
		return Prediction{}, fmt.Errorf("invalid inference response")
	}

	candidates := gjson.ParseBytes(raw)
	if first := candidates.Get("0"); first.IsArray() {
		candidates = first
	}
	if !candidates.IsArray() {
		return Prediction{}, fmt.Errorf("unexpected inference response shape")
	}

	var best Prediction
	found := false
	candidates.ForEach(func(_, item gjson.Result) bool {
		label := strings.TrimSpace(item.Get("label").String())
		if label == "" {
			return true
		}
		score := item.Get("score").Float()
		if !found || score > best.Confidence {
			best = Prediction{Label: label, Confidence: score}
			found = true
		}
		return true
	})

	if !found {
		return Prediction{}, fmt.Errorf("inference response has no labels")
	}
	return best, nil
}
