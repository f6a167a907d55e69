package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/moodart/backend/internal/config"
	emotionservice "github.com/zhouzirui/moodart/backend/internal/service/emotion"
)

func TestEngineFactory(t *testing.T) {
	cfg := &config.Config{}

	cfg.Emotion.Engine = config.EngineNone
	factory, err := engineFactory(cfg)
	require.NoError(t, err)
	assert.Nil(t, factory)

	cfg.Emotion.Engine = config.EngineInference
	cfg.Emotion.InferenceURL = "http://127.0.0.1:1/classify"
	factory, err = engineFactory(cfg)
	require.NoError(t, err)
	engine, err := factory(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &emotionservice.InferenceEngine{}, engine)

	// 缺少 Ark 凭证时初始化失败，由适配器缓存
	cfg.Emotion.Engine = config.EngineArk
	factory, err = engineFactory(cfg)
	require.NoError(t, err)
	_, err = factory(context.Background())
	require.Error(t, err)

	cfg.Emotion.Engine = "gpu"
	_, err = engineFactory(cfg)
	require.Error(t, err)
}

func TestNewEmotionServiceFallsBackWithoutEngine(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{}
	cfg.Emotion.Engine = config.EngineNone

	svc, err := newEmotionService(cfg, prometheus.NewRegistry(), logger)
	require.NoError(t, err)
	assert.Equal(t, emotionservice.StateDisabled, svc.EngineState())

	res, err := svc.Analyze(context.Background(), "I am terrified")
	require.NoError(t, err)
	assert.EqualValues(t, "fear", res.Emotion)
}

func TestNewEmotionServiceRejectsMissingTable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{}
	cfg.Emotion.Engine = config.EngineNone
	cfg.Emotion.LabelTablePath = "/does/not/exist.yaml"

	_, err := newEmotionService(cfg, prometheus.NewRegistry(), logger)
	require.Error(t, err)
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunServerReportsListenError(t *testing.T) {
	srv := &http.Server{Addr: "invalid-address", Handler: http.NotFoundHandler()}
	err := runServer(context.Background(), srv)
	require.Error(t, err)
	assert.False(t, errors.Is(err, http.ErrServerClosed))
}
