package emotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// EngineState 描述适配器持有的引擎状态。
type EngineState string

const (
	StateDisabled      EngineState = "disabled"
	StateUninitialized EngineState = "uninitialized"
	StateReady         EngineState = "ready"
	StateFailed        EngineState = "failed"
)

const (
	defaultCallTimeout = 3 * time.Second
	defaultInitTimeout = 10 * time.Second
	defaultMaxChars    = 2000
)

// AdapterConfig 控制引擎调用的超时与初始化重试策略。
type AdapterConfig struct {
	CallTimeout time.Duration
	InitTimeout time.Duration
	// RetryAfter 为 0 时初始化失败会被永久缓存。
	RetryAfter time.Duration
	// MaxChars 截断送入引擎的文本（按 rune 计）。
	MaxChars int
}

// Adapter 持有一个延迟初始化的引擎，把所有失败吸收为"不可用"。
// 并发的首次调用共享同一次初始化。
type Adapter struct {
	factory EngineFactory
	cfg     AdapterConfig
	logger  logrus.FieldLogger
	metrics *Metrics
	now     func() time.Time

	// state 无锁读取，供 /healthz 使用；mu 只串行化初始化。
	state    atomic.Int32
	mu       sync.Mutex
	engine   Engine
	failedAt time.Time
}

const (
	stateUninitialized int32 = iota
	stateReady
	stateFailed
)

// NewAdapter 创建适配器。factory 为 nil 时适配器处于 disabled 状态。
func NewAdapter(factory EngineFactory, cfg AdapterConfig, metrics *Metrics, logger logrus.FieldLogger) *Adapter {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = defaultInitTimeout
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Adapter{
		factory: factory,
		cfg:     cfg,
		logger:  logger.WithField("component", "emotion_engine"),
		metrics: metrics,
		now:     time.Now,
	}
}

// State 返回引擎当前状态。
func (a *Adapter) State() EngineState {
	if a == nil || a.factory == nil {
		return StateDisabled
	}
	switch a.state.Load() {
	case stateReady:
		return StateReady
	case stateFailed:
		return StateFailed
	default:
		return StateUninitialized
	}
}

// Attempt 调用引擎。引擎未配置、初始化失败、超时、出错或 panic 时返回 false。
// 调用方取消 ctx 不会中断引擎调用，只有配置的超时会。
func (a *Adapter) Attempt(ctx context.Context, text string) (Prediction, bool) {
	if a == nil || a.factory == nil {
		return Prediction{}, false
	}

	engine, err := a.acquire(ctx)
	if err != nil {
		return Prediction{}, false
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.CallTimeout)
	defer cancel()

	pred, err := a.call(callCtx, engine, truncateRunes(text, a.cfg.MaxChars))
	switch {
	case err == nil && strings.TrimSpace(pred.Label) == "":
		a.metrics.engineFailure("empty")
		a.logger.Warn("engine returned an empty label, use fallback")
		return Prediction{}, false
	case err == nil:
		return pred, true
	case callCtx.Err() != nil:
		a.metrics.engineFailure("timeout")
		a.logger.WithError(err).WithField("timeout", a.cfg.CallTimeout).Warn("engine call timed out, use fallback")
	default:
		a.metrics.engineFailure("error")
		a.logger.WithError(err).Warn("engine call failed, use fallback")
	}
	return Prediction{}, false
}

// acquire 返回已就绪的引擎，必要时执行一次共享的初始化。
// 等待时长以 InitTimeout 为上限，即使工厂忽略 ctx。
func (a *Adapter) acquire(ctx context.Context) (Engine, error) {
	if a.state.Load() == stateReady {
		return a.engine, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state.Load() {
	case stateReady:
		return a.engine, nil
	case stateFailed:
		if a.cfg.RetryAfter <= 0 || a.now().Sub(a.failedAt) < a.cfg.RetryAfter {
			a.logger.Debug("engine initialization previously failed, skip")
			return nil, ErrEngineUnavailable
		}
	}

	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.InitTimeout)
	defer cancel()

	engine, err := a.build(initCtx)
	if err == nil && engine == nil {
		err = errors.New("factory returned no engine")
	}
	if err != nil {
		a.failedAt = a.now()
		a.state.Store(stateFailed)
		a.metrics.engineFailure("init")
		a.logger.WithError(err).Warn("engine initialization failed")
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	a.engine = engine
	a.state.Store(stateReady)
	a.logger.Info("engine initialized")
	return engine, nil
}

type buildResult struct {
	engine Engine
	err    error
}

// build 在独立 goroutine 中运行工厂，超时后立即返回，迟到的引擎被丢弃。
func (a *Adapter) build(ctx context.Context) (Engine, error) {
	done := make(chan buildResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- buildResult{err: fmt.Errorf("engine factory panic: %v", r)}
			}
		}()
		engine, err := a.factory(ctx)
		done <- buildResult{engine: engine, err: err}
	}()

	select {
	case res := <-done:
		return res.engine, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("engine initialization timed out after %s: %w", a.cfg.InitTimeout, ctx.Err())
	}
}

type callResult struct {
	pred Prediction
	err  error
}

// call 在独立 goroutine 中执行，超时后立即返回，迟到的结果被丢弃。
func (a *Adapter) call(ctx context.Context, engine Engine, text string) (Prediction, error) {
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		pred, err := engine.Classify(ctx, text)
		done <- callResult{pred: pred, err: err}
	}()

	select {
	case res := <-done:
		return res.pred, res.err
	case <-ctx.Done():
		return Prediction{}, ctx.Err()
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
