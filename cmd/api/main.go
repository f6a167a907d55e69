package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	analysis "github.com/zhouzirui/moodart/backend/internal/analysis/emotion"
	"github.com/zhouzirui/moodart/backend/internal/config"
	"github.com/zhouzirui/moodart/backend/internal/handler"
	"github.com/zhouzirui/moodart/backend/internal/logging"
	"github.com/zhouzirui/moodart/backend/internal/middleware"
	"github.com/zhouzirui/moodart/backend/internal/model/artwork"
	"github.com/zhouzirui/moodart/backend/internal/model/user"
	"github.com/zhouzirui/moodart/backend/internal/repository/postgres"
	"github.com/zhouzirui/moodart/backend/internal/service/auth"
	emotionservice "github.com/zhouzirui/moodart/backend/internal/service/emotion"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("failed to configure logging: %v", err)
	}
	if envErr != nil {
		logger.WithError(envErr).Debug("no .env file loaded, using system environment only")
	}
	if cfg.Auth.InsecureSecret {
		logger.Warn("JWT_SECRET_KEY not set, using the built-in development secret")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize credential store
	users, closeStore, err := newUserStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize credential store")
	}
	defer closeStore()

	authSvc, tokens, err := newAuthService(cfg.Auth, users, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize auth service")
	}

	// Initialize emotion analysis service (engine with keyword fallback)
	emotionSvc, err := newEmotionService(cfg, registry, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize emotion service")
	}

	httpMetrics, err := middleware.NewHTTPMetrics(registry)
	if err != nil {
		logger.WithError(err).Fatal("failed to register http metrics")
	}

	limiter := middleware.NewRateLimiter(cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst, logger)
	limiter.StartPruning(10*time.Minute, ctx.Done())

	router := handler.NewRouter(handler.Dependencies{
		Auth:               authSvc,
		Tokens:             tokens,
		Emotion:            emotionSvc,
		AnalyzeRequireAuth: cfg.Emotion.AnalyzeRequireAuth,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		TrustProxyHeaders:  cfg.Server.TrustProxyHeaders,
		AuthLimiter:        limiter,
		HTTPMetrics:        httpMetrics,
		Gatherer:           registry,
		Logger:             logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func newUserStore(ctx context.Context, cfg config.DatabaseConfig, logger *logrus.Logger) (user.Store, func(), error) {
	if !cfg.Enabled() {
		logger.Warn("DATABASE_URL not set, accounts are kept in memory only")
		return user.NewMemoryStore(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("close database")
		}
	}

	if cfg.AutoMigrate {
		migrator, err := postgres.NewMigrator(db, logger)
		if err == nil {
			err = migrator.Up(ctx)
		}
		if err != nil {
			closeDB()
			return nil, nil, err
		}
	}

	logger.Info("postgres credential store ready")
	return postgres.NewUserStore(db), closeDB, nil
}

func newAuthService(cfg config.AuthConfig, users user.Store, logger *logrus.Logger) (*auth.Service, *auth.TokenManager, error) {
	hasher, err := auth.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, nil, err
	}
	svc, err := auth.NewService(users, hasher, tokens, auth.Options{FoldEmailCase: cfg.FoldEmailCase}, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, tokens, nil
}

func newEmotionService(cfg *config.Config, reg prometheus.Registerer, logger *logrus.Logger) (*emotionservice.Service, error) {
	labels := analysis.DefaultTable()
	if path := cfg.Emotion.LabelTablePath; path != "" {
		loaded, err := analysis.LoadTable(path)
		if err != nil {
			return nil, err
		}
		labels = loaded
	}

	art := artwork.Seed()
	if path := cfg.Emotion.ArtTablePath; path != "" {
		loaded, err := artwork.LoadTable(path)
		if err != nil {
			return nil, err
		}
		art = loaded
	}
	catalog, err := artwork.NewCatalog(art)
	if err != nil {
		return nil, err
	}

	metrics, err := emotionservice.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	factory, err := engineFactory(cfg)
	if err != nil {
		return nil, err
	}

	var adapter *emotionservice.Adapter
	if factory != nil {
		adapter = emotionservice.NewAdapter(factory, emotionservice.AdapterConfig{
			CallTimeout: cfg.Emotion.Timeout,
			InitTimeout: cfg.Emotion.InitTimeout,
			RetryAfter:  cfg.Emotion.RetryAfter,
			MaxChars:    cfg.Emotion.MaxChars,
		}, metrics, logger)
	}

	logger.WithFields(logrus.Fields{
		"engine":         cfg.Emotion.Engine,
		"label_table":    labels.Version,
		"art_table":      art.Version,
		"analyze_authed": cfg.Emotion.AnalyzeRequireAuth,
	}).Info("emotion service configured")

	return emotionservice.NewService(adapter, analysis.NewNormalizer(labels), catalog, metrics, logger), nil
}

// engineFactory 返回 nil 表示未配置外部引擎，始终使用关键词规则。
func engineFactory(cfg *config.Config) (emotionservice.EngineFactory, error) {
	switch cfg.Emotion.Engine {
	case config.EngineArk:
		return emotionservice.ArkEngineFactory(cfg.AI.NewChatModel), nil
	case config.EngineInference:
		url, token := cfg.Emotion.InferenceURL, cfg.Emotion.InferenceToken
		return func(context.Context) (emotionservice.Engine, error) {
			return emotionservice.NewInferenceEngine(url, token, &http.Client{})
		}, nil
	case config.EngineNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown emotion engine %q", cfg.Emotion.Engine)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *logrus.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Infof("MoodArt backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
