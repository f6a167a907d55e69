package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/moodart/backend/internal/handler/analyze"
	"github.com/zhouzirui/moodart/backend/internal/handler/auth"
	middlewarePkg "github.com/zhouzirui/moodart/backend/internal/middleware"
	"github.com/zhouzirui/moodart/backend/internal/service/emotion"
	"github.com/zhouzirui/moodart/backend/pkg/utils"
)

// EmotionService 是路由依赖的情绪分析能力。
type EmotionService interface {
	analyze.Analyzer
	EngineState() emotion.EngineState
}

// Dependencies 汇总构建路由所需的组件。
type Dependencies struct {
	Auth               auth.Service
	Tokens             middlewarePkg.TokenVerifier
	Emotion            EmotionService
	AnalyzeRequireAuth bool
	AllowedOrigins     []string
	// TrustProxyHeaders 为 false 时忽略 X-Forwarded-For/X-Real-IP，
	// 限流始终按传输层地址计算。
	TrustProxyHeaders  bool
	AuthLimiter        *middlewarePkg.RateLimiter
	HTTPMetrics        *middlewarePkg.HTTPMetrics
	Gatherer           prometheus.Gatherer
	Logger             logrus.FieldLogger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if deps.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middlewarePkg.Instrument(deps.HTTPMetrics, logger.WithField("component", "http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	authHandler := auth.New(deps.Auth, logger)
	analyzeHandler := analyze.New(deps.Emotion, logger)
	wsHandler := analyze.NewWebSocketHandler(deps.Emotion, nil, logger)
	gate := middlewarePkg.RequireAuth(deps.Tokens, logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"engine": string(deps.Emotion.EngineState()),
		})
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	authHandler.RegisterPublicRoutes(r, deps.AuthLimiter)

	// 受保护路由
	r.Group(func(protected chi.Router) {
		protected.Use(gate)
		authHandler.RegisterProtectedRoutes(protected)

		if deps.AnalyzeRequireAuth {
			analyzeHandler.RegisterRoutes(protected)
			wsHandler.RegisterRoutes(protected)
		}
	})

	if !deps.AnalyzeRequireAuth {
		analyzeHandler.RegisterRoutes(r)
		wsHandler.RegisterRoutes(r)
	}

	return r
}
