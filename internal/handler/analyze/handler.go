package analyze

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/moodart/backend/internal/service/emotion"
	"github.com/zhouzirui/moodart/backend/pkg/utils"
)

// Analyzer 是处理器依赖的情绪分析服务。
type Analyzer interface {
	Analyze(ctx context.Context, text string) (emotion.Result, error)
}

// Handler 文本情绪分析的HTTP处理器
type Handler struct {
	svc    Analyzer
	logger logrus.FieldLogger
}

// New 创建分析处理器
func New(svc Analyzer, logger logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, logger: logger.WithField("component", "analyze_handler")}
}

// RegisterRoutes 注册分析路由，是否需要令牌由调用方决定
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze_text", h.handleAnalyze)
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// handleAnalyze 对请求文本做情绪分类
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Analyze(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, emotion.ErrEmptyInput) {
			utils.RespondError(w, http.StatusBadRequest, "text is required")
			return
		}
		h.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("analyze failed")
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}
