package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	mw "github.com/zhouzirui/moodart/backend/internal/middleware"
	"github.com/zhouzirui/moodart/backend/internal/model/user"
	authservice "github.com/zhouzirui/moodart/backend/internal/service/auth"
	"github.com/zhouzirui/moodart/backend/pkg/utils"
)

// Service 是处理器依赖的账户服务。
type Service interface {
	Signup(ctx context.Context, email, password string) (user.User, error)
	Login(ctx context.Context, email, password string) (authservice.Token, error)
	CurrentUser(ctx context.Context, id int64) (user.User, error)
}

// Handler 账户相关的HTTP处理器
type Handler struct {
	svc    Service
	logger logrus.FieldLogger
}

// New 创建账户处理器
func New(svc Service, logger logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, logger: logger.WithField("component", "auth_handler")}
}

// RegisterPublicRoutes 注册无需令牌的路由，limiter 可为 nil
func (h *Handler) RegisterPublicRoutes(r chi.Router, limiter *mw.RateLimiter) {
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Post("/signup", h.handleSignup)
		r.Post("/login", h.handleLogin)
	})
}

// RegisterProtectedRoutes 注册需要访问网关保护的路由
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// handleSignup 注册新用户
func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.svc.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, signupResponse{Message: "Account created successfully", ID: u.ID})
}

// handleLogin 校验凭证并签发令牌
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, loginResponse{
		Token:     token.Value,
		Message:   "Login successful",
		ExpiresAt: token.ExpiresAt.UTC(),
	})
}

// handleMe 返回当前用户
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := mw.IdentityFromContext(r.Context())
	if !ok {
		mw.Unauthorized(w)
		return
	}

	u, err := h.svc.CurrentUser(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// 令牌有效但账户已不存在
			mw.Unauthorized(w)
			return
		}
		h.respondServiceError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, meResponse{ID: u.ID, Email: u.Email})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authservice.ErrEmailRequired),
		errors.Is(err, authservice.ErrPasswordRequired):
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
	case errors.Is(err, authservice.ErrPasswordTooLong):
		utils.RespondError(w, http.StatusBadRequest, "password is too long")
	case errors.Is(err, user.ErrDuplicateEmail):
		utils.RespondError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, authservice.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusUnauthorized, "invalid email or password")
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).Error("request failed")
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
