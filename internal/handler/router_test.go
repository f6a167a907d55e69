package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	analysis "github.com/zhouzirui/moodart/backend/internal/analysis/emotion"
	middlewarePkg "github.com/zhouzirui/moodart/backend/internal/middleware"
	"github.com/zhouzirui/moodart/backend/internal/model/artwork"
	"github.com/zhouzirui/moodart/backend/internal/model/user"
	authservice "github.com/zhouzirui/moodart/backend/internal/service/auth"
	"github.com/zhouzirui/moodart/backend/internal/service/emotion"
)

func setupRouter(t *testing.T, requireAuth bool) http.Handler {
	t.Helper()
	return NewRouter(newTestDependencies(t, requireAuth))
}

func newTestDependencies(t *testing.T, requireAuth bool) Dependencies {
	t.Helper()
	logger, _ := test.NewNullLogger()
	reg := prometheus.NewRegistry()

	tokens, err := authservice.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	authSvc, err := authservice.NewService(user.NewMemoryStore(), authservice.NewBcryptHasher(bcrypt.MinCost), tokens, authservice.Options{}, logger)
	require.NoError(t, err)

	metrics, err := emotion.NewMetrics(reg)
	require.NoError(t, err)
	httpMetrics, err := middlewarePkg.NewHTTPMetrics(reg)
	require.NoError(t, err)
	catalog, err := artwork.NewCatalog(artwork.Seed())
	require.NoError(t, err)
	emotionSvc := emotion.NewService(nil, analysis.NewNormalizer(analysis.DefaultTable()), catalog, metrics, logger)

	return Dependencies{
		Auth:               authSvc,
		Tokens:             tokens,
		Emotion:            emotionSvc,
		AnalyzeRequireAuth: requireAuth,
		AllowedOrigins:     []string{"*"},
		HTTPMetrics:        httpMetrics,
		Gatherer:           reg,
		Logger:             logger,
	}
}

func call(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func loginToken(t *testing.T, r http.Handler) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, call(r, http.MethodPost, "/signup", `{"email":"a@x.io","password":"pw1"}`, "").Code)
	resp := call(r, http.MethodPost, "/login", `{"email":"a@x.io","password":"pw1"}`, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Token
}

func TestAnalyzeRequiresAuthWhenConfigured(t *testing.T) {
	r := setupRouter(t, true)

	resp := call(r, http.MethodPost, "/analyze_text", `{"text":"I am so happy"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	token := loginToken(t, r)
	resp = call(r, http.MethodPost, "/analyze_text", `{"text":"I am so happy"}`, token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"emotion":"happy"`)
}

func TestAnalyzePublicWhenConfigured(t *testing.T) {
	r := setupRouter(t, false)

	resp := call(r, http.MethodPost, "/analyze_text", `{"text":"that was disgusting"}`, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"emotion":"disgust"`)

	// /me 始终受保护
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/me", "", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupRouter(t, false)

	resp := call(r, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok","engine":"disabled"}`, resp.Body.String())

	call(r, http.MethodPost, "/analyze_text", `{"text":"wow"}`, "")

	resp = call(r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.True(t, strings.Contains(body, `moodart_classifications_total{emotion="surprise",source="fallback"} 1`), body)
	assert.Contains(t, body, "moodart_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	r := setupRouter(t, false)
	resp := call(r, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func loginFrom(r http.Handler, remote, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"email":"a@x.io","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp.Code
}

func TestAuthLimiterIgnoresForwardedHeadersByDefault(t *testing.T) {
	logger, _ := test.NewNullLogger()
	deps := newTestDependencies(t, true)
	deps.AuthLimiter = middlewarePkg.NewRateLimiter(0.001, 1, logger)
	r := NewRouter(deps)

	assert.NotEqual(t, http.StatusTooManyRequests, loginFrom(r, "192.0.2.1:1234", "10.0.0.1"))
	// 轮换转发头不能绕过限流
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(r, "192.0.2.1:1234", "10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(r, "192.0.2.1:1234", "10.0.0.3"))
	// 不同传输层地址有独立配额
	assert.NotEqual(t, http.StatusTooManyRequests, loginFrom(r, "192.0.2.2:1234", "10.0.0.1"))
}

func TestAuthLimiterUsesForwardedHeadersBehindTrustedProxy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	deps := newTestDependencies(t, true)
	deps.AuthLimiter = middlewarePkg.NewRateLimiter(0.001, 1, logger)
	deps.TrustProxyHeaders = true
	r := NewRouter(deps)

	// 同一代理地址后的不同客户端分别计数
	assert.NotEqual(t, http.StatusTooManyRequests, loginFrom(r, "192.0.2.1:1234", "10.0.0.1"))
	assert.NotEqual(t, http.StatusTooManyRequests, loginFrom(r, "192.0.2.1:1234", "10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(r, "192.0.2.1:1234", "10.0.0.1"))
}
