// Package middleware 提供各路由共用的 HTTP 中间件。
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/moodart/backend/pkg/utils"
)

// TokenVerifier 校验令牌并返回其中的用户 ID。
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// Identity 是访问网关解析出的调用者身份。
type Identity struct {
	UserID int64
}

type identityKey struct{}

// IdentityFromContext 返回 RequireAuth 放入上下文的身份。
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RequireAuth 要求请求携带有效的 Bearer 令牌。所有失败原因对外都是同一个 401。
func RequireAuth(verifier TokenVerifier, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	logger = logger.WithField("component", "access_gate")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var userID int64
				if userID, err = verifier.Verify(token); err == nil {
					ctx := context.WithValue(r.Context(), identityKey{}, Identity{UserID: userID})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			logger.WithFields(logrus.Fields{
				"path":       r.URL.Path,
				"request_id": middleware.GetReqID(r.Context()),
			}).WithError(err).Debug("request rejected")
			Unauthorized(w)
		})
	}
}

// Unauthorized 写入统一的 401 响应。
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="moodart"`)
	utils.RespondError(w, http.StatusUnauthorized, "authentication required")
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
