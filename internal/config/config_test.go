package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var managedEnv = []string{
	"PORT", "CORS_ALLOWED_ORIGINS", "TRUST_PROXY_HEADERS", "LOG_LEVEL", "LOG_FORMAT",
	"JWT_SECRET_KEY", "JWT_ACCESS_TOKEN_TTL", "PASSWORD_HASHER", "BCRYPT_COST",
	"AUTH_FOLD_EMAIL_CASE", "AUTH_RATE_LIMIT_RPS", "AUTH_RATE_LIMIT_BURST",
	"DATABASE_URL", "DATABASE_AUTO_MIGRATE",
	"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model",
	"EMOTION_ENGINE", "EMOTION_INFERENCE_URL", "EMOTION_INFERENCE_TOKEN",
	"EMOTION_ENGINE_TIMEOUT", "EMOTION_ENGINE_INIT_TIMEOUT", "EMOTION_ENGINE_RETRY_AFTER",
	"EMOTION_ENGINE_MAX_CHARS", "ANALYZE_REQUIRE_AUTH", "EMOTION_LABEL_TABLE", "EMOTION_ART_TABLE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedEnv {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Server.TrustProxyHeaders)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultJWTSecret, cfg.Auth.JWTSecret)
	assert.True(t, cfg.Auth.InsecureSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "bcrypt", cfg.Auth.PasswordHasher)
	assert.Equal(t, bcrypt.DefaultCost, cfg.Auth.BcryptCost)
	assert.False(t, cfg.Auth.FoldEmailCase)
	assert.Equal(t, 5.0, cfg.Auth.RateLimitRPS)
	assert.Equal(t, 10, cfg.Auth.RateLimitBurst)
	assert.False(t, cfg.Database.Enabled())
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, EngineNone, cfg.Emotion.Engine)
	assert.Equal(t, 3*time.Second, cfg.Emotion.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Emotion.InitTimeout)
	assert.Zero(t, cfg.Emotion.RetryAfter)
	assert.Equal(t, 2000, cfg.Emotion.MaxChars)
	assert.True(t, cfg.Emotion.AnalyzeRequireAuth)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.dev, https://b.dev")
	t.Setenv("TRUST_PROXY_HEADERS", "true")
	t.Setenv("JWT_SECRET_KEY", "prod-secret")
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "2h")
	t.Setenv("PASSWORD_HASHER", "argon2id")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("AUTH_FOLD_EMAIL_CASE", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/moodart")
	t.Setenv("EMOTION_INFERENCE_URL", "http://localhost:8000/classify")
	t.Setenv("EMOTION_ENGINE_RETRY_AFTER", "1m")
	t.Setenv("ANALYZE_REQUIRE_AUTH", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.TrustProxyHeaders)
	assert.Equal(t, "prod-secret", cfg.Auth.JWTSecret)
	assert.False(t, cfg.Auth.InsecureSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "argon2id", cfg.Auth.PasswordHasher)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Auth.FoldEmailCase)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, EngineInference, cfg.Emotion.Engine)
	assert.Equal(t, time.Minute, cfg.Emotion.RetryAfter)
	assert.False(t, cfg.Emotion.AnalyzeRequireAuth)
}

func TestLoadAutoPrefersArk(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("Model", "doubao")
	t.Setenv("EMOTION_INFERENCE_URL", "http://localhost:8000/classify")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EngineArk, cfg.Emotion.Engine)
	assert.True(t, cfg.AI.Enabled())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                   "80 80",
		"TRUST_PROXY_HEADERS":    "yes please",
		"JWT_ACCESS_TOKEN_TTL":   "forever",
		"PASSWORD_HASHER":        "md5",
		"BCRYPT_COST":            "99",
		"AUTH_FOLD_EMAIL_CASE":   "maybe",
		"EMOTION_ENGINE":         "gpu",
		"EMOTION_ENGINE_TIMEOUT": "-1s",
		"ANALYZE_REQUIRE_AUTH":   "sometimes",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}

	t.Run("inference without url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EMOTION_ENGINE", "inference")
		_, err := Load()
		require.Error(t, err)
	})
}
