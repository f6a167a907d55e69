package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"golang.org/x/crypto/bcrypt"
)

// DefaultJWTSecret 仅用于本地开发，生产环境必须覆盖。
const DefaultJWTSecret = "supersecretkey"

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Auth     AuthConfig
	Database DatabaseConfig
	AI       AIConfig
	Emotion  EmotionConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	database, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	emotion, err := loadEmotionConfig(ai)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Log:      LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info"), Format: getEnvOrDefault("LOG_FORMAT", "text")},
		Auth:     auth,
		Database: database,
		AI:       ai,
		Emotion:  emotion,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr              string
	AllowedOrigins    []string
	// TrustProxyHeaders 为 true 时按 X-Forwarded-For/X-Real-IP 识别客户端，
	// 只应在可信反向代理之后开启。
	TrustProxyHeaders bool
}

// loadServerConfig 解析服务器监听地址与代理信任设置。
func loadServerConfig() (ServerConfig, error) {
	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))
	trustProxy, err := parseBoolEnv("TRUST_PROXY_HEADERS", false)
	if err != nil {
		return ServerConfig{}, err
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins, TrustProxyHeaders: trustProxy}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins, TrustProxyHeaders: trustProxy}, nil
}

// LogConfig 描述日志级别与输出格式。
type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig 描述账户与令牌相关配置。
type AuthConfig struct {
	JWTSecret      string
	InsecureSecret bool
	TokenTTL       time.Duration
	PasswordHasher string
	BcryptCost     int
	FoldEmailCase  bool
	RateLimitRPS   float64
	RateLimitBurst int
}

func loadAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET_KEY"))
	insecure := secret == ""
	if insecure {
		secret = DefaultJWTSecret
	}

	ttl, err := parseDurationEnv("JWT_ACCESS_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}
	if ttl <= 0 {
		return AuthConfig{}, fmt.Errorf("JWT_ACCESS_TOKEN_TTL must be positive")
	}

	hasher := strings.ToLower(getEnvOrDefault("PASSWORD_HASHER", "bcrypt"))
	switch hasher {
	case "bcrypt", "argon2id":
	default:
		return AuthConfig{}, fmt.Errorf("invalid PASSWORD_HASHER value %q", hasher)
	}

	cost := bcrypt.DefaultCost
	if override, err := parseOptionalIntEnv("BCRYPT_COST"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		if *override < bcrypt.MinCost || *override > bcrypt.MaxCost {
			return AuthConfig{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
		cost = *override
	}

	fold, err := parseBoolEnv("AUTH_FOLD_EMAIL_CASE", false)
	if err != nil {
		return AuthConfig{}, err
	}

	rps := 5.0
	if override, err := parseOptionalFloatEnv("AUTH_RATE_LIMIT_RPS"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		rps = *override
	}

	burst := 10
	if override, err := parseOptionalIntEnv("AUTH_RATE_LIMIT_BURST"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		burst = *override
	}

	return AuthConfig{
		JWTSecret:      secret,
		InsecureSecret: insecure,
		TokenTTL:       ttl,
		PasswordHasher: hasher,
		BcryptCost:     cost,
		FoldEmailCase:  fold,
		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}, nil
}

// DatabaseConfig 描述 Postgres 连接，URL 为空时使用内存存储。
type DatabaseConfig struct {
	URL         string
	AutoMigrate bool
}

// Enabled 表示是否配置了数据库。
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	migrate, err := parseBoolEnv("DATABASE_AUTO_MIGRATE", true)
	if err != nil {
		return DatabaseConfig{}, err
	}
	return DatabaseConfig{
		URL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AutoMigrate: migrate,
	}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// 情绪引擎提供方
const (
	EngineAuto      = "auto"
	EngineArk       = "ark"
	EngineInference = "inference"
	EngineNone      = "none"
)

// EmotionConfig 描述情绪分类引擎与映射表配置。
type EmotionConfig struct {
	// Engine 为解析 auto 之后的实际提供方。
	Engine             string
	InferenceURL       string
	InferenceToken     string
	Timeout            time.Duration
	InitTimeout        time.Duration
	RetryAfter         time.Duration
	MaxChars           int
	AnalyzeRequireAuth bool
	LabelTablePath     string
	ArtTablePath       string
}

func loadEmotionConfig(ai AIConfig) (EmotionConfig, error) {
	inferenceURL := strings.TrimSpace(os.Getenv("EMOTION_INFERENCE_URL"))

	engine := strings.ToLower(getEnvOrDefault("EMOTION_ENGINE", EngineAuto))
	switch engine {
	case EngineAuto:
		switch {
		case ai.Enabled():
			engine = EngineArk
		case inferenceURL != "":
			engine = EngineInference
		default:
			engine = EngineNone
		}
	case EngineArk, EngineNone:
	case EngineInference:
		if inferenceURL == "" {
			return EmotionConfig{}, fmt.Errorf("EMOTION_ENGINE=inference requires EMOTION_INFERENCE_URL")
		}
	default:
		return EmotionConfig{}, fmt.Errorf("invalid EMOTION_ENGINE value %q", engine)
	}

	timeout, err := parseDurationEnv("EMOTION_ENGINE_TIMEOUT", 3*time.Second)
	if err != nil {
		return EmotionConfig{}, err
	}
	initTimeout, err := parseDurationEnv("EMOTION_ENGINE_INIT_TIMEOUT", 10*time.Second)
	if err != nil {
		return EmotionConfig{}, err
	}
	retryAfter, err := parseDurationEnv("EMOTION_ENGINE_RETRY_AFTER", 0)
	if err != nil {
		return EmotionConfig{}, err
	}

	maxChars := 2000
	if override, err := parseOptionalIntEnv("EMOTION_ENGINE_MAX_CHARS"); err != nil {
		return EmotionConfig{}, err
	} else if override != nil && *override > 0 {
		maxChars = *override
	}

	requireAuth, err := parseBoolEnv("ANALYZE_REQUIRE_AUTH", true)
	if err != nil {
		return EmotionConfig{}, err
	}

	return EmotionConfig{
		Engine:             engine,
		InferenceURL:       inferenceURL,
		InferenceToken:     strings.TrimSpace(os.Getenv("EMOTION_INFERENCE_TOKEN")),
		Timeout:            timeout,
		InitTimeout:        initTimeout,
		RetryAfter:         retryAfter,
		MaxChars:           maxChars,
		AnalyzeRequireAuth: requireAuth,
		LabelTablePath:     strings.TrimSpace(os.Getenv("EMOTION_LABEL_TABLE")),
		ArtTablePath:       strings.TrimSpace(os.Getenv("EMOTION_ART_TABLE")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
