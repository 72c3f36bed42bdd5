package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting of the service.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Store  StoreConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Store: store}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	UploadMaxBytes int64
}

func loadServerConfig() (ServerConfig, error) {
	host := getEnvOrDefault("HOST", "0.0.0.0")
	port := getEnvOrDefault("PORT", "8000")

	var addr string
	if strings.Contains(port, ":") {
		// PORT may carry a full address such as ":8000" or "127.0.0.1:8000".
		addr = port
	} else {
		if _, err := strconv.Atoi(port); err != nil {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = net.JoinHostPort(host, port)
	}

	maxBytes := int64(10 << 20)
	if override, err := parseOptionalIntEnv("UPLOAD_MAX_BYTES"); err != nil {
		return ServerConfig{}, err
	} else if override != nil && *override > 0 {
		maxBytes = int64(*override)
	}

	return ServerConfig{
		Addr:           addr,
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		UploadMaxBytes: maxBytes,
	}, nil
}

// Generator providers.
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// AIConfig describes the text generation backend.
type AIConfig struct {
	Provider string

	GeminiAPIKey string
	GeminiModel  string

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

// Enabled reports whether the selected provider has credentials.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderArk:
		return c.arkEnabled()
	default:
		return false
	}
}

func (c AIConfig) arkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the Ark chat model used by the eino chain.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.arkEnabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY and Model, or ARK_ACCESS_KEY and ARK_SECRET_KEY")
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

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
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

	cfg := AIConfig{
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-flash-latest"),
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("Model")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
	}

	provider := strings.ToLower(strings.TrimSpace(os.Getenv("GENERATOR_PROVIDER")))
	switch provider {
	case "":
		provider = ProviderGemini
		if cfg.GeminiAPIKey == "" && cfg.arkEnabled() {
			provider = ProviderArk
		}
	case ProviderGemini, ProviderArk:
	default:
		return AIConfig{}, fmt.Errorf("invalid GENERATOR_PROVIDER value %q", provider)
	}
	cfg.Provider = provider

	return cfg, nil
}

// StoreConfig describes the primary and fallback transcript stores.
type StoreConfig struct {
	PrimaryURL      string
	Database        string
	Collection      string
	Timeout         time.Duration
	FallbackPath    string
	TranscriptLimit int
}

func loadStoreConfig() (StoreConfig, error) {
	timeout, err := parseDurationEnv("PRIMARY_TIMEOUT", 2*time.Second)
	if err != nil {
		return StoreConfig{}, err
	}

	limit := 100
	if override, err := parseOptionalIntEnv("TRANSCRIPT_LIMIT"); err != nil {
		return StoreConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return StoreConfig{}, fmt.Errorf("TRANSCRIPT_LIMIT must be positive, got %d", *override)
		}
		limit = *override
	}

	primaryURL := strings.TrimSpace(os.Getenv("PRIMARY_STORE_URL"))
	if primaryURL == "" {
		primaryURL = getEnvOrDefault("MONGODB_URL", "mongodb://localhost:27017")
	}

	return StoreConfig{
		PrimaryURL:      primaryURL,
		Database:        getEnvOrDefault("MONGODB_DATABASE", "interview_simulator"),
		Collection:      getEnvOrDefault("MONGODB_COLLECTION", "chats"),
		Timeout:         timeout,
		FallbackPath:    getEnvOrDefault("FALLBACK_STORE_PATH", "chat_history.ndjson"),
		TranscriptLimit: limit,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
