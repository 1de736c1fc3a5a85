package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	DatabaseURL string
	OpsToken    string

	LLMProvider    string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	YandexAPIKey   string
	YandexFolderID string
	YandexModel    string
	YandexBaseURL  string

	AdminIDs []string

	DailyBudgetUSD     float64
	BudgetWarningPct   float64
	UsageRetentionDays int
	USDPerInput1K      float64
	USDPerOutput1K     float64
	RubPerUSD          float64

	RateLimitBackend string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Missing required secrets are a hard error so the
// process fails at startup rather than on the first gated call.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		OpsToken:    os.Getenv("OPS_TOKEN"),

		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		YandexAPIKey:   firstEnv("YANDEX_API_KEY", "YC_API_KEY"),
		YandexFolderID: firstEnv("YANDEX_FOLDER_ID", "YC_FOLDER_ID"),
		YandexModel:    os.Getenv("YANDEX_MODEL"),
		YandexBaseURL:  getEnv("YANDEX_BASE_URL", "https://llm.api.cloud.yandex.net"),

		AdminIDs: splitList(os.Getenv("ADMIN_IDS")),

		DailyBudgetUSD:     getEnvFloat("DAILY_BUDGET_USD", 10),
		BudgetWarningPct:   getEnvFloat("BUDGET_WARNING_THRESHOLD", 80),
		UsageRetentionDays: getEnvInt("USAGE_RETENTION_DAYS", 30),
		USDPerInput1K:      getEnvFloat("USD_PER_INPUT_1K", 0.0005),
		USDPerOutput1K:     getEnvFloat("USD_PER_OUTPUT_1K", 0.0015),
		RubPerUSD:          getEnvFloat("RUB_PER_USD", 95),

		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "memory"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.OpsToken == "" {
		return nil, fmt.Errorf("OPS_TOKEN is required")
	}

	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required (LLM_PROVIDER=openai)")
		}
	case "yandex":
		if cfg.YandexAPIKey == "" {
			return nil, fmt.Errorf("YANDEX_API_KEY is required (LLM_PROVIDER=yandex)")
		}
		if cfg.YandexModel == "" && cfg.YandexFolderID == "" {
			return nil, fmt.Errorf("YANDEX_MODEL or YANDEX_FOLDER_ID is required (LLM_PROVIDER=yandex)")
		}
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}

	switch cfg.RateLimitBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
