package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	DBMaxConns  int

	StoragePath     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	StorageBaseURL  string
	RateLimitPerMin int

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	StabilityAPIKey  string
	StabilityBaseURL string

	ReplicateAPIKey  string
	ReplicateBaseURL string

	RemoveBgAPIKey   string
	ClipdropAPIKey   string
	VectorizerAPIKey string

	GenerationWorkers  int
	PostprocessWorkers int
	RetryBaseDelay     time.Duration
	CompletedRetention int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),

		StoragePath:     getEnv("STORAGE_PATH", "./storage"),
		MinioEndpoint:   os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:     getEnv("MINIO_BUCKET", "styleforge-assets"),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", false),
		StorageBaseURL:  getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		StabilityAPIKey:  os.Getenv("STABILITY_API_KEY"),
		StabilityBaseURL: getEnv("STABILITY_BASE_URL", "https://api.stability.ai"),

		ReplicateAPIKey:  os.Getenv("REPLICATE_API_KEY"),
		ReplicateBaseURL: getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),

		RemoveBgAPIKey:   os.Getenv("REMOVEBG_API_KEY"),
		ClipdropAPIKey:   os.Getenv("CLIPDROP_API_KEY"),
		VectorizerAPIKey: os.Getenv("VECTORIZER_API_KEY"),

		GenerationWorkers:  getEnvInt("GENERATION_WORKERS", 2),
		PostprocessWorkers: getEnvInt("POSTPROCESS_WORKERS", 2),
		RetryBaseDelay:     time.Second * time.Duration(getEnvInt("RETRY_BASE_DELAY_SECONDS", 5)),
		CompletedRetention: getEnvInt("COMPLETED_JOB_RETENTION", 100),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.GenerationWorkers < 1 {
		cfg.GenerationWorkers = 1
	}
	if cfg.PostprocessWorkers < 1 {
		cfg.PostprocessWorkers = 1
	}
	if cfg.DBMaxConns < 1 {
		cfg.DBMaxConns = 10
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
