package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string

	LLMProvider      string
	LLMModel         string
	LLMStageTimeout  time.Duration
	MaxConcurrentJob int
	DailyJobLimit    int
	WorkerCount      int
	JobQueueSize     int
	ResumeProgress   int
	QuotaTimezone    string

	SearchCacheTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),

		LLMProvider:      getEnv("LLM_PROVIDER", "openai"),
		LLMModel:         getEnv("LLM_MODEL", ""),
		LLMStageTimeout:  time.Duration(getEnvInt("LLM_STAGE_TIMEOUT_SECONDS", 90)) * time.Second,
		MaxConcurrentJob: getEnvInt("MAX_CONCURRENT_JOBS", 2),
		DailyJobLimit:    getEnvInt("DAILY_JOB_LIMIT", 20),
		WorkerCount:      getEnvInt("WORKER_COUNT", 4),
		JobQueueSize:     getEnvInt("JOB_QUEUE_SIZE", 64),
		ResumeProgress:   getEnvInt("RESUME_PROGRESS", 30),
		QuotaTimezone:    getEnv("QUOTA_TZ", "UTC"),

		SearchCacheTTL: time.Duration(getEnvInt("SEARCH_CACHE_TTL_HOURS", 24)) * time.Hour,

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

// QuotaLocation resolves the timezone used for the daily-quota midnight boundary.
func (c Config) QuotaLocation() *time.Location {
	loc, err := time.LoadLocation(c.QuotaTimezone)
	if err != nil {
		log.Printf("invalid QUOTA_TZ %q, falling back to UTC", c.QuotaTimezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
