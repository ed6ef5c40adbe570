package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the SafeStep service.
type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	// DatabaseURL is a Postgres DSN. When empty the service falls back
	// to a local SQLite file at SQLitePath.
	DatabaseURL string
	SQLitePath  string

	RedisURL string

	Session  SessionConfig
	Kafka    KafkaConfig
	Assist   AssistantConfig
	Schedule ScheduleConfig
}

type SessionConfig struct {
	Secret   string
	Name     string
	MaxAge   time.Duration
	Secure   bool
	HTTPOnly bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AssistantConfig configures the care assistant chat integration.
// The service runs without it; the assistant endpoints report
// "not configured" when APIKey is empty.
type AssistantConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type ScheduleConfig struct {
	PredictionCron string
	AlertSweepCron string
}

// LoadConfig reads configuration from the environment, loading a .env
// file first when present.
func LoadConfig() (*Config, error) {
	// .env is optional; ignore the error when the file is absent
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "safestep.db"),
		RedisURL:    os.Getenv("REDIS_URL"),
		Session: SessionConfig{
			Secret:   os.Getenv("SESSION_SECRET"),
			Name:     getEnv("SESSION_NAME", "safestep_session"),
			MaxAge:   time.Duration(getEnvInt("SESSION_MAX_AGE_MINUTES", 720)) * time.Minute,
			Secure:   getEnv("ENVIRONMENT", "development") == "production",
			HTTPOnly: true,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "safestep.events"),
		},
		Assist: AssistantConfig{
			APIKey:  os.Getenv("ASSISTANT_API_KEY"),
			BaseURL: os.Getenv("ASSISTANT_BASE_URL"),
			Model:   getEnv("ASSISTANT_MODEL", "gpt-4o-mini"),
		},
		Schedule: ScheduleConfig{
			PredictionCron: getEnv("PREDICTION_CRON", "0 2 * * *"),
			AlertSweepCron: getEnv("ALERT_SWEEP_CRON", "0 * * * *"),
		},
	}

	if cfg.Environment == "production" && cfg.Session.Secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required in production")
	}
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = "safestep-dev-secret"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
