package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port   string
	DBPath string

	// Object store (MinIO / S3-compatible)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Job queue (Redis)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueueName     string

	// External image transform service; empty URL disables the remote path
	// and every transform runs locally.
	TransformURL    string
	TransformAPIKey string

	// Worker tuning
	BatchSize    int
	PollInterval time.Duration
	MaxAttempts  int

	// Reconciliation of versions stuck in processing.
	SweepInterval time.Duration
	StuckAfter    time.Duration

	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("DB_PATH", "soundcrate.db"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "soundcrate"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		QueueName:     getEnv("QUEUE_NAME", "media:jobs"),

		TransformURL:    getEnv("TRANSFORM_URL", ""),
		TransformAPIKey: getEnv("TRANSFORM_API_KEY", ""),

		BatchSize:    getEnvInt("WORKER_BATCH_SIZE", 10),
		PollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		MaxAttempts:  getEnvInt("WORKER_MAX_ATTEMPTS", 5),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Minute),
		StuckAfter:    getEnvDuration("STUCK_AFTER", 15*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.MinioEndpoint == "" {
		errors = append(errors, "MINIO_ENDPOINT cannot be empty")
	}
	if c.MinioBucket == "" {
		errors = append(errors, "MINIO_BUCKET cannot be empty")
	}

	if c.RedisAddr == "" {
		errors = append(errors, "REDIS_ADDR cannot be empty")
	}
	if c.QueueName == "" {
		errors = append(errors, "QUEUE_NAME cannot be empty")
	}

	if c.TransformURL != "" {
		if _, err := url.Parse(c.TransformURL); err != nil {
			errors = append(errors, fmt.Sprintf("TRANSFORM_URL is not a valid URL: %s", c.TransformURL))
		}
	}

	if c.BatchSize < 1 {
		errors = append(errors, fmt.Sprintf("WORKER_BATCH_SIZE must be at least 1, got: %d", c.BatchSize))
	}
	if c.MaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("WORKER_MAX_ATTEMPTS must be at least 1, got: %d", c.MaxAttempts))
	}
	if c.PollInterval <= 0 {
		errors = append(errors, "WORKER_POLL_INTERVAL must be positive")
	}
	if c.SweepInterval <= 0 {
		errors = append(errors, "SWEEP_INTERVAL must be positive")
	}
	if c.StuckAfter <= 0 {
		errors = append(errors, "STUCK_AFTER must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
