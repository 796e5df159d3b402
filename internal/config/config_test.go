package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.QueueName != "media:jobs" {
		t.Errorf("QueueName = %q, want media:jobs", cfg.QueueName)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.BatchSize)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.TransformURL != "" {
		t.Errorf("TransformURL = %q, want empty (remote transform disabled)", cfg.TransformURL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WORKER_BATCH_SIZE", "25")
	t.Setenv("STUCK_AFTER", "30m")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", cfg.BatchSize)
	}
	if cfg.StuckAfter != 30*time.Minute {
		t.Errorf("StuckAfter = %v, want 30m", cfg.StuckAfter)
	}
	if !cfg.MinioUseSSL {
		t.Error("MinioUseSSL = false, want true")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:          "8080",
			DBPath:        "test.db",
			MinioEndpoint: "localhost:9000",
			MinioBucket:   "bucket",
			RedisAddr:     "localhost:6379",
			QueueName:     "jobs",
			BatchSize:     10,
			PollInterval:  time.Second,
			MaxAttempts:   5,
			SweepInterval: time.Minute,
			StuckAfter:    15 * time.Minute,
			LogLevel:      "info",
			LogFormat:     "text",
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty port", func(c *Config) { c.Port = "" }, "PORT"},
		{"non-numeric port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "PORT"},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "DB_PATH"},
		{"empty bucket", func(c *Config) { c.MinioBucket = "" }, "MINIO_BUCKET"},
		{"empty redis addr", func(c *Config) { c.RedisAddr = "" }, "REDIS_ADDR"},
		{"empty queue name", func(c *Config) { c.QueueName = "" }, "QUEUE_NAME"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "WORKER_BATCH_SIZE"},
		{"zero max attempts", func(c *Config) { c.MaxAttempts = 0 }, "WORKER_MAX_ATTEMPTS"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "WORKER_POLL_INTERVAL"},
		{"zero sweep interval", func(c *Config) { c.SweepInterval = 0 }, "SWEEP_INTERVAL"},
		{"zero stuck threshold", func(c *Config) { c.StuckAfter = 0 }, "STUCK_AFTER"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.LogFormat = "yaml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"PORT", "DB_PATH", "MINIO_ENDPOINT", "REDIS_ADDR"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}
