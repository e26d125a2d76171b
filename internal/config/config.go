package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level ledgerbot.yaml configuration. Durations are
// written as Go duration strings ("10s", "5m"). Environment variables
// override file values.
type Config struct {
	DBPath          string          `yaml:"db_path"`
	MetricsAddr     string          `yaml:"metrics_addr"`
	DefaultCurrency string          `yaml:"default_currency"`
	Queue           QueueConfig     `yaml:"queue"`
	Extractor       ExtractorConfig `yaml:"extractor"`
	Dedup           DedupConfig     `yaml:"dedup"`
}

// QueueConfig tunes the scheduler.
type QueueConfig struct {
	PollInterval  string `yaml:"poll_interval"`
	MaxConcurrent int64  `yaml:"max_concurrent"`
	MaxAttempts   int    `yaml:"max_attempts"`
	Retention     string `yaml:"retention"`
}

// ExtractorConfig points at the AI service.
type ExtractorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	Timeout     string  `yaml:"timeout"`
}

// DedupConfig tunes the duplicate detector.
type DedupConfig struct {
	Window string `yaml:"window"`
}

// Load reads an optional YAML file, applies env overrides, and fills
// defaults. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.DBPath = getEnv("LEDGERBOT_DB_PATH", cfg.DBPath)
	cfg.MetricsAddr = getEnv("LEDGERBOT_METRICS_ADDR", cfg.MetricsAddr)
	cfg.DefaultCurrency = getEnv("LEDGERBOT_CURRENCY", cfg.DefaultCurrency)
	cfg.Extractor.BaseURL = getEnv("OLLAMA_BASE_URL", cfg.Extractor.BaseURL)
	cfg.Extractor.Model = getEnv("OLLAMA_MODEL", cfg.Extractor.Model)
	cfg.Queue.MaxConcurrent = getEnvInt64("LEDGERBOT_MAX_CONCURRENT", cfg.Queue.MaxConcurrent)
	cfg.Queue.MaxAttempts = getEnvInt("LEDGERBOT_MAX_ATTEMPTS", cfg.Queue.MaxAttempts)

	if cfg.DBPath == "" {
		cfg.DBPath = "ledgerbot.db"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "SGD"
	}
	return cfg, nil
}

// PollInterval parses the configured poll interval, defaulting to 10s.
func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.Queue.PollInterval, 10*time.Second)
}

// Retention parses the completed-job retention age, defaulting to 7 days.
func (c *Config) Retention() time.Duration {
	return parseDuration(c.Queue.Retention, 7*24*time.Hour)
}

// ExtractorTimeout parses the AI call timeout, defaulting to 60s.
func (c *Config) ExtractorTimeout() time.Duration {
	return parseDuration(c.Extractor.Timeout, 60*time.Second)
}

// DedupWindow parses the duplicate search window, defaulting to 5m.
func (c *Config) DedupWindow() time.Duration {
	return parseDuration(c.Dedup.Window, 5*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
