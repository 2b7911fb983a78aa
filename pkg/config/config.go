package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

type Config struct {
	HTTPAddr    string        `yaml:"http_addr"`
	FrontendURL string        `yaml:"frontend_url"`
	DBPath      string        `yaml:"db_path"`
	Log         LogConfig     `yaml:"log"`
	Auth        AuthConfig    `yaml:"auth"`
	Sources     SourcesConfig `yaml:"sources"`
	Refresh     RefreshConfig `yaml:"refresh"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// SourcesConfig tunes outbound calls to title sources. Limits apply per
// source, not globally.
type SourcesConfig struct {
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxRetries        int     `yaml:"max_retries"`
	UserAgent         string  `yaml:"user_agent"`
	GenericFallback   bool    `yaml:"generic_fallback"`
}

type RefreshConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"` // 0 disables the periodic sweep
	Concurrency     int `yaml:"concurrency"`
	TimeoutSeconds  int `yaml:"timeout_seconds"`
}

func Default() Config {
	return Config{
		HTTPAddr:    ":8080",
		FrontendURL: "http://localhost:3000",
		Log:         LogConfig{Level: "info"},
		Auth: AuthConfig{
			// dev default (change for production)
			JWTSecret: "dev-secret-change-me",
			JWTIssuer: "titletrack",
		},
		Sources: SourcesConfig{
			TimeoutSeconds:    12,
			RequestsPerSecond: 2,
			Burst:             4,
			MaxRetries:        2,
		},
		Refresh: RefreshConfig{
			IntervalMinutes: 0,
			Concurrency:     4,
			TimeoutSeconds:  60,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. A .env file in the working directory is loaded
// first if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	path := getEnvOrDefault("TITLETRACK_CONFIG", defaultConfigPath)
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}
	return ApplyEnv(cfg), nil
}

// LoadFile reads a YAML file over the defaults. A missing file is not an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func ApplyEnv(cfg Config) Config {
	cfg.HTTPAddr = getEnvOrDefault("TITLETRACK_HTTP_ADDR", cfg.HTTPAddr)
	cfg.FrontendURL = getEnvOrDefault("FRONTEND_URL", cfg.FrontendURL)
	cfg.DBPath = getEnvOrDefault("TITLETRACK_DB_PATH", cfg.DBPath)

	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.JSON = strings.EqualFold(v, "json")
	}
	cfg.Log.File = getEnvOrDefault("LOG_FILE", cfg.Log.File)

	cfg.Auth.JWTSecret = getEnvOrDefault("TITLETRACK_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTIssuer = getEnvOrDefault("TITLETRACK_JWT_ISSUER", cfg.Auth.JWTIssuer)

	cfg.Sources.TimeoutSeconds = GetEnvInt("SOURCE_TIMEOUT_SECONDS", cfg.Sources.TimeoutSeconds)
	cfg.Sources.MaxRetries = GetEnvInt("SOURCE_MAX_RETRIES", cfg.Sources.MaxRetries)
	cfg.Sources.Burst = GetEnvInt("SOURCE_BURST", cfg.Sources.Burst)
	if v := os.Getenv("SOURCE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sources.RequestsPerSecond = f
		}
	}
	cfg.Sources.UserAgent = getEnvOrDefault("SOURCE_USER_AGENT", cfg.Sources.UserAgent)
	if v := os.Getenv("SOURCE_GENERIC_FALLBACK"); v != "" {
		cfg.Sources.GenericFallback = v == "1" || strings.EqualFold(v, "true")
	}

	cfg.Refresh.IntervalMinutes = GetEnvInt("REFRESH_INTERVAL_MINUTES", cfg.Refresh.IntervalMinutes)
	cfg.Refresh.Concurrency = GetEnvInt("REFRESH_CONCURRENCY", cfg.Refresh.Concurrency)
	cfg.Refresh.TimeoutSeconds = GetEnvInt("REFRESH_TIMEOUT_SECONDS", cfg.Refresh.TimeoutSeconds)
	return cfg
}

func (s SourcesConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 12 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (r RefreshConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

func (r RefreshConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func GetEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
