// Package config
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Address        string
	DBPath         string
	PrefsPath      string
	AllowedOrigins []string

	JWTSecret string
	JWTExpiry time.Duration

	// Bootstrap credentials create the first user when the users table is
	// empty. The monitor is a single-operator tool.
	BootstrapEmail    string
	BootstrapPassword string

	HistoryRetention time.Duration

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Address:        env("KLV_ADDR", ":9180"),
		DBPath:         env("KLV_DB_PATH", "klv-monitor.db"),
		PrefsPath:      env("KLV_PREFS_PATH", defaultPrefsPath()),
		AllowedOrigins: splitList(env("KLV_ALLOWED_ORIGINS", "http://localhost:9180")),

		JWTSecret: os.Getenv("KLV_JWT_SECRET"),
		JWTExpiry: envDuration("KLV_JWT_EXPIRY", 24*time.Hour),

		BootstrapEmail:    os.Getenv("KLV_BOOTSTRAP_EMAIL"),
		BootstrapPassword: os.Getenv("KLV_BOOTSTRAP_PASSWORD"),

		HistoryRetention: envDuration("KLV_HISTORY_RETENTION", 24*time.Hour),

		LogLevel:  env("KLV_LOG_LEVEL", "info"),
		LogFormat: env("KLV_LOG_FORMAT", "text"),
	}
}

func defaultPrefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "klv-monitor.yaml"
	}
	return filepath.Join(home, ".config", "klv-monitor", "preferences.yaml")
}

func env(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
