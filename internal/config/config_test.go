package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"KLV_ADDR", "KLV_DB_PATH", "KLV_ALLOWED_ORIGINS",
		"KLV_JWT_EXPIRY", "KLV_HISTORY_RETENTION", "KLV_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Address != ":9180" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.DBPath != "klv-monitor.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("JWTExpiry = %v", cfg.JWTExpiry)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:9180" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KLV_ADDR", ":8080")
	t.Setenv("KLV_JWT_SECRET", "s3cret")
	t.Setenv("KLV_JWT_EXPIRY", "2h")
	t.Setenv("KLV_ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("KLV_HISTORY_RETENTION", "30m")

	cfg := Load()
	if cfg.Address != ":8080" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.JWTExpiry != 2*time.Hour {
		t.Errorf("JWTExpiry = %v", cfg.JWTExpiry)
	}
	if cfg.HistoryRetention != 30*time.Minute {
		t.Errorf("HistoryRetention = %v", cfg.HistoryRetention)
	}
	want := []string{"http://a.example", "http://b.example"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("KLV_JWT_EXPIRY", "not-a-duration")
	t.Setenv("KLV_HISTORY_RETENTION", "-5m")

	cfg := Load()
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("JWTExpiry = %v, want default", cfg.JWTExpiry)
	}
	if cfg.HistoryRetention != 24*time.Hour {
		t.Errorf("HistoryRetention = %v, want default", cfg.HistoryRetention)
	}
}
