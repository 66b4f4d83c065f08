package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("ADMIN_URL", "")
	t.Setenv("DATABASE_URL", "")

	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("Env = %q, want dev", cfg.Env)
	}
	if cfg.Port != 8080 {
		t.Fatalf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.AdminURL != "change_password" {
		t.Fatalf("AdminURL = %q, want change_password", cfg.AdminURL)
	}
	if cfg.DBURL == "" {
		t.Fatal("DBURL should be assembled from DB_* defaults")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("DATABASE_URL", "postgres://x@y/z")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Fatalf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.AccessTTL() != 5*time.Minute {
		t.Fatalf("AccessTTL = %s, want 5m", cfg.AccessTTL())
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Fatalf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.DBURL != "postgres://x@y/z" {
		t.Fatalf("DBURL = %q", cfg.DBURL)
	}
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("PAGE_SIZE", "lots")

	if got := getEnvInt("PAGE_SIZE", 20); got != 20 {
		t.Fatalf("getEnvInt = %d, want 20", got)
	}
}

func TestStoreAndSampleRatio(t *testing.T) {
	t.Setenv("USER_STORE", "memory")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.25")

	cfg := Load()

	if cfg.Store != "memory" {
		t.Fatalf("Store = %q, want memory", cfg.Store)
	}
	if cfg.OTelSampleRatio != 0.25 {
		t.Fatalf("OTelSampleRatio = %v, want 0.25", cfg.OTelSampleRatio)
	}

	t.Setenv("OTEL_SAMPLE_RATIO", "half")
	if got := getEnvFloat("OTEL_SAMPLE_RATIO", 1); got != 1 {
		t.Fatalf("getEnvFloat = %v, want fallback 1", got)
	}
}
