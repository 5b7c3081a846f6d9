package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHOP_REPORTS_API_KEY_MASTER", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default db port 5432, got %d", cfg.Database.Port)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected redis enabled by default")
	}
	if cfg.Reporting.RecomputeInterval != 24*time.Hour {
		t.Errorf("expected default recompute interval 24h, got %s", cfg.Reporting.RecomputeInterval)
	}
	if !cfg.Reporting.RecomputeOnStart {
		t.Error("expected recompute-on-start enabled by default")
	}
	if cfg.Reporting.CacheTTL != 5*time.Minute {
		t.Errorf("expected default cache TTL 5m, got %s", cfg.Reporting.CacheTTL)
	}
	if cfg.RateLimit.EventRPS != 500 {
		t.Errorf("expected default event RPS 500, got %f", cfg.RateLimit.EventRPS)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHOP_REPORTS_API_KEY_MASTER", "test-key")
	t.Setenv("SHOP_REPORTS_HTTP_ADDR", ":9090")
	t.Setenv("SHOP_REPORTS_DB_MAX_CONNS", "50")
	t.Setenv("SHOP_REPORTS_RECOMPUTE_INTERVAL", "1h")
	t.Setenv("SHOP_REPORTS_RECOMPUTE_ON_START", "false")
	t.Setenv("SHOP_REPORTS_AUTH_SKIP_PATHS", "/health, /metrics")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %q", cfg.Server.Addr)
	}
	if cfg.Database.MaxConns != 50 {
		t.Errorf("expected max conns 50, got %d", cfg.Database.MaxConns)
	}
	if cfg.Reporting.RecomputeInterval != time.Hour {
		t.Errorf("expected recompute interval 1h, got %s", cfg.Reporting.RecomputeInterval)
	}
	if cfg.Reporting.RecomputeOnStart {
		t.Error("expected recompute-on-start disabled")
	}
	if len(cfg.Auth.SkipPaths) != 2 || cfg.Auth.SkipPaths[1] != "/metrics" {
		t.Errorf("expected trimmed skip paths, got %v", cfg.Auth.SkipPaths)
	}
}

func TestLoadRequiresMasterKeyWhenAuthEnabled(t *testing.T) {
	t.Setenv("SHOP_REPORTS_API_KEY_MASTER", "")
	t.Setenv("SHOP_REPORTS_AUTH_ENABLED", "true")

	if _, err := Load(); err == nil {
		t.Error("expected error when auth enabled without master key")
	}

	t.Setenv("SHOP_REPORTS_AUTH_ENABLED", "false")
	if _, err := Load(); err != nil {
		t.Errorf("expected no error with auth disabled, got %v", err)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "reports", SSLMode: "require",
	}
	want := "postgres://u:p@db:5433/reports?sslmode=require"
	if got := d.DSN(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
