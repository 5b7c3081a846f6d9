package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Shop-Reports service.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Reporting ReportingConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled     bool
	EventRPS    float64
	EventBurst  int
	ReportRPS   float64
	ReportBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ReportingConfig holds the reporting engine settings.  The aggregation
// and cohort windows are fixed constants in the reports package; only
// scheduling and caching are configurable.
type ReportingConfig struct {
	// RecomputeInterval is the cadence of the batch recomputation job.
	RecomputeInterval time.Duration
	// RecomputeOnStart runs one synchronous recomputation at bootstrap.
	RecomputeOnStart bool
	// CacheTTL bounds staleness of cached dashboard responses.
	CacheTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("SHOP_REPORTS_HTTP_ADDR", ":8080"),
			Env:             getEnv("SHOP_REPORTS_ENV", "development"),
			ShutdownTimeout: getDurationEnv("SHOP_REPORTS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("SHOP_REPORTS_DB_HOST", "localhost"),
			Port:     getIntEnv("SHOP_REPORTS_DB_PORT", 5432),
			User:     getEnv("SHOP_REPORTS_DB_USER", "shopreports"),
			Password: getEnv("SHOP_REPORTS_DB_PASSWORD", "shopreports_secret"),
			DBName:   getEnv("SHOP_REPORTS_DB_NAME", "shopreports"),
			SSLMode:  getEnv("SHOP_REPORTS_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("SHOP_REPORTS_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("SHOP_REPORTS_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("SHOP_REPORTS_REDIS_ENABLED", true),
			Addr:     getEnv("SHOP_REPORTS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("SHOP_REPORTS_REDIS_PASSWORD", ""),
			DB:       getIntEnv("SHOP_REPORTS_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("SHOP_REPORTS_AUTH_ENABLED", true),
			MasterKey: getEnv("SHOP_REPORTS_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("SHOP_REPORTS_AUTH_SKIP_PATHS", []string{"/health", "/metrics", "/events/order-paid"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv("SHOP_REPORTS_RATE_LIMIT_ENABLED", true),
			EventRPS:    getFloatEnv("SHOP_REPORTS_RATE_LIMIT_EVENT_RPS", 500),
			EventBurst:  getIntEnv("SHOP_REPORTS_RATE_LIMIT_EVENT_BURST", 100),
			ReportRPS:   getFloatEnv("SHOP_REPORTS_RATE_LIMIT_REPORT_RPS", 50),
			ReportBurst: getIntEnv("SHOP_REPORTS_RATE_LIMIT_REPORT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("SHOP_REPORTS_LOG_LEVEL", "info"),
			Format: getEnv("SHOP_REPORTS_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("SHOP_REPORTS_METRICS_ENABLED", true),
			Path:    getEnv("SHOP_REPORTS_METRICS_PATH", "/metrics"),
		},
		Reporting: ReportingConfig{
			RecomputeInterval: getDurationEnv("SHOP_REPORTS_RECOMPUTE_INTERVAL", 24*time.Hour),
			RecomputeOnStart:  getBoolEnv("SHOP_REPORTS_RECOMPUTE_ON_START", true),
			CacheTTL:          getDurationEnv("SHOP_REPORTS_CACHE_TTL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("SHOP_REPORTS_API_KEY_MASTER is required when auth is enabled")
	}
	if c.Reporting.RecomputeInterval <= 0 {
		return fmt.Errorf("SHOP_REPORTS_RECOMPUTE_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
