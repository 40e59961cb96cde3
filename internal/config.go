package internal

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Auth backend
	PocketBaseURL    string
	AuthCollection   string
	BackendTimeout   time.Duration
	BackendHTTPCache bool // cache cacheable GETs such as auth-methods

	// Session gate
	GateRefreshTimeout time.Duration
	ProtectedRoutes    []string // empty keeps the gate defaults
	AuthRoutes         []string // empty keeps the gate defaults
	LoginPath          string
	LandingPath        string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

// IsSecure reports whether cookies carry the Secure flag and HSTS is sent.
func (c *Config) IsSecure() bool {
	return c.Env != "development"
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		PocketBaseURL:    strings.TrimRight(getEnv("POCKETBASE_URL", "http://127.0.0.1:8090"), "/"),
		AuthCollection:   getEnv("AUTH_COLLECTION", "users"),
		BackendTimeout:   getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		BackendHTTPCache: getEnvBool("BACKEND_HTTP_CACHE", false),

		GateRefreshTimeout: getEnvDuration("GATE_REFRESH_TIMEOUT", 3*time.Second),
		ProtectedRoutes:    getEnvList("PROTECTED_ROUTES"),
		AuthRoutes:         getEnvList("AUTH_ROUTES"),
		LoginPath:          getEnv("LOGIN_PATH", "/auth/signin"),
		LandingPath:        getEnv("LANDING_PATH", "/dashboard"),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	u, err := url.Parse(cfg.PocketBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("POCKETBASE_URL must be an absolute http(s) URL, got: %s", cfg.PocketBaseURL)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got: %d", cfg.Port)
	}

	if cfg.BackendTimeout <= 0 {
		return nil, fmt.Errorf("BACKEND_TIMEOUT must be positive, got: %s", cfg.BackendTimeout)
	}
	if cfg.GateRefreshTimeout <= 0 {
		return nil, fmt.Errorf("GATE_REFRESH_TIMEOUT must be positive, got: %s", cfg.GateRefreshTimeout)
	}

	for name, path := range map[string]string{"LOGIN_PATH": cfg.LoginPath, "LANDING_PATH": cfg.LandingPath} {
		if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
			return nil, fmt.Errorf("%s must be a local path, got: %s", name, path)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
