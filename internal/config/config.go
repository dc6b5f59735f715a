package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting of the gateway and the forwarding proxy.
type Config struct {
	Env       string
	Port      string
	ProxyPort string
	GinMode   string
	LogLevel  string

	BackendURL       string
	ProxyUpstream    string
	ProxyMountPrefix string

	DBDriver string
	DBDSN    string

	SessionTTL  time.Duration
	HTTPTimeout time.Duration
	CORSOrigins []string
}

// Load reads configs/.env (when present) and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	sessionTTL, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	httpTimeout, err := time.ParseDuration(getEnvOrDefault("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	backendURL := strings.TrimRight(getEnvOrDefault("BACKEND_URL", "http://localhost:8000/api"), "/")

	cfg := &Config{
		Env:              getEnvOrDefault("APP_ENV", "development"),
		Port:             getEnvOrDefault("PORT", "8080"),
		ProxyPort:        getEnvOrDefault("PROXY_PORT", "8888"),
		GinMode:          os.Getenv("GIN_MODE"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		BackendURL:       backendURL,
		ProxyUpstream:    strings.TrimRight(getEnvOrDefault("PROXY_UPSTREAM", strings.TrimSuffix(backendURL, "/api")), "/"),
		ProxyMountPrefix: getEnvOrDefault("PROXY_MOUNT_PREFIX", "/.netlify/functions/api"),
		DBDriver:         getEnvOrDefault("DB_DRIVER", "postgres"),
		SessionTTL:       sessionTTL,
		HTTPTimeout:      httpTimeout,
		CORSOrigins:      splitList(getEnvOrDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
	}
	cfg.DBDSN = databaseDSN(cfg.DBDriver)

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

// IsProduction reports whether cookies must be cross-site and secure.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.GinMode == "release"
}

func databaseDSN(driver string) string {
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn
	}
	if driver == "sqlite" {
		return "file:gateway.db?cache=shared"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnvOrDefault("DB_USER", "postgres"),
		getEnvOrDefault("DB_PASSWORD", "postgres"),
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_NAME", "postgres"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
