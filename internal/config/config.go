package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment.
type Config struct {
	Database DatabaseConfig

	OpenAIAPIKey   string
	ServerPort     string
	AllowedOrigins []string
	LogLevel       string

	// ClientPaymentTermsDays sets the due date of a confirmed order.
	// Zero leaves client invoices without a due date.
	ClientPaymentTermsDays int
}

// DatabaseConfig describes the Postgres connection and pool sizing.
// URL wins over the individual DB_* fields when set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	MinConns       int32
	MaxConns       int32
	AcquireTimeout time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := intEnv("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	minConns, err := intEnv("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, err
	}
	maxConns, err := intEnv("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	if minConns > maxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", minConns, maxConns)
	}
	acquireSeconds, err := intEnv("DB_ACQUIRE_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	terms, err := intEnv("CLIENT_PAYMENT_TERMS_DAYS", 0)
	if err != nil {
		return nil, err
	}
	if terms < 0 {
		return nil, fmt.Errorf("CLIENT_PAYMENT_TERMS_DAYS must not be negative")
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:            os.Getenv("DATABASE_URL"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           port,
			Name:           getEnv("DB_NAME", "wholesale"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       os.Getenv("DB_PASSWORD"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MinConns:       int32(minConns),
			MaxConns:       int32(maxConns),
			AcquireTimeout: time.Duration(acquireSeconds) * time.Second,
		},
		OpenAIAPIKey:           os.Getenv("OPENAI_API_KEY"),
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		AllowedOrigins:         splitList(os.Getenv("ALLOWED_ORIGINS")),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		ClientPaymentTermsDays: terms,
	}
	return cfg, nil
}

// ConnString returns a postgres:// URL usable by both pgx and golang-migrate.
func (c DatabaseConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
