package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE",
		"DB_MIN_CONNS", "DB_MAX_CONNS", "DB_ACQUIRE_TIMEOUT_SECONDS", "CLIENT_PAYMENT_TERMS_DAYS",
		"ALLOWED_ORIGINS", "LOG_LEVEL", "SERVER_PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.MinConns != 5 || cfg.Database.MaxConns != 10 {
		t.Errorf("pool sizing = %d/%d, want 5/10", cfg.Database.MinConns, cfg.Database.MaxConns)
	}
	if cfg.Database.AcquireTimeout != 60*time.Second {
		t.Errorf("AcquireTimeout = %s, want 60s", cfg.Database.AcquireTimeout)
	}
	if cfg.ClientPaymentTermsDays != 0 {
		t.Errorf("ClientPaymentTermsDays = %d, want 0", cfg.ClientPaymentTermsDays)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
}

func TestLoad_FieldsAndURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "stock")
	t.Setenv("DB_USER", "clerk")
	t.Setenv("DB_PASSWORD", "p@ss word")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("CLIENT_PAYMENT_TERMS_DAYS", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.Database.ConnString()
	if !strings.HasPrefix(got, "postgres://clerk:") || !strings.Contains(got, "@db.internal:6543/stock?sslmode=require") {
		t.Errorf("ConnString = %q", got)
	}
	if strings.Contains(got, "p@ss word") {
		t.Errorf("password not escaped in %q", got)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.ClientPaymentTermsDays != 14 {
		t.Errorf("ClientPaymentTermsDays = %d, want 14", cfg.ClientPaymentTermsDays)
	}

	t.Setenv("DATABASE_URL", "postgres://x@y/z")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.ConnString() != "postgres://x@y/z" {
		t.Errorf("DATABASE_URL should win, got %q", cfg.Database.ConnString())
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric port", "DB_PORT", "five"},
		{"min above max", "DB_MIN_CONNS", "50"},
		{"negative terms", "CLIENT_PAYMENT_TERMS_DAYS", "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestLogError_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug")
	logger.SetOutput(&buf)

	LogError(logger, "core", "ConfirmOrder", "confirm order", map[string]int{"order_id": 7}, errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["module"] != "core" || entry["funcName"] != "ConfirmOrder" || entry["msg"] != "boom" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["data"]; !ok {
		t.Errorf("data field missing: %v", entry)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %s, want debug", logger.GetLevel())
	}
}
