package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/crave-grocer/api/internal/enum"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grocer.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GROCER_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8081" || cfg.Ledger.Backend != enum.LedgerBackendFile {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
port = "9000"
catalog_path = "/srv/catalog.json"
allowed_origins = ["https://shop.example"]
session_ttl = "45m"

[ledger]
backend = "sqlite"
path = "/srv/ledger.db"
`)
	t.Setenv("GROCER_CONFIG", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("port: env should win, got %s", cfg.Port)
	}
	if cfg.CatalogPath != "/srv/catalog.json" {
		t.Errorf("catalog path: got %s", cfg.CatalogPath)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Errorf("session ttl: got %v", cfg.SessionTTL)
	}
	if cfg.Ledger.Backend != enum.LedgerBackendSQLite || cfg.Ledger.Path != "/srv/ledger.db" {
		t.Errorf("ledger: got %+v", cfg.Ledger)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://shop.example" {
		t.Errorf("origins: got %v", cfg.AllowedOrigins)
	}
	if cfg.JWTSecret == "" {
		t.Error("unset keys should keep their defaults")
	}
}

func TestLoad_EnvLists(t *testing.T) {
	t.Setenv("GROCER_CONFIG", "")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins: got %v", cfg.AllowedOrigins)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("session ttl: got %v", cfg.SessionTTL)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("GROCER_CONFIG", "")
	t.Setenv("SESSION_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad SESSION_TTL")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("GROCER_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "mongo" }, "unknown ledger backend"},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, "jwt_secret"},
		{"postgres without url", func(c *Config) {
			c.Ledger.Backend = enum.LedgerBackendPostgres
			c.Ledger.DatabaseURL = ""
		}, "database_url"},
		{"file without path", func(c *Config) { c.Ledger.Path = "" }, "ledger.path"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
