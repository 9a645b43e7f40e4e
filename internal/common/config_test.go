package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
}

func TestConfig_DefaultReportingCurrency(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.ReportingCurrency != "CZK" {
		t.Errorf("ReportingCurrency default = %q, want CZK", cfg.ReportingCurrency)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("SHANON_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_EODHDKeyEnvOverride(t *testing.T) {
	t.Setenv("EODHD_API_KEY", "from-env")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Clients.EODHD.APIKey != "from-env" {
		t.Errorf("EODHD.APIKey = %q, want %q", cfg.Clients.EODHD.APIKey, "from-env")
	}
}

func TestConfig_StorageBackendEnvOverride(t *testing.T) {
	t.Setenv("SHANON_STORAGE_BACKEND", "sqlite")
	t.Setenv("SHANON_STORAGE_DSN", "/tmp/shanon.db")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Storage.DSN != "/tmp/shanon.db" {
		t.Errorf("Storage.DSN = %q, want /tmp/shanon.db", cfg.Storage.DSN)
	}
}

func TestLoadConfig_MergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shanon.toml")
	content := `
reporting_currency = "eur"

[quotes]
ttl = "1h"
workers = 4

[clients.eodhd]
rate_limit = 2.5
timeout = "3s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ReportingCurrency != "EUR" {
		t.Errorf("ReportingCurrency = %q, want EUR", cfg.ReportingCurrency)
	}
	if cfg.Quotes.GetTTL() != time.Hour {
		t.Errorf("Quotes TTL = %v, want 1h", cfg.Quotes.GetTTL())
	}
	if cfg.Quotes.GetWorkers() != 4 {
		t.Errorf("Quotes workers = %d, want 4", cfg.Quotes.GetWorkers())
	}
	if cfg.Clients.EODHD.RateLimit != 2.5 {
		t.Errorf("EODHD rate limit = %v, want 2.5", cfg.Clients.EODHD.RateLimit)
	}
	if cfg.Clients.EODHD.GetTimeout() != 3*time.Second {
		t.Errorf("EODHD timeout = %v, want 3s", cfg.Clients.EODHD.GetTimeout())
	}
	// Untouched sections keep their defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoadConfig_MissingFileSkipped(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.Backend != "surrealdb" {
		t.Errorf("Storage.Backend = %q, want surrealdb", cfg.Storage.Backend)
	}
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[quotes\nttl ="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error for invalid TOML")
	}
}

func TestDurationFallbacks(t *testing.T) {
	q := QuotesConfig{TTL: "not-a-duration", PerCallDelay: ""}
	if q.GetTTL() != 15*time.Minute {
		t.Errorf("GetTTL fallback = %v, want 15m", q.GetTTL())
	}
	if q.GetPerCallDelay() != 500*time.Millisecond {
		t.Errorf("GetPerCallDelay fallback = %v, want 500ms", q.GetPerCallDelay())
	}
	if q.GetWorkers() != 1 {
		t.Errorf("GetWorkers fallback = %d, want 1", q.GetWorkers())
	}
	s := StorageConfig{}
	if s.GetTimeout() != 5*time.Second {
		t.Errorf("storage timeout fallback = %v, want 5s", s.GetTimeout())
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cases := map[string]bool{"production": true, "prod": true, " PROD ": true, "development": false, "": false}
	for env, want := range cases {
		cfg := &Config{Environment: env}
		if got := cfg.IsProduction(); got != want {
			t.Errorf("IsProduction(%q) = %v, want %v", env, got, want)
		}
	}
}
