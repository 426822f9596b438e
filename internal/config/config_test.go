package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	t.Setenv("FILINGWATCH_EDGAR_USER_AGENT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// EDGAR defaults
	if cfg.Edgar.UserAgent != "" {
		t.Errorf("Edgar.UserAgent: got %q, want empty", cfg.Edgar.UserAgent)
	}
	if cfg.Edgar.SubmissionsURL != "https://data.sec.gov/submissions" {
		t.Errorf("Edgar.SubmissionsURL: got %q", cfg.Edgar.SubmissionsURL)
	}
	if cfg.Edgar.RateLimit != 10 {
		t.Errorf("Edgar.RateLimit: got %d, want 10", cfg.Edgar.RateLimit)
	}
	if cfg.Edgar.MaxRetries != 4 {
		t.Errorf("Edgar.MaxRetries: got %d, want 4", cfg.Edgar.MaxRetries)
	}
	if cfg.Edgar.BaseDelay() != 350*time.Millisecond {
		t.Errorf("Edgar.BaseDelay: got %s, want 350ms", cfg.Edgar.BaseDelay())
	}
	if cfg.Edgar.Jitter() != 150*time.Millisecond {
		t.Errorf("Edgar.Jitter: got %s, want 150ms", cfg.Edgar.Jitter())
	}

	// Cache defaults
	if cfg.Cache.SnapshotTTL() != 30*time.Second {
		t.Errorf("Cache.SnapshotTTL: got %s, want 30s", cfg.Cache.SnapshotTTL())
	}
	if cfg.Cache.StreamTTL() != 5*time.Second {
		t.Errorf("Cache.StreamTTL: got %s, want 5s", cfg.Cache.StreamTTL())
	}
	if cfg.Cache.DocumentTTL() != 10*time.Minute {
		t.Errorf("Cache.DocumentTTL: got %s, want 10m", cfg.Cache.DocumentTTL())
	}

	// Stream defaults
	if cfg.Stream.MinInterval() != 5*time.Second || cfg.Stream.MaxInterval() != 300*time.Second {
		t.Errorf("Stream bounds: got [%s, %s]", cfg.Stream.MinInterval(), cfg.Stream.MaxInterval())
	}
	if cfg.Stream.DefaultInterval() != 30*time.Second {
		t.Errorf("Stream.DefaultInterval: got %s", cfg.Stream.DefaultInterval())
	}
	if cfg.Stream.DefaultMaxEvents != 10 {
		t.Errorf("Stream.DefaultMaxEvents: got %d, want 10", cfg.Stream.DefaultMaxEvents)
	}

	// API defaults
	if cfg.API.Addr() != "0.0.0.0:8080" {
		t.Errorf("API.Addr: got %q", cfg.API.Addr())
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

// ── LoadFromFile ──

func TestDefaultsIgnoreEnvironment(t *testing.T) {
	t.Setenv("FILINGWATCH_STREAM_DEFAULT_MAX_EVENTS", "99")
	t.Setenv("FILINGWATCH_EDGAR_USER_AGENT", "someone else@example.com")

	cfg := Defaults()
	if cfg.Stream.DefaultMaxEvents != 10 {
		t.Errorf("Stream.DefaultMaxEvents: got %d, want 10", cfg.Stream.DefaultMaxEvents)
	}
	if cfg.Stream.DefaultInterval() != 30*time.Second {
		t.Errorf("Stream.DefaultInterval: got %s", cfg.Stream.DefaultInterval())
	}
	if cfg.Cache.SnapshotTTL() != 30*time.Second {
		t.Errorf("Cache.SnapshotTTL: got %s", cfg.Cache.SnapshotTTL())
	}
	if cfg.Edgar.UserAgent != "" {
		t.Errorf("Edgar.UserAgent: got %q, want empty", cfg.Edgar.UserAgent)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
edgar:
  user_agent: "Acme Research ops@acme.example"
  rate_limit: 5
  max_retries: 2
cache:
  snapshot_ttl_sec: 60
stream:
  min_interval_sec: 10
api:
  port: 9090
  cors_origins: ["https://acme.example"]
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	t.Setenv("FILINGWATCH_EDGAR_USER_AGENT", "")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Edgar.UserAgent != "Acme Research ops@acme.example" {
		t.Errorf("Edgar.UserAgent: got %q", cfg.Edgar.UserAgent)
	}
	if cfg.Edgar.RateLimit != 5 || cfg.Edgar.MaxRetries != 2 {
		t.Errorf("Edgar: got %+v", cfg.Edgar)
	}
	// Unset keys keep their defaults
	if cfg.Edgar.BaseDelayMs != 350 {
		t.Errorf("Edgar.BaseDelayMs: got %d, want 350", cfg.Edgar.BaseDelayMs)
	}
	if cfg.Cache.SnapshotTTLSec != 60 {
		t.Errorf("Cache.SnapshotTTLSec: got %d, want 60", cfg.Cache.SnapshotTTLSec)
	}
	if cfg.Stream.MinIntervalSec != 10 || cfg.Stream.MaxIntervalSec != 300 {
		t.Errorf("Stream: got %+v", cfg.Stream)
	}
	if cfg.API.Port != 9090 || len(cfg.API.CORSOrigins) != 1 {
		t.Errorf("API: got %+v", cfg.API)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("edgar:\n  user_agent: from-file-agent\n  max_retries: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FILINGWATCH_EDGAR_USER_AGENT", "Env Agent env@example.com")
	t.Setenv("FILINGWATCH_EDGAR_MAX_RETRIES", "7")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Edgar.UserAgent != "Env Agent env@example.com" {
		t.Errorf("UserAgent: got %q", cfg.Edgar.UserAgent)
	}
	if cfg.Edgar.MaxRetries != 7 {
		t.Errorf("MaxRetries: got %d, want 7", cfg.Edgar.MaxRetries)
	}
}

// ── loadDotEnv ──

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FILINGWATCH_TEST_DOTENV=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FILINGWATCH_TEST_DOTENV", "")
	os.Unsetenv("FILINGWATCH_TEST_DOTENV")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("FILINGWATCH_TEST_DOTENV"); got != "from-dotenv" {
		t.Errorf("FILINGWATCH_TEST_DOTENV: got %q", got)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

// ── mask ──

func TestMask(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"Acme Research ops@acme.example", "Acm...ple"},
	}
	for _, tc := range tests {
		if got := mask(tc.input); got != tc.want {
			t.Errorf("mask(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckSettings / checkSetting ──

func TestCheckSettingsEmpty(t *testing.T) {
	t.Setenv("FILINGWATCH_EDGAR_USER_AGENT", "")

	statuses := CheckSettings(&Config{})
	if len(statuses) != 1 {
		t.Fatalf("CheckSettings: got %d statuses, want 1", len(statuses))
	}
	if statuses[0].IsSet || statuses[0].Source != SourceNone {
		t.Errorf("status: got %+v", statuses[0])
	}
}

func TestCheckSettingSourceDetection(t *testing.T) {
	t.Setenv("TEST_VAR", "")

	s := checkSetting("Test", "config-value-long-enough", "TEST_VAR")
	if s.Source != SourceConfig || !s.IsSet {
		t.Errorf("config value: got %+v", s)
	}
	if s.Masked != "con...ugh" {
		t.Errorf("Masked: got %q", s.Masked)
	}

	t.Setenv("TEST_VAR", "env-value-long-enough")
	s = checkSetting("Test", "env-value-long-enough", "TEST_VAR")
	if s.Source != SourceEnv {
		t.Errorf("env value: got source %q, want %q", s.Source, SourceEnv)
	}
}

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
