package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("unexpected default port: %d", cfg.Port)
	}
	if cfg.StoreEngine != StoreEngineFile {
		t.Fatalf("unexpected default store: %q", cfg.StoreEngine)
	}
	if cfg.RoomIdleTTL != 30*time.Minute {
		t.Fatalf("unexpected default idle ttl: %v", cfg.RoomIdleTTL)
	}
	if cfg.TemporalEnabled {
		t.Fatal("temporal should be disabled by default")
	}
	if cfg.Sources["port"] != sourceDefault {
		t.Fatalf("unexpected port source: %q", cfg.Sources["port"])
	}
}

func TestLoadConfigReadsYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
port: 9000
auth_token: file-token
state_dir: /var/lib/parley
temporal:
  host: temporal.internal:7233
  enabled: true
summarizer:
  base_url: https://llm.example.com/v1
  api_key: sk-test
  model: gpt-4o
room_idle_ttl: 45m
allowed_origins:
  - app.example.com
`)

	cfg, err := loadConfig([]string{"--config", path})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != 9000 || cfg.Sources["port"] != sourceFile {
		t.Fatalf("file port not applied: %d (%s)", cfg.Port, cfg.Sources["port"])
	}
	if cfg.AuthToken != "file-token" {
		t.Fatalf("unexpected token: %q", cfg.AuthToken)
	}
	if !cfg.TemporalEnabled || cfg.TemporalHost != "temporal.internal:7233" {
		t.Fatalf("temporal config not applied: %#v", cfg)
	}
	if cfg.SummarizerBaseURL != "https://llm.example.com/v1" || cfg.SummarizerAPIKey != "sk-test" {
		t.Fatalf("summarizer config not applied: %#v", cfg)
	}
	if cfg.RoomIdleTTL != 45*time.Minute {
		t.Fatalf("unexpected idle ttl: %v", cfg.RoomIdleTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "app.example.com" {
		t.Fatalf("unexpected origins: %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "port: 9000\nauth_token: file-token\n")
	t.Setenv("PARLEY_PORT", "9100")
	t.Setenv("PARLEY_TOKEN", "env-token")

	cfg, err := loadConfig([]string{"--config", path})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != 9100 || cfg.Sources["port"] != sourceEnv {
		t.Fatalf("env port not applied: %d (%s)", cfg.Port, cfg.Sources["port"])
	}
	if cfg.AuthToken != "env-token" {
		t.Fatalf("env token not applied: %q", cfg.AuthToken)
	}
}

func TestLoadConfigFlagOverridesEnv(t *testing.T) {
	t.Setenv("PARLEY_PORT", "9100")

	cfg, err := loadConfig([]string{"--port", "9200"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != 9200 || cfg.Sources["port"] != sourceFlag {
		t.Fatalf("flag port not applied: %d (%s)", cfg.Port, cfg.Sources["port"])
	}
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	if _, err := loadConfig([]string{"--store", "redis"}); err == nil {
		t.Fatal("expected an error for an unknown store engine")
	}
}

func TestLoadConfigPostgresRequiresURL(t *testing.T) {
	if _, err := loadConfig([]string{"--store", "postgres"}); err == nil {
		t.Fatal("expected an error when postgres has no url")
	}

	cfg, err := loadConfig([]string{"--store", "postgres", "--postgres-url", "postgres://localhost/parley"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StoreEngine != StoreEnginePostgres {
		t.Fatalf("unexpected store engine: %q", cfg.StoreEngine)
	}
}

func TestLoadConfigRejectsMissingExplicitFile(t *testing.T) {
	if _, err := loadConfig([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}); err == nil {
		t.Fatal("expected an error for an explicitly named missing file")
	}
}

func TestLoadConfigParsesOriginList(t *testing.T) {
	t.Setenv("PARLEY_ALLOWED_ORIGINS", "a.example.com, b.example.com,")

	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "b.example.com" {
		t.Fatalf("unexpected origins: %#v", cfg.AllowedOrigins)
	}
}

func TestVersionFlagSetsShowVersion(t *testing.T) {
	cfg, err := loadConfig([]string{"--version"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.ShowVersion {
		t.Fatal("expected --version to set ShowVersion")
	}
}
