package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glucobridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// fixedEnv returns a lookupFunc backed by a map.
func fixedEnv(vars map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
proxy:
  listen_address: "127.0.0.1:8080"
  read_timeout: "10s"

upstream:
  base_url: "https://ns.example.com"
  timeout: "5s"
  page_size:
    default: 25
  project_fields: ["sgv", "date"]

auth:
  inbound_secret: "in-secret"
  outbound_secret: "out-secret"
  channels:
    hashed_query: false

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Proxy.ListenAddress != "127.0.0.1:8080" {
		t.Errorf("expected listen address %q, got %q", "127.0.0.1:8080", cfg.Proxy.ListenAddress)
	}
	if cfg.Proxy.ReadTimeout != 10*time.Second {
		t.Errorf("expected read timeout 10s, got %v", cfg.Proxy.ReadTimeout)
	}
	if cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("expected upstream timeout 5s, got %v", cfg.Upstream.Timeout)
	}
	if cfg.Upstream.PageSize.Default != 25 {
		t.Errorf("expected page size default 25, got %d", cfg.Upstream.PageSize.Default)
	}
	if len(cfg.Upstream.ProjectFields) != 2 {
		t.Errorf("expected 2 projected fields, got %v", cfg.Upstream.ProjectFields)
	}
	if cfg.Auth.InboundSecret != "in-secret" || cfg.Auth.OutboundSecret != "out-secret" {
		t.Errorf("secrets not loaded: %+v", cfg.Auth)
	}
	if Enabled(cfg.Auth.Channels.HashedQuery, true) {
		t.Error("expected hashed query channel to be disabled")
	}
	if !Enabled(cfg.Auth.Channels.PlainHeader, true) {
		t.Error("expected plain header channel to default to enabled")
	}
	if cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("expected text format, got %q", cfg.Telemetry.Logging.Format)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "proxy: [unclosed")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_MissingUpstream(t *testing.T) {
	path := writeConfig(t, "proxy:\n  listen_address: \"127.0.0.1:8080\"\n")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error when upstream is missing")
	}

	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if vErr.Errors[0].Field != "upstream.base_url" {
		t.Errorf("expected upstream.base_url error, got %q", vErr.Errors[0].Field)
	}
}

func TestApplyEnvOverrides_LegacyNames(t *testing.T) {
	cfg := &Config{}
	err := applyEnvOverrides(cfg, fixedEnv(map[string]string{
		"TARGET_BASE":           "https://legacy.example.com",
		"INBOUND_SECRET":        "gm-secret",
		"NIGHTSCOUT_API_SECRET": "ns-secret",
		"PORT":                  "4000",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Upstream.BaseURL != "https://legacy.example.com" {
		t.Errorf("TARGET_BASE not applied: %q", cfg.Upstream.BaseURL)
	}
	if cfg.Auth.InboundSecret != "gm-secret" {
		t.Errorf("INBOUND_SECRET not applied: %q", cfg.Auth.InboundSecret)
	}
	if cfg.Auth.OutboundSecret != "ns-secret" {
		t.Errorf("NIGHTSCOUT_API_SECRET not applied: %q", cfg.Auth.OutboundSecret)
	}
	if cfg.Proxy.ListenAddress != "0.0.0.0:4000" {
		t.Errorf("PORT not applied: %q", cfg.Proxy.ListenAddress)
	}
}

func TestApplyEnvOverrides_Precedence(t *testing.T) {
	cfg := &Config{Proxy: ProxyConfig{ListenAddress: "127.0.0.1:8080"}}
	err := applyEnvOverrides(cfg, fixedEnv(map[string]string{
		"NIGHTSCOUT_API_SECRET":               "ns-secret",
		"OUTBOUND_SECRET":                     "out-secret",
		"TARGET_BASE":                         "https://legacy.example.com",
		"GLUCOBRIDGE_UPSTREAM_BASE_URL":       "https://new.example.com",
		"PORT":                                "4000",
		"GLUCOBRIDGE_UPSTREAM_TIMEOUT":        "3s",
		"GLUCOBRIDGE_UPSTREAM_PROJECT_FIELDS": "sgv, date ,,direction",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Auth.OutboundSecret != "out-secret" {
		t.Errorf("OUTBOUND_SECRET should win over NIGHTSCOUT_API_SECRET, got %q", cfg.Auth.OutboundSecret)
	}
	if cfg.Upstream.BaseURL != "https://new.example.com" {
		t.Errorf("prefixed variable should win over TARGET_BASE, got %q", cfg.Upstream.BaseURL)
	}
	if cfg.Proxy.ListenAddress != "127.0.0.1:4000" {
		t.Errorf("PORT should keep the configured host, got %q", cfg.Proxy.ListenAddress)
	}
	if cfg.Upstream.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", cfg.Upstream.Timeout)
	}
	want := []string{"sgv", "date", "direction"}
	if strings.Join(cfg.Upstream.ProjectFields, ",") != strings.Join(want, ",") {
		t.Errorf("expected fields %v, got %v", want, cfg.Upstream.ProjectFields)
	}
}

func TestApplyEnvOverrides_InvalidValues(t *testing.T) {
	cfg := &Config{}
	err := applyEnvOverrides(cfg, fixedEnv(map[string]string{
		"GLUCOBRIDGE_UPSTREAM_TIMEOUT":           "soon",
		"GLUCOBRIDGE_UPSTREAM_PAGE_SIZE_DEFAULT": "fifty",
		"GLUCOBRIDGE_AUTH_CHANNELS_HASHED_QUERY": "maybe",
	}))
	if err == nil {
		t.Fatal("expected error for malformed overrides")
	}

	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(vErr.Errors) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(vErr.Errors), vErr)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("TARGET_BASE", "https://ns.example.com")
	t.Setenv("GLUCOBRIDGE_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Upstream.BaseURL != "https://ns.example.com" {
		t.Errorf("expected upstream from env, got %q", cfg.Upstream.BaseURL)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected warn level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_EnvBeatsFile(t *testing.T) {
	path := writeConfig(t, `
upstream:
  base_url: "https://file.example.com"
auth:
  inbound_secret: "from-file"
`)
	t.Setenv("GLUCOBRIDGE_AUTH_INBOUND_SECRET", "from-env")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.InboundSecret != "from-env" {
		t.Errorf("expected env to win, got %q", cfg.Auth.InboundSecret)
	}
	if cfg.Upstream.BaseURL != "https://file.example.com" {
		t.Errorf("expected file upstream, got %q", cfg.Upstream.BaseURL)
	}
}
