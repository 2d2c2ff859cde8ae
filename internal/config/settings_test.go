package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)
	t.Setenv("WARDAN_HOME", "")
	t.Setenv(envBaseURL, "")
	t.Setenv(envLogLevel, "")
	t.Setenv(envMetrics, "")
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL() != "http://127.0.0.1:8000" {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL())
	}
	if cfg.QueryPath() != "/api/agent/query" {
		t.Fatalf("unexpected query path: %q", cfg.QueryPath())
	}
	channelURL, err := cfg.ChannelURL()
	if err != nil {
		t.Fatalf("ChannelURL: %v", err)
	}
	if channelURL != "ws://127.0.0.1:8000/api/agent/ws/agent" {
		t.Fatalf("unexpected channel url: %q", channelURL)
	}
	if cfg.DefaultEntity() != "student" {
		t.Fatalf("unexpected entity: %q", cfg.DefaultEntity())
	}
	if cfg.RequestTimeout() != 60*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.RequestTimeout())
	}
}

func TestLoadFromTOML(t *testing.T) {
	home := isolateEnv(t)

	dataDir := filepath.Join(home, ".wardan")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := []byte(strings.Join([]string{
		"[server]",
		`base_url = "https://hostel.example.com/"`,
		"[agent]",
		`request_timeout = "15s"`,
		`default_entity = "Room"`,
		"[logging]",
		`level = "debug"`,
	}, "\n"))
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL() != "https://hostel.example.com" {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL())
	}
	channelURL, err := cfg.ChannelURL()
	if err != nil {
		t.Fatalf("ChannelURL: %v", err)
	}
	if channelURL != "wss://hostel.example.com/api/agent/ws/agent" {
		t.Fatalf("unexpected channel url: %q", channelURL)
	}
	if cfg.RequestTimeout() != 15*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.RequestTimeout())
	}
	if cfg.DefaultEntity() != "room" {
		t.Fatalf("unexpected entity: %q", cfg.DefaultEntity())
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("unexpected level: %q", cfg.LogLevel())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv(envBaseURL, "10.0.0.5:9000")
	t.Setenv(envLogLevel, "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL() != "http://10.0.0.5:9000" {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL())
	}
	if cfg.LogLevel() != "warn" {
		t.Fatalf("unexpected level: %q", cfg.LogLevel())
	}
}

func TestLoadRejectsMalformedDotEnv(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		t.Fatalf("getwd: %v", wdErr)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WARDAN_BASE!URL=10.0.0.5\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "load .env") {
		t.Fatalf("expected .env parse error, got %v", err)
	}
}

func TestEncodeWritesDurationsAsText(t *testing.T) {
	cfg := Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `request_timeout = '1m0s'`) && !strings.Contains(string(data), `request_timeout = "1m0s"`) {
		t.Fatalf("expected encoded duration, got:\n%s", data)
	}
}
