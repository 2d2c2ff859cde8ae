package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPaths(t *testing.T) {
	t.Setenv("WARDAN_HOME", "")
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if !strings.HasSuffix(dataDir, ".wardan") {
		t.Fatalf("unexpected data dir: %s", dataDir)
	}

	storePath, err := StorePath()
	if err != nil {
		t.Fatalf("StorePath: %v", err)
	}
	if !strings.HasSuffix(storePath, filepath.Join(".wardan", "state.db")) {
		t.Fatalf("unexpected store path: %s", storePath)
	}

	configPath, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if !strings.HasSuffix(configPath, filepath.Join(".wardan", "config.toml")) {
		t.Fatalf("unexpected config path: %s", configPath)
	}

	logPath, err := LogPath()
	if err != nil {
		t.Fatalf("LogPath: %v", err)
	}
	if !strings.HasSuffix(logPath, filepath.Join(".wardan", "wardan.log")) {
		t.Fatalf("unexpected log path: %s", logPath)
	}
}

func TestDataDirOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "custom")
	t.Setenv("WARDAN_HOME", dir)

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if dataDir != dir {
		t.Fatalf("expected override %q, got %q", dir, dataDir)
	}
}
