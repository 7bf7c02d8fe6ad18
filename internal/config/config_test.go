package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/chatvault/internal/index"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DataDir = "/var/lib/chatvault"
	cfg.Search.Strategy = index.StrategyMemory
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DataDir != "/var/lib/chatvault" {
		t.Errorf("DataDir = %q, want %q", loaded.DataDir, "/var/lib/chatvault")
	}
	if loaded.Search.Strategy != index.StrategyMemory {
		t.Errorf("Strategy = %q, want %q", loaded.Search.Strategy, index.StrategyMemory)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Search.Strategy != index.StrategyFTS {
		t.Errorf("Strategy = %q, want default %q", cfg.Search.Strategy, index.StrategyFTS)
	}
	if cfg.Compression.ThresholdBytes != 10*1024 {
		t.Errorf("ThresholdBytes = %d, want %d", cfg.Compression.ThresholdBytes, 10*1024)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte("data_dir = \"/tmp/x\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Search.ArchiveCacheSize != 50 {
		t.Errorf("ArchiveCacheSize = %d, want 50", cfg.Search.ArchiveCacheSize)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	cfg.Search.Strategy = "elastic"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted unknown strategy")
	}
	cfg = Default()
	cfg.Search.ResultCacheSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted zero cache size")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data/vault"}
	if got := cfg.DBPath(); got != "/data/vault/vault.db" {
		t.Errorf("DBPath() = %q", got)
	}
	if got := cfg.KeyPath(); got != "/data/vault/vault.key" {
		t.Errorf("KeyPath() = %q", got)
	}
	if got := cfg.LogPath(); got != filepath.Join("/data/vault", "logs", "vault.log") {
		t.Errorf("LogPath() = %q", got)
	}
}
