// Package config loads and persists the vault configuration file and
// resolves the paths that hang off the data directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matheus3301/chatvault/internal/index"
)

// Config represents ~/.chatvault/config.toml.
type Config struct {
	// DataDir holds the database, key file, lock and logs. Empty means the
	// default under the user's home directory.
	DataDir string `toml:"data_dir"`

	Search      SearchConfig      `toml:"search"`
	Compression CompressionConfig `toml:"compression"`
}

// SearchConfig selects and tunes the search index strategy.
type SearchConfig struct {
	// Strategy is "fts" or "memory".
	Strategy string `toml:"strategy"`
	// ArchiveCacheSize bounds the in-memory strategy's archive LRU.
	ArchiveCacheSize int `toml:"archive_cache_size"`
	// ResultCacheSize bounds the in-memory strategy's result LRU.
	ResultCacheSize int `toml:"result_cache_size"`
}

// CompressionConfig tunes whole-archive and per-field compression.
type CompressionConfig struct {
	// ThresholdBytes is the estimated-size cutoff for whole-archive compression.
	ThresholdBytes int `toml:"threshold_bytes"`
	// MinFieldBytes is the per-field floor below which compression is skipped.
	MinFieldBytes int `toml:"min_field_bytes"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Strategy:         index.StrategyFTS,
			ArchiveCacheSize: 50,
			ResultCacheSize:  20,
		},
		Compression: CompressionConfig{
			ThresholdBytes: 10 * 1024,
		},
	}
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Search.Strategy {
	case index.StrategyFTS, index.StrategyMemory:
	default:
		return fmt.Errorf("unknown search strategy %q", c.Search.Strategy)
	}
	if c.Search.ArchiveCacheSize <= 0 || c.Search.ResultCacheSize <= 0 {
		return fmt.Errorf("cache sizes must be positive")
	}
	return nil
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads the config, falling back to defaults when the file
// does not exist yet.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// DefaultDir returns ~/.chatvault.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatvault"
	}
	return filepath.Join(home, ".chatvault")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// ResolveDataDir applies the default when the config leaves DataDir empty.
func (c *Config) ResolveDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return DefaultDir()
}

// DBPath returns the SQLite database path inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.ResolveDataDir(), "vault.db")
}

// KeyPath returns the field-encryption key file path.
func (c *Config) KeyPath() string {
	return filepath.Join(c.ResolveDataDir(), "vault.key")
}

// LogPath returns the engine log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.ResolveDataDir(), "logs", "vault.log")
}
