// Package config loads the small on-disk settings surface the CLI
// binaries share: where the application keeps its data directory, and
// what the database and legacy import files are named within it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/kestrelapp/chatstore/internal/paths"
)

const appName = "chatstore"

// Config holds chatstore's on-disk settings.
type Config struct {
	DataDir          string `toml:"data_dir,omitempty"`
	DatabaseFile     string `toml:"database_file"`
	LegacyImportFile string `toml:"legacy_import_file"`
}

// DefaultConfig returns the default configuration: an XDG-compliant data
// directory and the file names the engine's spec names directly.
func DefaultConfig() Config {
	return Config{
		DataDir:          defaultDataDir(),
		DatabaseFile:     "chat.db",
		LegacyImportFile: "conversations.tsv",
	}
}

// ConfigDir returns the XDG-compliant config directory for chatstore.
func ConfigDir() string {
	return paths.ConfigDir(appName)
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

func defaultDataDir() string {
	return paths.DataDir(appName)
}

// Load reads the config file, returning defaults if it doesn't exist. The
// CHATSTORE_DATA_DIR environment variable, when set, overrides whatever
// data_dir the file (or the defaults) specifies.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnvOverrides(cfg), nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return applyEnvOverrides(cfg), nil
}

func applyEnvOverrides(cfg Config) Config {
	if dir := os.Getenv("CHATSTORE_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// DatabasePath returns the full path to the SQLite database file.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// LegacyImportPath returns the full path to the legacy TSV file.
func (c Config) LegacyImportPath() string {
	return filepath.Join(c.DataDir, c.LegacyImportFile)
}
