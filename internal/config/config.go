// Package config loads process configuration from the environment and
// the sync target list from a YAML file. Process settings (paths, log
// environment, sync cadence) come from env vars; per-server sync targets
// are data, not deployment settings, so they live in a file the user
// edits.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const appDirName = "inkwell-sync"

// Config holds all environment-based configuration.
type Config struct {
	// Environment controls log format: "production" emits JSON, anything
	// else emits human-readable text at debug level.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// DataDir is where the engine keeps manifests and run state.
	// Defaults to the XDG data directory for the app.
	DataDir string `env:"INKWELL_DATA_DIR"`

	// JournalDB is the path to the journal SQLite database. Defaults to
	// <DataDir>/journal.db.
	JournalDB string `env:"INKWELL_JOURNAL_DB"`

	// FilesDir is the root of local attachment storage. Defaults to
	// <DataDir>/files.
	FilesDir string `env:"INKWELL_FILES_DIR"`

	// TargetsFile is the YAML file listing sync targets. Defaults to the
	// XDG config directory for the app.
	TargetsFile string `env:"INKWELL_TARGETS_FILE"`

	// SyncInterval is how often to repeat the sync. Zero means run once
	// and exit.
	SyncInterval time.Duration `env:"INKWELL_SYNC_INTERVAL" envDefault:"0"`
}

// Load reads configuration from environment variables. It first attempts
// to load a .env file if present, then parses env vars and fills path
// defaults from the XDG base directories.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(xdg.DataHome, appDirName)
	}

	absDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data dir to absolute path: %w", err)
	}

	cfg.DataDir = absDir

	if cfg.JournalDB == "" {
		cfg.JournalDB = filepath.Join(cfg.DataDir, "journal.db")
	}

	if cfg.FilesDir == "" {
		cfg.FilesDir = filepath.Join(cfg.DataDir, "files")
	}

	if cfg.TargetsFile == "" {
		cfg.TargetsFile = filepath.Join(xdg.ConfigHome, appDirName, "targets.yaml")
	}

	if cfg.SyncInterval < 0 {
		return nil, fmt.Errorf("INKWELL_SYNC_INTERVAL must not be negative")
	}

	return cfg, nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ManifestDir returns the directory holding local sync manifests.
func (c *Config) ManifestDir() string {
	return filepath.Join(c.DataDir, "manifests")
}

// StateDB returns the path of the run-state database.
func (c *Config) StateDB() string {
	return filepath.Join(c.DataDir, "state.db")
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}
