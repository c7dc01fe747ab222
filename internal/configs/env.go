package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Store backends selectable via flag or environment.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// StoreConfig selects and configures the profile store backend.
type StoreConfig struct {
	// Backend is "file" or "postgres".
	Backend string

	// ProfileDir is the shared directory for the file backend. Both
	// partners' devices must point at the same directory (typically a
	// synced folder).
	ProfileDir string

	// DatabaseURL is the postgres DSN for the postgres backend.
	DatabaseURL string
}

// LoadStoreConfig reads store settings from the environment, loading a .env
// file first when one exists. Flag values passed in take precedence over
// the environment.
func LoadStoreConfig(flagBackend, flagProfileDir string) (*StoreConfig, error) {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &StoreConfig{
		Backend:     os.Getenv("ENTWINE_STORE"),
		ProfileDir:  os.Getenv("ENTWINE_PROFILE_DIR"),
		DatabaseURL: os.Getenv("ENTWINE_DB_URL"),
	}

	if flagBackend != "" {
		cfg.Backend = flagBackend
	}
	if flagProfileDir != "" {
		cfg.ProfileDir = flagProfileDir
	}

	if cfg.Backend == "" {
		cfg.Backend = StoreFile
	}
	if cfg.ProfileDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.ProfileDir = filepath.Join(home, "entwine-profiles")
	}

	switch cfg.Backend {
	case StoreFile, StorePostgres:
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if cfg.Backend == StorePostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("ENTWINE_DB_URL is required for the postgres backend")
	}

	return cfg, nil
}
