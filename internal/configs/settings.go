package configs

import (
	"log"
	"os"
	"path/filepath"

	"github.com/entwineapp/entwine/internal/utils"
)

type UserSettings struct {
	// KeysPath is the local device keystore directory. Private keys live
	// here and nowhere else.
	KeysPath string

	// ConfigsPath holds the user's config.toml and the audit log.
	ConfigsPath string

	Username string
}

var UserEntwineSettings *UserSettings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	username, err := utils.GetUsername()
	if err != nil {
		log.Fatalf("error getting username: %s", err)
	}

	// These paths are machine-scoped, so initializing here is fine.
	UserEntwineSettings = &UserSettings{
		KeysPath:    filepath.Join(dataDir, "entwine", "keys"),
		ConfigsPath: filepath.Join(configDir, "entwine"),
		Username:    username,
	}
}
