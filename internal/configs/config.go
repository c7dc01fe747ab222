package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/entwineapp/entwine/internal/utils"
)

type UserConfig struct {
	User    User         `toml:"user"`
	Device  DeviceConfig `toml:"device"`
	Partner Partner      `toml:"partner"`
}

type User struct {
	Email string `toml:"email"`
	UUID  string `toml:"user_uuid"`
}

type DeviceConfig struct {
	Name      string    `toml:"name"`
	CreatedAt time.Time `toml:"created_at"`
}

type Partner struct {
	UUID string `toml:"partner_uuid"`
}

var GlobalUserConfig *UserConfig

// LoadUserConfig loads the user configuration from the config file.
func LoadUserConfig() (*UserConfig, error) {
	configPath := filepath.Join(UserEntwineSettings.ConfigsPath, "config.toml")

	config := &UserConfig{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	return config, nil
}

// SaveUserConfig saves the user configuration to the config file.
func SaveUserConfig(config *UserConfig) error {
	configPath := filepath.Join(UserEntwineSettings.ConfigsPath, "config.toml")

	if err := SaveTOML(configPath, config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}

	GlobalUserConfig = config
	return nil
}

// GenerateUserUUID generates a new UUID for the user.
func GenerateUserUUID() string {
	return uuid.New().String()
}

// EnsureUserConfig ensures the user configuration exists with a UUID and a
// device name, creating both on first run.
func EnsureUserConfig() (*UserConfig, error) {
	config, err := LoadUserConfig()
	if err != nil {
		return nil, err
	}

	changed := false
	if config.User.UUID == "" {
		config.User.UUID = GenerateUserUUID()
		changed = true
	}
	if config.Device.Name == "" {
		deviceName, err := utils.GenerateDeviceName(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to generate device name: %w", err)
		}
		config.Device.Name = deviceName
		config.Device.CreatedAt = time.Now().UTC()
		changed = true
	}

	if changed {
		if err := SaveUserConfig(config); err != nil {
			return nil, err
		}
	}

	GlobalUserConfig = config
	return config, nil
}
