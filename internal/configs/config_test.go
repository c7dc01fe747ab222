package configs

import (
	"path/filepath"
	"testing"
)

// withTempSettings points the package settings at a temp directory for the
// duration of a test.
func withTempSettings(t *testing.T) string {
	t.Helper()
	original := UserEntwineSettings
	originalGlobal := GlobalUserConfig
	dir := t.TempDir()
	UserEntwineSettings = &UserSettings{
		KeysPath:    filepath.Join(dir, "keys"),
		ConfigsPath: filepath.Join(dir, "configs"),
		Username:    "tester",
	}
	GlobalUserConfig = nil
	t.Cleanup(func() {
		UserEntwineSettings = original
		GlobalUserConfig = originalGlobal
	})
	return dir
}

func TestEnsureUserConfig(t *testing.T) {
	withTempSettings(t)

	t.Run("FirstRunCreatesIdentity", func(t *testing.T) {
		config, err := EnsureUserConfig()
		if err != nil {
			t.Fatalf("EnsureUserConfig failed: %v", err)
		}
		if config.User.UUID == "" {
			t.Error("No user UUID was generated")
		}
		if config.Device.Name == "" {
			t.Error("No device name was generated")
		}
		if config.Device.CreatedAt.IsZero() {
			t.Error("Device creation time was not recorded")
		}
	})

	t.Run("SecondRunIsStable", func(t *testing.T) {
		first, err := EnsureUserConfig()
		if err != nil {
			t.Fatalf("First EnsureUserConfig failed: %v", err)
		}
		second, err := EnsureUserConfig()
		if err != nil {
			t.Fatalf("Second EnsureUserConfig failed: %v", err)
		}
		if first.User.UUID != second.User.UUID {
			t.Error("User UUID changed between runs")
		}
		if first.Device.Name != second.Device.Name {
			t.Error("Device name changed between runs")
		}
	})
}

func TestUserConfigRoundTrip(t *testing.T) {
	withTempSettings(t)

	config := &UserConfig{}
	config.User.Email = "pat@example.com"
	config.User.UUID = GenerateUserUUID()
	config.Partner.UUID = GenerateUserUUID()

	if err := SaveUserConfig(config); err != nil {
		t.Fatalf("SaveUserConfig failed: %v", err)
	}

	loaded, err := LoadUserConfig()
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}
	if loaded.User.Email != config.User.Email {
		t.Errorf("Email = %q, want %q", loaded.User.Email, config.User.Email)
	}
	if loaded.User.UUID != config.User.UUID {
		t.Error("User UUID did not survive the round trip")
	}
	if loaded.Partner.UUID != config.Partner.UUID {
		t.Error("Partner UUID did not survive the round trip")
	}
}

func TestLoadStoreConfig(t *testing.T) {
	t.Run("DefaultsToFileBackend", func(t *testing.T) {
		t.Setenv("ENTWINE_STORE", "")
		t.Setenv("ENTWINE_PROFILE_DIR", "")
		t.Setenv("ENTWINE_DB_URL", "")

		cfg, err := LoadStoreConfig("", "")
		if err != nil {
			t.Fatalf("LoadStoreConfig failed: %v", err)
		}
		if cfg.Backend != StoreFile {
			t.Errorf("Backend = %q, want %q", cfg.Backend, StoreFile)
		}
		if cfg.ProfileDir == "" {
			t.Error("No default profile directory")
		}
	})

	t.Run("EnvironmentSelectsPostgres", func(t *testing.T) {
		t.Setenv("ENTWINE_STORE", StorePostgres)
		t.Setenv("ENTWINE_DB_URL", "postgres://localhost/entwine")

		cfg, err := LoadStoreConfig("", "")
		if err != nil {
			t.Fatalf("LoadStoreConfig failed: %v", err)
		}
		if cfg.Backend != StorePostgres {
			t.Errorf("Backend = %q, want %q", cfg.Backend, StorePostgres)
		}
		if cfg.DatabaseURL != "postgres://localhost/entwine" {
			t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
		}
	})

	t.Run("PostgresRequiresDSN", func(t *testing.T) {
		t.Setenv("ENTWINE_STORE", StorePostgres)
		t.Setenv("ENTWINE_DB_URL", "")
		if _, err := LoadStoreConfig("", ""); err == nil {
			t.Error("Expected an error for postgres without a DSN")
		}
	})

	t.Run("FlagsOverrideEnvironment", func(t *testing.T) {
		t.Setenv("ENTWINE_STORE", StorePostgres)
		t.Setenv("ENTWINE_PROFILE_DIR", "/env/dir")
		t.Setenv("ENTWINE_DB_URL", "postgres://localhost/entwine")

		cfg, err := LoadStoreConfig(StoreFile, "/flag/dir")
		if err != nil {
			t.Fatalf("LoadStoreConfig failed: %v", err)
		}
		if cfg.Backend != StoreFile {
			t.Errorf("Backend = %q, want flag value %q", cfg.Backend, StoreFile)
		}
		if cfg.ProfileDir != "/flag/dir" {
			t.Errorf("ProfileDir = %q, want flag value", cfg.ProfileDir)
		}
	})

	t.Run("UnknownBackendRejected", func(t *testing.T) {
		if _, err := LoadStoreConfig("carrier-pigeon", ""); err == nil {
			t.Error("Expected an error for an unknown backend")
		}
	})
}
