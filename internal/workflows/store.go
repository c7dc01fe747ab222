package workflows

import (
	"github.com/entwineapp/entwine/internal/configs"
	"github.com/entwineapp/entwine/internal/e2ee"
	"github.com/entwineapp/entwine/internal/identity"
	logger "github.com/entwineapp/entwine/internal/logging"
	"github.com/entwineapp/entwine/internal/profile"
)

// StoreOptions selects the profile store backend; zero values defer to the
// environment.
type StoreOptions struct {
	// Backend is "file" or "postgres". Empty defers to ENTWINE_STORE.
	Backend string

	// ProfileDir is the shared directory for the file backend.
	ProfileDir string
}

// openStore builds the configured profile store backend.
func openStore(opts StoreOptions) (profile.Store, error) {
	cfg, err := configs.LoadStoreConfig(opts.Backend, opts.ProfileDir)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case configs.StorePostgres:
		return profile.NewGormStore(cfg.DatabaseURL)
	default:
		return profile.NewFileStore(cfg.ProfileDir)
	}
}

// openIdentity wires the local keystore and identity store over a profile
// store.
func openIdentity(profiles profile.Store, log logger.Logger) *identity.Store {
	keys := identity.NewKeystore(configs.UserEntwineSettings.KeysPath, log)
	return identity.NewStore(keys, profiles, log)
}

// localIdentity rebuilds an Identity value from an already-loaded local
// private key, for re-publishing the public half.
func localIdentity(userID string, load *identity.LoadResult) (*identity.Identity, error) {
	pubText, err := e2ee.ExportPublicKey(&load.Private.PublicKey)
	if err != nil {
		return nil, err
	}
	return &identity.Identity{
		UserID:      userID,
		Public:      &load.Private.PublicKey,
		Private:     load.Private,
		PublicText:  pubText,
		PrivateText: load.PrivateText,
	}, nil
}
