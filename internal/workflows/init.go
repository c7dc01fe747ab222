package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/entwineapp/entwine/internal/audit"
	"github.com/entwineapp/entwine/internal/channel"
	"github.com/entwineapp/entwine/internal/configs"
	kerrors "github.com/entwineapp/entwine/internal/errors"
	"github.com/entwineapp/entwine/internal/identity"
	logger "github.com/entwineapp/entwine/internal/logging"
)

// InitOptions configures the identity init workflow.
type InitOptions struct {
	// Email is recorded in the user config on first run.
	Email string

	// Force regenerates the identity even when a local private key exists.
	// Anything wrapped under the previous public key becomes unreadable.
	Force bool

	Store StoreOptions

	// Verbose enables verbose output.
	Verbose bool

	// Debug enables debug output.
	Debug bool
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// UserUUID is the identifier the identity was created under.
	UserUUID string

	// DeviceName is the name assigned to this device.
	DeviceName string

	// IdentityCreated reports whether a new keypair was generated.
	IdentityCreated bool

	// ChannelCreated reports whether a fresh shared channel key was
	// self-wrapped (solo bootstrap).
	ChannelCreated bool

	// State is the resulting channel state.
	State channel.State
}

// Init onboards this device: it ensures the user config exists, generates
// and publishes an identity when none is usable, and bootstraps the shared
// channel when no key exists anywhere yet.
//
// Without Force, an existing usable identity is kept; Init is safe to
// re-run. With Force the keypair is regenerated, which is only sane during
// an explicit user-confirmed reset.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	log := logger.Logger{Verbose: opts.Verbose, Debug: opts.Debug}

	userConfig, err := configs.EnsureUserConfig()
	if err != nil {
		return nil, fmt.Errorf("ensuring user config: %w", err)
	}
	if opts.Email != "" && userConfig.User.Email == "" {
		userConfig.User.Email = opts.Email
		if err := configs.SaveUserConfig(userConfig); err != nil {
			return nil, fmt.Errorf("saving user config: %w", err)
		}
	}
	userID := userConfig.User.UUID

	profiles, err := openStore(opts.Store)
	if err != nil {
		return nil, err
	}
	ids := openIdentity(profiles, log)

	result := &InitResult{
		UserUUID:   userID,
		DeviceName: userConfig.Device.Name,
	}

	load, err := ids.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	needIdentity := opts.Force || load.Private == nil
	if needIdentity {
		id, err := ids.Generate(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("generating identity: %w", err)
		}
		if err := ids.Publish(ctx, id); err != nil {
			return nil, err
		}
		result.IdentityCreated = true
	} else if load.State != identity.LoadUnlocked {
		// Private key exists locally but was never published.
		id, err := localIdentity(userID, load)
		if err != nil {
			return nil, err
		}
		if err := ids.Publish(ctx, id); err != nil {
			return nil, err
		}
	}

	session := channel.NewSession(userID, ids, profiles, log)
	defer session.Close()

	state, err := session.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	// Solo bootstrap: no channel key exists anywhere, so self-wrap a fresh
	// one before any partner shows up.
	if state == channel.StateLocked {
		doc, derr := profiles.Get(ctx, userID)
		if derr != nil && !errors.Is(derr, kerrors.ErrProfileNotFound) {
			return nil, derr
		}
		if doc == nil || (doc.EncryptedSharedKey == "" && doc.SharedKeyBase64 == "") {
			if err := session.CreateSharedFolder(ctx); err != nil {
				return nil, fmt.Errorf("creating shared folder: %w", err)
			}
			result.ChannelCreated = true
			state = session.State()
		}
	}
	result.State = state

	entry := audit.LogWithUser("init")
	entry.State = state.String()
	entry.Regenerated = result.IdentityCreated
	audit.Log(entry)

	return result, nil
}
