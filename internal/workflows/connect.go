package workflows

import (
	"context"
	"fmt"

	"github.com/entwineapp/entwine/internal/audit"
	"github.com/entwineapp/entwine/internal/channel"
	"github.com/entwineapp/entwine/internal/configs"
	kerrors "github.com/entwineapp/entwine/internal/errors"
	logger "github.com/entwineapp/entwine/internal/logging"
	"github.com/entwineapp/entwine/internal/profile"
)

// ConnectOptions configures the pairing workflow.
type ConnectOptions struct {
	// PartnerUUID identifies the partner to pair with.
	PartnerUUID string

	Store StoreOptions

	// Verbose enables verbose output.
	Verbose bool

	// Debug enables debug output.
	Debug bool
}

// ConnectResult contains the outcome of a pairing operation.
type ConnectResult struct {
	UserUUID    string
	PartnerUUID string

	// State is the local channel state after pairing.
	State channel.State
}

// Connect pairs this user with a partner: it resolves the local shared
// channel key and delivers a copy wrapped under the partner's published
// public key into the partner's profile document.
//
// Returns ErrPrecursorNotReady if the local channel has not resolved, and
// ErrNoIdentity if the partner has not published a public key yet.
func Connect(ctx context.Context, opts ConnectOptions) (*ConnectResult, error) {
	log := logger.Logger{Verbose: opts.Verbose, Debug: opts.Debug}

	if opts.PartnerUUID == "" {
		return nil, fmt.Errorf("%w: partner UUID is required", kerrors.ErrNoIdentity)
	}

	userConfig, err := configs.EnsureUserConfig()
	if err != nil {
		return nil, fmt.Errorf("ensuring user config: %w", err)
	}
	userID := userConfig.User.UUID

	profiles, err := openStore(opts.Store)
	if err != nil {
		return nil, err
	}
	ids := openIdentity(profiles, log)

	partnerKey, err := PartnerPublicKey(ctx, StatusOptions{Store: opts.Store}, opts.PartnerUUID)
	if err != nil {
		return nil, err
	}

	deliverer, ok := profiles.(profile.KeyDeliverer)
	if !ok {
		return nil, fmt.Errorf("store backend cannot deliver keys to partners")
	}

	session := channel.NewSession(userID, ids, profiles, log)
	defer session.Close()

	if _, err := session.Resolve(ctx); err != nil {
		return nil, err
	}
	if err := session.Connect(ctx, opts.PartnerUUID, partnerKey, deliverer); err != nil {
		return nil, err
	}

	// Remember the partner so later commands can default to them.
	if userConfig.Partner.UUID != opts.PartnerUUID {
		userConfig.Partner.UUID = opts.PartnerUUID
		if err := configs.SaveUserConfig(userConfig); err != nil {
			return nil, fmt.Errorf("saving user config: %w", err)
		}
	}

	entry := audit.LogWithUser("connect")
	entry.PartnerUUID = opts.PartnerUUID
	entry.State = session.State().String()
	audit.Log(entry)

	return &ConnectResult{
		UserUUID:    userID,
		PartnerUUID: opts.PartnerUUID,
		State:       session.State(),
	}, nil
}
