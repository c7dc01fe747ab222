package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entwineapp/entwine/internal/channel"
	"github.com/entwineapp/entwine/internal/configs"
	"github.com/entwineapp/entwine/internal/devicesync"
	kerrors "github.com/entwineapp/entwine/internal/errors"
	logger "github.com/entwineapp/entwine/internal/logging"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	Store StoreOptions

	// Verbose enables verbose output.
	Verbose bool

	// Debug enables debug output.
	Debug bool
}

// StatusResult describes the channel and identity state for display.
type StatusResult struct {
	UserUUID   string
	DeviceName string

	// State is the classified channel state.
	State channel.State

	// Display is the coarse user-visible label for State.
	Display string

	// HasLocalKey reports whether a private key file exists on this device.
	HasLocalKey bool

	// HasPublishedKey reports whether a public key is on the profile.
	HasPublishedKey bool

	// HasWrappedKey reports whether an encryptedSharedKey is on the profile.
	HasWrappedKey bool

	// HasLegacyKey reports whether the legacy raw key field is present.
	HasLegacyKey bool

	// SyncPending reports whether a device-sync payload is parked on the
	// profile and still inside its redemption window.
	SyncPending bool
}

// Status classifies the current channel state without mutating anything.
// Migration is NOT triggered from here; status is a pure read.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	log := logger.Logger{Verbose: opts.Verbose, Debug: opts.Debug}

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

	load, err := ids.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	eval := channel.Evaluate(load.Doc, load.Private)

	result := &StatusResult{
		UserUUID:    userID,
		DeviceName:  userConfig.Device.Name,
		State:       eval.State,
		Display:     eval.State.DisplayStatus(),
		HasLocalKey: load.Private != nil,
	}
	if load.Doc != nil {
		result.HasPublishedKey = load.Doc.PublicKey != ""
		result.HasWrappedKey = load.Doc.EncryptedSharedKey != ""
		result.HasLegacyKey = load.Doc.SharedKeyBase64 != ""
		if p := load.Doc.SyncPayload; p != nil {
			result.SyncPending = time.Since(p.Timestamp) <= devicesync.SyncWindow
		}
	}
	return result, nil
}

// PartnerPublicKey fetches a partner's published public key, needed before
// the pairing step can wrap anything for them.
func PartnerPublicKey(ctx context.Context, opts StatusOptions, partnerID string) (string, error) {
	profiles, err := openStore(opts.Store)
	if err != nil {
		return "", err
	}

	doc, err := profiles.Get(ctx, partnerID)
	if err != nil {
		if errors.Is(err, kerrors.ErrProfileNotFound) {
			return "", fmt.Errorf("partner %s: %w", partnerID, kerrors.ErrNoIdentity)
		}
		return "", err
	}
	if doc.PublicKey == "" {
		return "", fmt.Errorf("partner %s: %w", partnerID, kerrors.ErrNoIdentity)
	}
	return doc.PublicKey, nil
}
