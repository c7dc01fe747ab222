package migration

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/entwineapp/entwine/internal/e2ee"
	kerrors "github.com/entwineapp/entwine/internal/errors"
	"github.com/entwineapp/entwine/internal/identity"
	logger "github.com/entwineapp/entwine/internal/logging"
	"github.com/entwineapp/entwine/internal/profile"
)

// Engine upgrades a profile from the naked shared-secret scheme to the
// hybrid scheme. Every step is safe to re-run: the upgrade is decided from
// current field presence, not a one-shot flag, and the legacy field is left
// in place as a rollback artifact.
type Engine struct {
	ids      *identity.Store
	profiles profile.Store
	log      logger.Logger
}

// NewEngine creates a migration engine.
func NewEngine(ids *identity.Store, profiles profile.Store, log logger.Logger) *Engine {
	return &Engine{ids: ids, profiles: profiles, log: log}
}

// Result describes a completed migration.
type Result struct {
	// Key is the shared channel key, imported directly from the legacy
	// field. It bypasses unwrap; the caller adopts it as the resolved key.
	Key []byte

	// Regenerated reports whether a fresh identity had to be created. When
	// true and a public key was previously published, anything wrapped under
	// the old public key is permanently orphaned.
	Regenerated bool
}

// Needed is the pure decision: does this document snapshot require
// migration given the local private key state? It mirrors the two triggers:
// a legacy raw key with no published identity, or a legacy raw key with a
// published identity whose private half is unusable on this device.
func Needed(doc *profile.Document, havePrivate bool) bool {
	if doc == nil || doc.SharedKeyBase64 == "" {
		return false
	}
	if doc.PublicKey == "" {
		return true
	}
	return !havePrivate
}

// Run performs the upgrade for userID against the given document snapshot:
//
//  1. Import the legacy raw key directly (it was never asymmetrically
//     protected, so there is nothing to unwrap).
//  2. Reuse the existing identity when its private half is usable;
//     otherwise generate a fresh one, discarding the unrecoverable private
//     key. The legacy raw key independently re-seeds the new identity, so
//     nothing the user can still read is lost by the regeneration itself.
//  3. Wrap the legacy key under the (possibly new) public key.
//  4. Publish publicKey and encryptedSharedKey in one update, leaving
//     sharedKeyBase64 untouched.
//
// Interrupted runs leave the profile in its prior shape and can simply be
// re-run.
func (e *Engine) Run(ctx context.Context, userID string, doc *profile.Document) (*Result, error) {
	if doc == nil || doc.SharedKeyBase64 == "" {
		return nil, fmt.Errorf("profile for %s: %w", userID, kerrors.ErrNoLegacyKey)
	}

	legacyKey, err := base64.StdEncoding.DecodeString(doc.SharedKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: legacy shared key is not valid base64", kerrors.ErrKeyFormat)
	}
	if len(legacyKey) != e2ee.KeySize {
		return nil, fmt.Errorf("%w: legacy shared key is %d bytes", kerrors.ErrInvalidKeyLength, len(legacyKey))
	}

	result := &Result{Key: legacyKey}

	id, err := e.usableIdentity(ctx, userID, doc)
	if err != nil {
		return nil, err
	}
	if id == nil {
		if doc.PublicKey != "" {
			e.log.Warnf("Regenerating identity for %s; key material wrapped under the previous public key becomes unreadable", userID)
		}
		id, err = e.ids.Generate(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("generating replacement identity: %w", err)
		}
		result.Regenerated = true
	}

	wrapped, err := e2ee.WrapSymmetricKey(legacyKey, id.Public)
	if err != nil {
		return nil, fmt.Errorf("wrapping legacy key under new identity: %w", err)
	}

	if err := e.profiles.PublishIdentity(ctx, userID, id.PublicText, wrapped); err != nil {
		return nil, fmt.Errorf("publishing upgraded profile for %s: %w", userID, err)
	}

	e.log.Infof("Migrated %s to the hybrid scheme (identity regenerated: %t)", userID, result.Regenerated)
	return result, nil
}

// usableIdentity returns the existing identity when the local private key
// matches the published public key, or nil when a fresh one is required.
func (e *Engine) usableIdentity(ctx context.Context, userID string, doc *profile.Document) (*identity.Identity, error) {
	if doc.PublicKey == "" {
		return nil, nil
	}

	load, err := e.ids.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if load.State != identity.LoadUnlocked {
		return nil, nil
	}

	pub, err := e2ee.ImportPublicKey(doc.PublicKey)
	if err != nil {
		return nil, nil
	}
	pubText, err := e2ee.ExportPublicKey(pub)
	if err != nil {
		return nil, nil
	}
	return &identity.Identity{
		UserID:      userID,
		Public:      pub,
		Private:     load.Private,
		PublicText:  pubText,
		PrivateText: load.PrivateText,
	}, nil
}
