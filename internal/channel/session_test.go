package channel

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/entwineapp/entwine/internal/e2ee"
	kerrors "github.com/entwineapp/entwine/internal/errors"
	"github.com/entwineapp/entwine/internal/identity"
	logger "github.com/entwineapp/entwine/internal/logging"
	"github.com/entwineapp/entwine/internal/profile"
)

func newTestSession(t *testing.T, userID string, store *profile.MemoryStore) (*Session, *identity.Store) {
	t.Helper()
	log := logger.Logger{}
	ids := identity.NewStore(identity.NewKeystore(t.TempDir(), log), store, log)
	return NewSession(userID, ids, store, log), ids
}

// onboard generates and publishes an identity for the session's user.
func onboard(t *testing.T, ctx context.Context, ids *identity.Store, userID string) *identity.Identity {
	t.Helper()
	id, err := ids.Generate(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to generate identity for %s: %v", userID, err)
	}
	if err := ids.Publish(ctx, id); err != nil {
		t.Fatalf("Failed to publish identity for %s: %v", userID, err)
	}
	return id
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()
	session, ids := newTestSession(t, "alice", store)

	t.Run("StartsInitializing", func(t *testing.T) {
		if session.State() != StateInitializing {
			t.Errorf("New session state = %s, want initializing", session.State())
		}
		if _, err := session.Key(); !errors.Is(err, kerrors.ErrPrecursorNotReady) {
			t.Errorf("Key before resolution: expected ErrPrecursorNotReady, got %v", err)
		}
	})

	t.Run("ResolvesToNoIdentity", func(t *testing.T) {
		state, err := session.Resolve(ctx)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if state != StateNoIdentity {
			t.Errorf("State = %s, want no-keys", state)
		}
	})

	t.Run("LockedAfterOnboarding", func(t *testing.T) {
		onboard(t, ctx, ids, "alice")
		state, err := session.Resolve(ctx)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if state != StateLocked {
			t.Errorf("State = %s, want locked", state)
		}
	})

	t.Run("UnlockedAfterBootstrap", func(t *testing.T) {
		if err := session.CreateSharedFolder(ctx); err != nil {
			t.Fatalf("CreateSharedFolder failed: %v", err)
		}
		if session.State() != StateUnlocked {
			t.Errorf("State = %s, want unlocked", session.State())
		}
		if _, err := session.Key(); err != nil {
			t.Errorf("Key after bootstrap: %v", err)
		}
	})

	t.Run("ResolveIsIdempotent", func(t *testing.T) {
		before, err := session.Key()
		if err != nil {
			t.Fatalf("Key failed: %v", err)
		}
		if _, err := session.Resolve(ctx); err != nil {
			t.Fatalf("Re-resolve failed: %v", err)
		}
		after, err := session.Key()
		if err != nil {
			t.Fatalf("Key after re-resolve failed: %v", err)
		}
		if !bytes.Equal(before, after) {
			t.Error("Re-resolution changed the channel key")
		}
	})

	t.Run("CloseDropsKey", func(t *testing.T) {
		session.Close()
		if session.State() != StateInitializing {
			t.Errorf("State after close = %s, want initializing", session.State())
		}
		if _, err := session.Key(); !errors.Is(err, kerrors.ErrPrecursorNotReady) {
			t.Errorf("Key after close: expected ErrPrecursorNotReady, got %v", err)
		}
	})
}

func TestPairingDeliversKey(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()

	alice, aliceIDs := newTestSession(t, "alice", store)
	bob, bobIDs := newTestSession(t, "bob", store)

	onboard(t, ctx, aliceIDs, "alice")
	bobID := onboard(t, ctx, bobIDs, "bob")

	if _, err := alice.Resolve(ctx); err != nil {
		t.Fatalf("Alice resolve failed: %v", err)
	}
	if err := alice.CreateSharedFolder(ctx); err != nil {
		t.Fatalf("Alice bootstrap failed: %v", err)
	}

	// Bob has an identity but no delivered key yet.
	if state, err := bob.Resolve(ctx); err != nil || state != StateLocked {
		t.Fatalf("Bob pre-pairing state = %v (err %v), want locked", state, err)
	}

	t.Run("ConnectBeforeResolutionFails", func(t *testing.T) {
		if err := bob.Connect(ctx, "alice", bobID.PublicText, store); !errors.Is(err, kerrors.ErrPrecursorNotReady) {
			t.Errorf("Expected ErrPrecursorNotReady, got %v", err)
		}
	})

	t.Run("DeliveryUnlocksPartner", func(t *testing.T) {
		if err := alice.Connect(ctx, "bob", bobID.PublicText, store); err != nil {
			t.Fatalf("Alice connect failed: %v", err)
		}
		state, err := bob.Resolve(ctx)
		if err != nil {
			t.Fatalf("Bob resolve failed: %v", err)
		}
		if state != StateUnlocked {
			t.Errorf("Bob state = %s, want unlocked", state)
		}

		aliceKey, err := alice.Key()
		if err != nil {
			t.Fatalf("Alice key: %v", err)
		}
		bobKey, err := bob.Key()
		if err != nil {
			t.Fatalf("Bob key: %v", err)
		}
		if !bytes.Equal(aliceKey, bobKey) {
			t.Error("Paired sessions resolved different channel keys")
		}
	})

	t.Run("MessagesCrossDevices", func(t *testing.T) {
		plaintext := []byte("movie night friday?")
		ciphertext, iv, err := alice.EncryptMessage(plaintext)
		if err != nil {
			t.Fatalf("Alice encrypt failed: %v", err)
		}
		decrypted, err := bob.DecryptMessage(ciphertext, iv)
		if err != nil {
			t.Fatalf("Bob decrypt failed: %v", err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Errorf("Cross-device round trip mismatch: got %q", decrypted)
		}
	})

	t.Run("MalformedPartnerKeyRejected", func(t *testing.T) {
		if err := alice.Connect(ctx, "bob", "garbage", store); !errors.Is(err, kerrors.ErrKeyFormat) {
			t.Errorf("Expected ErrKeyFormat for malformed partner key, got %v", err)
		}
	})
}

func TestSessionMigratesLegacyProfile(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()
	session, _ := newTestSession(t, "carol", store)

	legacyKey, err := e2ee.GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("Failed to generate legacy key: %v", err)
	}
	store.SetSharedKeyBase64("carol", base64.StdEncoding.EncodeToString(legacyKey))

	state, err := session.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if state != StateUnlocked {
		t.Fatalf("Post-migration state = %s, want unlocked", state)
	}

	key, err := session.Key()
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if !bytes.Equal(key, legacyKey) {
		t.Error("Migrated channel key does not match the legacy key")
	}

	doc, err := store.Get(ctx, "carol")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.PublicKey == "" || doc.EncryptedSharedKey == "" {
		t.Error("Migration did not publish the upgraded identity")
	}
	if doc.SharedKeyBase64 == "" {
		t.Error("Migration removed the legacy field instead of leaving it in place")
	}

	// A second resolution goes through the wrapped key, not the engine.
	if state, err := session.Resolve(ctx); err != nil || state != StateUnlocked {
		t.Errorf("Re-resolution after migration = %v (err %v), want unlocked", state, err)
	}
}

func TestResolveNeverRegeneratesPublishedIdentity(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()
	session, _ := newTestSession(t, "erin", store)

	// A legacy profile whose published identity this device cannot use,
	// e.g. after a reinstall that lost the private key. Regenerating here
	// would orphan everything wrapped under the published key, so resolution
	// must park the channel for an explicit repair instead.
	otherPub, _ := mustKeypair(t)
	otherPubText, err := e2ee.ExportPublicKey(otherPub)
	if err != nil {
		t.Fatalf("Failed to export public key: %v", err)
	}
	legacyKey, err := e2ee.GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("Failed to generate legacy key: %v", err)
	}
	if err := store.PublishPublicKey(ctx, "erin", otherPubText); err != nil {
		t.Fatalf("Failed to seed public key: %v", err)
	}
	store.SetSharedKeyBase64("erin", base64.StdEncoding.EncodeToString(legacyKey))

	state, err := session.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if state != StateBroken {
		t.Fatalf("State = %s, want broken-identity", state)
	}
	if _, err := session.Key(); !errors.Is(err, kerrors.ErrBrokenIdentity) {
		t.Errorf("Expected ErrBrokenIdentity, got %v", err)
	}

	doc, err := store.Get(ctx, "erin")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.PublicKey != otherPubText {
		t.Error("Resolution replaced the published public key")
	}
	if doc.EncryptedSharedKey != "" {
		t.Error("Resolution published a wrapped key for an identity it must not touch")
	}
}

func TestSessionDowngradesOnFailedMigration(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()
	session, _ := newTestSession(t, "dave", store)

	// A corrupted legacy field must not crash resolution.
	store.SetSharedKeyBase64("dave", "!!!not-base64!!!")

	state, err := session.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if state != StateLocked {
		t.Errorf("State after failed migration = %s, want locked", state)
	}
	if _, err := session.Key(); !errors.Is(err, kerrors.ErrPrecursorNotReady) {
		t.Errorf("Expected ErrPrecursorNotReady, got %v", err)
	}
}
