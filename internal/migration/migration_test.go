package migration

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

func newTestEngine(t *testing.T, store *profile.MemoryStore) (*Engine, *identity.Store) {
	t.Helper()
	log := logger.Logger{}
	ids := identity.NewStore(identity.NewKeystore(t.TempDir(), log), store, log)
	return NewEngine(ids, store, log), ids
}

func seedLegacy(t *testing.T, store *profile.MemoryStore, userID string) []byte {
	t.Helper()
	key, err := e2ee.GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("Failed to generate legacy key: %v", err)
	}
	store.SetSharedKeyBase64(userID, base64.StdEncoding.EncodeToString(key))
	return key
}

func TestNeeded(t *testing.T) {
	cases := []struct {
		name        string
		doc         *profile.Document
		havePrivate bool
		want        bool
	}{
		{"NilDocument", nil, true, false},
		{"NoLegacyField", &profile.Document{PublicKey: "pk"}, true, false},
		{"LegacyWithoutIdentity", &profile.Document{SharedKeyBase64: "raw"}, false, true},
		{"LegacyWithIdentityAndPrivate", &profile.Document{SharedKeyBase64: "raw", PublicKey: "pk"}, true, false},
		{"LegacyWithIdentityNoPrivate", &profile.Document{SharedKeyBase64: "raw", PublicKey: "pk"}, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Needed(tc.doc, tc.havePrivate); got != tc.want {
				t.Errorf("Needed() = %t, want %t", got, tc.want)
			}
		})
	}
}

func TestRunUpgradesFreshLegacyProfile(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()
	engine, ids := newTestEngine(t, store)

	legacyKey := seedLegacy(t, store, "alice")
	doc, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	result, err := engine.Run(ctx, "alice", doc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Regenerated {
		t.Error("Expected a fresh identity for a profile with no published key")
	}
	if !bytes.Equal(result.Key, legacyKey) {
		t.Error("Result key does not match the legacy key")
	}

	upgraded, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get after migration failed: %v", err)
	}
	if upgraded.PublicKey == "" || upgraded.EncryptedSharedKey == "" {
		t.Error("Migration did not publish the hybrid fields")
	}
	if upgraded.SharedKeyBase64 == "" {
		t.Error("Legacy field was removed; it must stay in place")
	}

	// The wrapped copy must open with the private key the engine stored.
	priv, _, err := ids.Keystore().Load("alice")
	if err != nil {
		t.Fatalf("Keystore load failed: %v", err)
	}
	unwrapped, err := e2ee.UnwrapSymmetricKey(upgraded.EncryptedSharedKey, priv)
	if err != nil {
		t.Fatalf("Unwrap failed: %v", err)
	}
	if !bytes.Equal(unwrapped, legacyKey) {
		t.Error("Wrapped key does not unwrap to the legacy key")
	}
}

func TestRunReusesHealthyIdentity(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()
	engine, ids := newTestEngine(t, store)

	id, err := ids.Generate(ctx, "bob")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if err := ids.Publish(ctx, id); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	seedLegacy(t, store, "bob")

	doc, err := store.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	result, err := engine.Run(ctx, "bob", doc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Regenerated {
		t.Error("A matching keypair was regenerated instead of reused")
	}

	upgraded, err := store.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("Get after migration failed: %v", err)
	}
	if upgraded.PublicKey != id.PublicText {
		t.Error("Published public key changed during a reuse migration")
	}
}

func TestRunRegeneratesWhenPrivateKeyIsGone(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()
	engine, ids := newTestEngine(t, store)

	// Publish a public key whose private half this device never had.
	strangerPub, _, err := e2ee.GenerateKeypair()
	if err != nil {
		t.Fatalf("Failed to generate stranger keypair: %v", err)
	}
	strangerText, err := e2ee.ExportPublicKey(strangerPub)
	if err != nil {
		t.Fatalf("Failed to export stranger key: %v", err)
	}
	if err := store.PublishPublicKey(ctx, "carol", strangerText); err != nil {
		t.Fatalf("PublishPublicKey failed: %v", err)
	}
	legacyKey := seedLegacy(t, store, "carol")

	doc, err := store.Get(ctx, "carol")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	result, err := engine.Run(ctx, "carol", doc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Regenerated {
		t.Error("Expected regeneration when the private half is unrecoverable")
	}
	if !bytes.Equal(result.Key, legacyKey) {
		t.Error("Legacy key was not carried through the regeneration")
	}

	upgraded, err := store.Get(ctx, "carol")
	if err != nil {
		t.Fatalf("Get after migration failed: %v", err)
	}
	if upgraded.PublicKey == strangerText {
		t.Error("Published public key was not replaced")
	}
	priv, _, err := ids.Keystore().Load("carol")
	if err != nil {
		t.Fatalf("Keystore load failed: %v", err)
	}
	if _, err := e2ee.UnwrapSymmetricKey(upgraded.EncryptedSharedKey, priv); err != nil {
		t.Errorf("New wrapped key does not open with the new private key: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()
	engine, _ := newTestEngine(t, store)

	legacyKey := seedLegacy(t, store, "dana")
	doc, err := store.Get(ctx, "dana")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := engine.Run(ctx, "dana", doc); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	first, err := store.Get(ctx, "dana")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Re-running against the upgraded document reuses the new identity.
	result, err := engine.Run(ctx, "dana", first)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if result.Regenerated {
		t.Error("Second run regenerated the identity")
	}
	if !bytes.Equal(result.Key, legacyKey) {
		t.Error("Second run produced a different key")
	}
	second, err := store.Get(ctx, "dana")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second.PublicKey != first.PublicKey {
		t.Error("Second run changed the published public key")
	}
}

func TestRunRejectsBadLegacyMaterial(t *testing.T) {
	ctx := context.Background()
	store := profile.NewMemoryStore()
	engine, _ := newTestEngine(t, store)

	cases := []struct {
		name    string
		doc     *profile.Document
		wantErr error
	}{
		{"NilDocument", nil, kerrors.ErrNoLegacyKey},
		{"NoLegacyField", &profile.Document{UserID: "x"}, kerrors.ErrNoLegacyKey},
		{"NotBase64", &profile.Document{SharedKeyBase64: "!!!"}, kerrors.ErrKeyFormat},
		{
			"WrongLength",
			&profile.Document{SharedKeyBase64: base64.StdEncoding.EncodeToString([]byte("short"))},
			kerrors.ErrInvalidKeyLength,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.Run(ctx, "x", tc.doc); !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
