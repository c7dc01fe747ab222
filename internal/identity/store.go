package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/entwineapp/entwine/internal/e2ee"
	kerrors "github.com/entwineapp/entwine/internal/errors"
	logger "github.com/entwineapp/entwine/internal/logging"
	"github.com/entwineapp/entwine/internal/profile"
)

// Identity is a user's asymmetric keypair together with its transportable
// encodings. The private half lives only in the local keystore; the public
// half is what gets published to the remote profile.
type Identity struct {
	UserID      string
	Public      *rsa.PublicKey
	Private     *rsa.PrivateKey
	PublicText  string
	PrivateText string
}

// LoadState is the tri-state outcome of loading an identity.
type LoadState int

const (
	// LoadNoKeys means nothing local and nothing remote.
	LoadNoKeys LoadState = iota

	// LoadLocked means a public key is published but the local private key
	// is missing or does not verify against it.
	LoadLocked

	// LoadUnlocked means both halves are present and consistent.
	LoadUnlocked
)

// LoadResult carries everything a load produced: the local private half (if
// usable), the fetched profile document (if any), and the tri-state.
type LoadResult struct {
	State       LoadState
	Private     *rsa.PrivateKey
	PrivateText string
	Doc         *profile.Document
}

// Store owns the identity keypair lifecycle: load, generate, publish. It
// never transmits the private key anywhere; every remote write touches only
// the public key field.
type Store struct {
	keys     *Keystore
	profiles profile.Store
	log      logger.Logger
}

// NewStore creates an identity store over a local keystore and a remote
// profile store.
func NewStore(keys *Keystore, profiles profile.Store, log logger.Logger) *Store {
	return &Store{keys: keys, profiles: profiles, log: log}
}

// Keystore exposes the underlying local keystore (device-sync needs direct
// access for straight-copy transfers).
func (s *Store) Keystore() *Keystore {
	return s.keys
}

// Load reads the local private key and fetches the remote profile, then
// reports the tri-state. A missing or malformed local key is non-fatal; it
// degrades the state rather than erroring, so upstream can run the
// regeneration or repair path.
func (s *Store) Load(ctx context.Context, userID string) (*LoadResult, error) {
	result := &LoadResult{State: LoadNoKeys}

	priv, text, err := s.keys.Load(userID)
	if err != nil && !errors.Is(err, kerrors.ErrNoLocalKey) {
		return nil, err
	}
	result.Private = priv
	result.PrivateText = text

	doc, err := s.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, kerrors.ErrProfileNotFound) {
		return nil, fmt.Errorf("fetching profile for %s: %w", userID, err)
	}
	result.Doc = doc

	published := doc != nil && doc.PublicKey != ""
	switch {
	case !published:
		result.State = LoadNoKeys
	case priv == nil:
		result.State = LoadLocked
	case !verifyKeypair(doc.PublicKey, priv):
		s.log.Warnf("Local private key for %s does not match the published public key", userID)
		result.State = LoadLocked
	default:
		result.State = LoadUnlocked
	}
	return result, nil
}

// Generate creates a fresh keypair and persists the private half to the
// local keystore under the user-scoped key, silently overwriting any prior
// private key for this user. The returned identity carries the public half
// for the caller to publish; Generate itself performs no remote writes.
func (s *Store) Generate(ctx context.Context, userID string) (*Identity, error) {
	pub, priv, err := e2ee.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	pubText, err := e2ee.ExportPublicKey(pub)
	if err != nil {
		return nil, err
	}
	privText, err := e2ee.ExportPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	if err := s.keys.Save(userID, privText); err != nil {
		return nil, err
	}
	s.log.Infof("Generated new identity for %s", userID)

	return &Identity{
		UserID:      userID,
		Public:      pub,
		Private:     priv,
		PublicText:  pubText,
		PrivateText: privText,
	}, nil
}

// Publish writes the identity's public half to the remote profile.
func (s *Store) Publish(ctx context.Context, id *Identity) error {
	if err := s.profiles.PublishPublicKey(ctx, id.UserID, id.PublicText); err != nil {
		return fmt.Errorf("publishing public key for %s: %w", id.UserID, err)
	}
	return nil
}

// verifyKeypair checks that the published public key belongs to the local
// private key.
func verifyKeypair(publishedPublicKey string, priv *rsa.PrivateKey) bool {
	pub, err := e2ee.ImportPublicKey(publishedPublicKey)
	if err != nil {
		return false
	}
	return pub.N.Cmp(priv.PublicKey.N) == 0 && pub.E == priv.PublicKey.E
}
