package channel

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"

	"github.com/entwineapp/entwine/internal/e2ee"
	kerrors "github.com/entwineapp/entwine/internal/errors"
	"github.com/entwineapp/entwine/internal/identity"
	logger "github.com/entwineapp/entwine/internal/logging"
	"github.com/entwineapp/entwine/internal/migration"
	"github.com/entwineapp/entwine/internal/profile"
)

// Session owns the resolved shared channel key for one authenticated user.
// It is constructed once per session and torn down on logout; the key lives
// only in this struct's memory, never in local persistent storage in raw
// form. Encryption call sites (messages, photos, audio) go through the
// session rather than re-deriving anything per message.
type Session struct {
	userID   string
	ids      *identity.Store
	profiles profile.Store
	engine   *migration.Engine
	log      logger.Logger

	mu    sync.Mutex
	state State
	key   []byte
	priv  *rsa.PrivateKey
}

// NewSession creates a session for userID. The session starts in
// StateInitializing until Resolve runs.
func NewSession(userID string, ids *identity.Store, profiles profile.Store, log logger.Logger) *Session {
	return &Session{
		userID:   userID,
		ids:      ids,
		profiles: profiles,
		engine:   migration.NewEngine(ids, profiles, log),
		log:      log,
		state:    StateInitializing,
	}
}

// State returns the current channel state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Key returns a copy of the resolved shared channel key, or
// ErrPrecursorNotReady when the channel is not unlocked.
func (s *Session) Key() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateUnlocked:
	case StateLocked:
		return nil, fmt.Errorf("%w: %w", kerrors.ErrChannelLocked, kerrors.ErrPrecursorNotReady)
	case StateBroken:
		return nil, fmt.Errorf("%w: %w", kerrors.ErrBrokenIdentity, kerrors.ErrPrecursorNotReady)
	default:
		return nil, fmt.Errorf("channel is %s: %w", s.state, kerrors.ErrPrecursorNotReady)
	}
	key := make([]byte, len(s.key))
	copy(key, s.key)
	return key, nil
}

// Resolve runs the full unlock decision tree once: load identity, fetch the
// profile, evaluate, and apply. Identity load always precedes the unlock
// attempt; the evaluation reads the loaded state rather than racing it.
// Resolve is idempotent and safe to re-run on every listener firing.
func (s *Session) Resolve(ctx context.Context) (State, error) {
	load, err := s.ids.Load(ctx, s.userID)
	if err != nil {
		return s.State(), err
	}
	return s.apply(ctx, load.Doc, load.Private)
}

// Run resolves once, then consumes realtime document snapshots until ctx is
// done, re-running the decision tree per snapshot. Backends without watch
// support degrade to the single resolution and ErrWatchUnsupported.
func (s *Session) Run(ctx context.Context) error {
	if _, err := s.Resolve(ctx); err != nil {
		s.log.Warnf("Initial channel resolution for %s failed: %v", s.userID, err)
	}

	watcher, ok := s.profiles.(profile.Watcher)
	if !ok {
		return kerrors.ErrWatchUnsupported
	}

	updates, err := watcher.Watch(ctx, s.userID)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc, open := <-updates:
			if !open {
				return nil
			}
			priv, _, err := s.ids.Keystore().Load(s.userID)
			if err != nil && !errors.Is(err, kerrors.ErrNoLocalKey) {
				s.log.Warnf("Loading local key during listener firing: %v", err)
				continue
			}
			if _, err := s.apply(ctx, &doc, priv); err != nil {
				s.log.Warnf("Applying profile update for %s: %v", s.userID, err)
			}
		}
	}
}

// apply evaluates one snapshot and performs the resulting action. Repeated
// application of the same snapshot is a no-op: migration re-checks field
// presence, and adopting an identical key changes nothing.
func (s *Session) apply(ctx context.Context, doc *profile.Document, priv *rsa.PrivateKey) (State, error) {
	eval := Evaluate(doc, priv)

	switch eval.Action {
	case ActionAdoptKey:
		s.setResolved(eval.State, eval.Key, priv)

	case ActionMigrate:
		result, err := s.engine.Run(ctx, s.userID, doc)
		if err != nil {
			// Downgrade rather than crash; the caller may retry by
			// re-triggering the same path.
			s.log.Errorf("Legacy migration for %s failed: %v", s.userID, err)
			s.setResolved(StateLocked, nil, priv)
			return StateLocked, nil
		}
		// The migration hands the key back directly, bypassing unwrap.
		migratedPriv, _, err := s.ids.Keystore().Load(s.userID)
		if err != nil {
			migratedPriv = priv
		}
		s.setResolved(StateUnlocked, result.Key, migratedPriv)

	default:
		s.setResolved(eval.State, nil, priv)
	}
	return s.State(), nil
}

// CreateSharedFolder bootstraps the channel for a solo user: generate a
// fresh symmetric key, wrap it under the user's own public key, and persist
// the wrapped copy to the user's own profile. The surrounding application
// invokes this when no channel key exists and no partner does either.
func (s *Session) CreateSharedFolder(ctx context.Context) error {
	load, err := s.ids.Load(ctx, s.userID)
	if err != nil {
		return err
	}
	if load.State != identity.LoadUnlocked {
		return fmt.Errorf("identity not established: %w", kerrors.ErrPrecursorNotReady)
	}

	key, err := e2ee.GenerateSymmetricKey()
	if err != nil {
		return err
	}

	wrapped, err := e2ee.WrapSymmetricKey(key, &load.Private.PublicKey)
	if err != nil {
		return fmt.Errorf("self-wrapping new channel key: %w", err)
	}

	if err := s.profiles.SetEncryptedSharedKey(ctx, s.userID, wrapped); err != nil {
		return fmt.Errorf("persisting wrapped channel key: %w", err)
	}

	s.setResolved(StateUnlocked, key, load.Private)
	return nil
}

// Connect wraps the already-resolved shared key under the partner's public
// key and delivers it into the partner's profile document. Delivery is the
// one deliberate breach of per-user write isolation, which is why it
// requires the narrow KeyDeliverer capability instead of the general store.
//
// The local key must already be resolved; calling Connect earlier is a
// caller error and aborts with ErrPrecursorNotReady rather than producing a
// bad wrap.
func (s *Session) Connect(ctx context.Context, partnerID, partnerPublicKey string, deliverer profile.KeyDeliverer) error {
	key, err := s.Key()
	if err != nil {
		return err
	}

	partnerPub, err := e2ee.ImportPublicKey(partnerPublicKey)
	if err != nil {
		return fmt.Errorf("importing partner public key: %w", err)
	}

	wrapped, err := e2ee.WrapSymmetricKey(key, partnerPub)
	if err != nil {
		return fmt.Errorf("wrapping channel key for partner: %w", err)
	}

	if err := deliverer.DeliverSharedKey(ctx, partnerID, wrapped); err != nil {
		return fmt.Errorf("delivering wrapped key to %s: %w", partnerID, err)
	}

	s.log.Infof("Delivered wrapped channel key to %s", partnerID)
	return nil
}

// EncryptMessage encrypts message or media content under the resolved
// channel key, returning ciphertext and IV for the caller to store side by
// side. There is no plaintext fallback: an unresolved channel is an error,
// never a passthrough.
func (s *Session) EncryptMessage(plaintext []byte) (ciphertext, iv []byte, err error) {
	key, err := s.Key()
	if err != nil {
		return nil, nil, err
	}
	return e2ee.EncryptBytes(plaintext, key)
}

// DecryptMessage decrypts content produced by EncryptMessage (or by the
// partner's device with the same channel key).
func (s *Session) DecryptMessage(ciphertext, iv []byte) ([]byte, error) {
	key, err := s.Key()
	if err != nil {
		return nil, err
	}
	return e2ee.DecryptBytes(ciphertext, key, iv)
}

// Close tears the session down, zeroing the cached key material.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
	s.priv = nil
	s.state = StateInitializing
}

func (s *Session) setResolved(state State, key []byte, priv *rsa.PrivateKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.priv = priv
	if key != nil {
		s.key = key
	}
	if state != StateUnlocked {
		s.key = nil
	}
}
