package channel

import (
	"crypto/rsa"

	"github.com/entwineapp/entwine/internal/e2ee"
	"github.com/entwineapp/entwine/internal/profile"
)

// State classifies the shared channel from one profile document snapshot
// plus the local private key. The old implicit scheme distinguished these
// shapes by successive field-presence checks; here the combination is
// computed once and branched on exhaustively.
type State int

const (
	// StateInitializing is the pre-resolution state of a fresh session.
	StateInitializing State = iota

	// StateNoIdentity means nothing is published and nothing is stored
	// locally; the user has not onboarded onto the scheme.
	StateNoIdentity

	// StateLocked means the channel cannot produce a key right now: either a
	// wrapped key exists that this device cannot open, or an identity exists
	// but no channel key has been created or delivered yet.
	StateLocked

	// StateUnlocked means the shared channel key is resolved.
	StateUnlocked

	// StateLegacy means the profile still carries the pre-migration raw key
	// shape and the migration engine may run without orphaning anything.
	StateLegacy

	// StateBroken means a public key is published but the matching private
	// key is not usable on this device. Recovery is device sync or an
	// explicit user-triggered repair, never silent; the repair consumes the
	// legacy fallback when one exists.
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateNoIdentity:
		return "no-keys"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	case StateLegacy:
		return "legacy"
	case StateBroken:
		return "broken-identity"
	default:
		return "unknown"
	}
}

// DisplayStatus renders the coarse user-visible label for a state.
func (s State) DisplayStatus() string {
	switch s {
	case StateUnlocked:
		return "End-to-End Encrypted"
	case StateLegacy:
		return "Legacy Encryption (Upgrading...)"
	case StateBroken:
		return "Identity Error (Repair Needed)"
	case StateLocked:
		return "Locked (Waiting for Key)"
	default:
		return "Not Encrypted"
	}
}

// Action is what the session should do in response to an evaluation. The
// realtime listener stays free of side effects: it evaluates, then hands the
// action to a separate, awaitable, idempotent apply step.
type Action int

const (
	// ActionNone means there is nothing to apply.
	ActionNone Action = iota

	// ActionAdoptKey means Evaluation.Key holds the resolved channel key.
	ActionAdoptKey

	// ActionMigrate means the legacy migration engine must run.
	ActionMigrate

	// ActionAwaitBootstrap means the identity is healthy but no channel key
	// exists anywhere; the surrounding application decides when to create
	// the shared folder.
	ActionAwaitBootstrap

	// ActionAwaitRepair means the identity is broken and only an explicit
	// user action may rebuild it.
	ActionAwaitRepair
)

// Evaluation is the outcome of classifying one document snapshot.
type Evaluation struct {
	State  State
	Action Action

	// Key is the resolved shared channel key when Action is ActionAdoptKey.
	Key []byte
}

// Evaluate classifies a profile document snapshot against the local private
// key. It is pure apart from the unwrap attempt (in-memory crypto, no I/O),
// which makes the listener's decision logic testable without a live store.
//
// Priority when fields coexist: a decryptable encryptedSharedKey always wins
// over sharedKeyBase64. When a public key is published that this device's
// private key cannot serve, the result is Broken even if the legacy field
// could re-seed a fresh identity: regenerating would orphan everything
// wrapped under the published key, so that recovery only runs from an
// explicit repair. The Migrate action is reserved for upgrades that orphan
// nothing.
func Evaluate(doc *profile.Document, priv *rsa.PrivateKey) Evaluation {
	hasDoc := doc != nil
	hasPublic := hasDoc && doc.PublicKey != ""
	hasWrapped := hasDoc && doc.EncryptedSharedKey != ""
	hasLegacy := hasDoc && doc.SharedKeyBase64 != ""
	hasPrivate := priv != nil

	if !hasPublic && !hasWrapped && !hasLegacy {
		return Evaluation{State: StateNoIdentity, Action: ActionNone}
	}

	if hasWrapped && hasPrivate {
		key, err := e2ee.UnwrapSymmetricKey(doc.EncryptedSharedKey, priv)
		if err == nil {
			return Evaluation{State: StateUnlocked, Action: ActionAdoptKey, Key: key}
		}
		if hasLegacy {
			// The private key is not the one the wrap targeted.
			return Evaluation{State: StateBroken, Action: ActionAwaitRepair}
		}
		return Evaluation{State: StateLocked, Action: ActionNone}
	}

	if hasLegacy {
		if hasPublic && !servesPublished(doc.PublicKey, priv) {
			return Evaluation{State: StateBroken, Action: ActionAwaitRepair}
		}
		// Nothing published, or a usable identity already in place: the
		// upgrade orphans nothing.
		return Evaluation{State: StateLegacy, Action: ActionMigrate}
	}

	if !hasPrivate {
		return Evaluation{State: StateBroken, Action: ActionAwaitRepair}
	}

	// Healthy identity, no channel key anywhere: the shared folder has not
	// been created and no partner has delivered a key.
	return Evaluation{State: StateLocked, Action: ActionAwaitBootstrap}
}

// servesPublished reports whether priv is the private half of the published
// public key text.
func servesPublished(publicText string, priv *rsa.PrivateKey) bool {
	if priv == nil {
		return false
	}
	pub, err := e2ee.ImportPublicKey(publicText)
	if err != nil {
		return false
	}
	return pub.Equal(&priv.PublicKey)
}
