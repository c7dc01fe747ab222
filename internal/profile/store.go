package profile

import (
	"context"
	"time"
)

// Document is a user's remote profile document, restricted to the fields the
// key subsystem reads and writes. The backing document store is an opaque
// collaborator; transport and merge semantics live behind the Store
// interface.
type Document struct {
	// UserID identifies the owning user.
	UserID string `json:"userId"`

	// PublicKey is the user's published identity public key (base64 PKIX).
	// Readable by anyone who needs to wrap a key for this user; written only
	// by this user's own session.
	PublicKey string `json:"publicKey,omitempty"`

	// EncryptedSharedKey is the shared channel key wrapped under this user's
	// own public key (base64 RSA-OAEP output).
	EncryptedSharedKey string `json:"encryptedSharedKey,omitempty"`

	// SharedKeyBase64 is the legacy pre-migration representation: the raw
	// channel key exported directly to base64 with no asymmetric protection.
	// Read-only going forward except during migration; when both fields are
	// present, EncryptedSharedKey takes priority.
	SharedKeyBase64 string `json:"sharedKeyBase64,omitempty"`

	// SyncPayload is the transient device-transfer payload, if one is pending.
	SyncPayload *SyncPayload `json:"tempSyncPayload,omitempty"`

	// UpdatedAt is maintained by the store on every write.
	UpdatedAt time.Time `json:"updatedAt"`
}

// SyncPayload is the time-boxed device-sync structure: the user's exported
// private key encrypted with a key derived from a short numeric code.
type SyncPayload struct {
	Salt      string    `json:"salt"` // base64
	IV        string    `json:"iv"`   // base64
	Data      string    `json:"data"` // base64 ciphertext of the private key text
	Timestamp time.Time `json:"timestamp"`
}

// Store reads and writes a user's own profile document. Every method writes
// only the caller's own document; delivering a key into a partner's document
// is deliberately excluded and lives on KeyDeliverer.
type Store interface {
	// Get fetches a profile document. Returns ErrProfileNotFound if the user
	// has no document yet.
	Get(ctx context.Context, userID string) (*Document, error)

	// PublishPublicKey writes the public key field of the user's document,
	// creating the document if needed. It never touches private key material.
	PublishPublicKey(ctx context.Context, userID, publicKey string) error

	// SetEncryptedSharedKey writes the user's own wrapped channel key
	// (self-bootstrap and repair paths).
	SetEncryptedSharedKey(ctx context.Context, userID, encryptedKey string) error

	// PublishIdentity writes publicKey and encryptedSharedKey in a single
	// update, as the migration engine requires. It leaves sharedKeyBase64
	// untouched.
	PublishIdentity(ctx context.Context, userID, publicKey, encryptedKey string) error

	// PutSyncPayload stores the transient device-sync payload on the user's
	// own document. A nil payload clears the field.
	PutSyncPayload(ctx context.Context, userID string, payload *SyncPayload) error
}

// KeyDeliverer is the one capability that crosses per-user write isolation:
// the pairing step writes the wrapped channel key into the partner's
// document, not the actor's own. Keeping it off Store makes the unusual
// privilege visible at the interface level so server-side rules can scope it
// independently.
type KeyDeliverer interface {
	// DeliverSharedKey writes encryptedKey into the recipient's document as
	// their EncryptedSharedKey.
	DeliverSharedKey(ctx context.Context, recipientID, encryptedKey string) error
}

// Watcher is implemented by backends that can push document changes. Each
// received Document is a complete snapshot; consumers re-run their decision
// logic per snapshot and must stay idempotent under repeated firings.
type Watcher interface {
	// Watch streams snapshots of a user's document until ctx is done. The
	// current document, if any, is delivered first.
	Watch(ctx context.Context, userID string) (<-chan Document, error)
}
