package errors

import "errors"

// Cryptographic errors indicate failures in the primitive layer.
var (
	// ErrKeyFormat indicates imported key material is malformed or not in the
	// expected transportable encoding.
	ErrKeyFormat = errors.New("malformed key encoding")

	// ErrDecryptFailed indicates symmetric decryption failed authentication.
	// A wrong key and tampered ciphertext are indistinguishable.
	ErrDecryptFailed = errors.New("failed to decrypt data")

	// ErrUnwrapFailed indicates a wrapped shared key could not be unwrapped
	// with the local private key.
	ErrUnwrapFailed = errors.New("failed to unwrap shared key")

	// ErrInvalidKeyLength indicates a symmetric key has an unexpected length.
	ErrInvalidKeyLength = errors.New("invalid symmetric key length")
)

// Identity errors indicate issues with the local or published identity.
var (
	// ErrNoLocalKey indicates no private key is stored on this device for the user.
	ErrNoLocalKey = errors.New("no local private key for this user")

	// ErrNoIdentity indicates the user has no published identity yet.
	ErrNoIdentity = errors.New("no identity has been published")

	// ErrBrokenIdentity indicates a public key is published but the matching
	// private key is not usable on this device.
	ErrBrokenIdentity = errors.New("published identity has no usable private key on this device")
)

// Channel errors indicate issues with the shared channel state machine.
var (
	// ErrPrecursorNotReady indicates an operation was invoked before the
	// shared channel resolved its key.
	ErrPrecursorNotReady = errors.New("shared channel key is not resolved yet")

	// ErrChannelLocked indicates the channel holds a wrapped key that cannot
	// be opened on this device.
	ErrChannelLocked = errors.New("shared channel is locked")
)

// Profile store errors indicate issues with the remote profile document.
var (
	// ErrProfileNotFound indicates no profile document exists for the user.
	ErrProfileNotFound = errors.New("profile document not found")

	// ErrWatchUnsupported indicates the store backend has no realtime watch.
	ErrWatchUnsupported = errors.New("store does not support realtime watch")

	// ErrNoLegacyKey indicates a migration was requested for a profile that
	// carries no legacy raw shared key.
	ErrNoLegacyKey = errors.New("profile has no legacy shared key")
)

// Device sync errors indicate issues with transferring an identity.
var (
	// ErrSyncExpired indicates the sync payload is past its redemption window.
	ErrSyncExpired = errors.New("sync code has expired")

	// ErrNoSyncPayload indicates the profile carries no pending sync payload.
	ErrNoSyncPayload = errors.New("no pending sync payload")
)
