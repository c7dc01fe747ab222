// Package errors provides typed error values for the Entwine key subsystem.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Crypto errors: primitive failures (ErrKeyFormat, ErrUnwrapFailed)
//   - Identity errors: local/published identity state (ErrNoLocalKey)
//   - Channel errors: shared channel state machine (ErrPrecursorNotReady)
//   - Profile errors: remote document store (ErrProfileNotFound)
//   - Sync errors: device transfer (ErrSyncExpired)
//
// # Usage
//
// Return errors from internal packages:
//
//	if doc.PublicKey == "" {
//	    return nil, errors.ErrNoIdentity
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Connect(ctx, opts)
//	if errors.Is(err, kerrors.ErrPrecursorNotReady) {
//	    // Tell the user to finish setup first
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("unlocking channel for user %s: %w", userID, errors.ErrUnwrapFailed)
//
// A deliberate property of the taxonomy: ErrDecryptFailed and ErrUnwrapFailed
// never distinguish a wrong key from tampered data. Authentication failures
// surface as one opaque condition.
package errors
