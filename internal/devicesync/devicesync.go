package devicesync

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/entwineapp/entwine/internal/e2ee"
	kerrors "github.com/entwineapp/entwine/internal/errors"
	"github.com/entwineapp/entwine/internal/identity"
	logger "github.com/entwineapp/entwine/internal/logging"
	"github.com/entwineapp/entwine/internal/profile"
)

const (
	// SyncWindow is how long a sync payload stays redeemable. The boundary
	// is checked against the wall clock at redemption time; nothing sweeps
	// expired payloads in the background.
	SyncWindow = 5 * time.Minute

	codeSpace = 1_000_000 // 6 decimal digits
)

// Protocol transfers an identity's private key to a second device. Two
// mechanisms exist: a direct export of the private key text (rendered as QR
// or pasted), and a short numeric code protecting an encrypted copy parked
// on the user's own profile document.
type Protocol struct {
	keys     *identity.Keystore
	profiles profile.Store
	log      logger.Logger

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewProtocol creates a device sync protocol over the local keystore and
// the remote profile store.
func NewProtocol(keys *identity.Keystore, profiles profile.Store, log logger.Logger) *Protocol {
	return &Protocol{keys: keys, profiles: profiles, log: log, now: time.Now}
}

// ExportIdentity returns the private key text for userID for out-of-band
// transfer. The caller renders it as a QR payload or copyable text; the
// target device feeds it to ImportIdentity.
func (p *Protocol) ExportIdentity(userID string) (string, error) {
	_, text, err := p.keys.Load(userID)
	if err != nil {
		return "", err
	}
	return text, nil
}

// ImportIdentity installs private key text obtained from another device.
// This is a straight copy preserving the same keypair across devices; no
// new identity is generated. Malformed text returns ErrKeyFormat and leaves
// local storage untouched.
func (p *Protocol) ImportIdentity(userID, privateKeyText string) error {
	if _, err := e2ee.ImportPrivateKey(privateKeyText); err != nil {
		return err
	}
	if err := p.keys.Save(userID, privateKeyText); err != nil {
		return err
	}
	p.log.Infof("Installed transferred identity for %s", userID)
	return nil
}

// GenerateSyncCode creates a random 6-digit code, encrypts the exported
// private key under a key derived from code and salt, and parks the
// resulting payload on the user's own profile. The code is returned for the
// user to read off to their other device; it never touches the store.
func (p *Protocol) GenerateSyncCode(ctx context.Context, userID string) (string, error) {
	_, text, err := p.keys.Load(userID)
	if err != nil {
		return "", err
	}

	code, err := randomCode()
	if err != nil {
		return "", err
	}

	salt, err := e2ee.GenerateSalt()
	if err != nil {
		return "", err
	}

	derived := e2ee.DeriveKeyFromCode(code, salt)
	ciphertext, iv, err := e2ee.EncryptBytes([]byte(text), derived)
	if err != nil {
		return "", fmt.Errorf("encrypting sync payload: %w", err)
	}

	payload := &profile.SyncPayload{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		IV:        base64.StdEncoding.EncodeToString(iv),
		Data:      base64.StdEncoding.EncodeToString(ciphertext),
		Timestamp: p.now().UTC(),
	}
	if err := p.profiles.PutSyncPayload(ctx, userID, payload); err != nil {
		return "", fmt.Errorf("uploading sync payload: %w", err)
	}

	p.log.Infof("Sync payload uploaded for %s; code expires in %s", userID, SyncWindow)
	return code, nil
}

// RedeemSyncCode fetches the pending payload for userID, enforces the
// redemption window, decrypts with the code, and installs the recovered
// private key on this device.
//
// The expiry check runs before any decryption attempt: an expired payload
// fails with ErrSyncExpired even when the code is objectively correct. A
// wrong code surfaces as ErrDecryptFailed and leaves local storage
// unchanged. The payload is not deleted on redemption; the short window and
// single-party knowledge of the code bound the exposure.
func (p *Protocol) RedeemSyncCode(ctx context.Context, userID, code string) error {
	doc, err := p.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	if doc.SyncPayload == nil {
		return kerrors.ErrNoSyncPayload
	}
	payload := doc.SyncPayload

	if p.now().Sub(payload.Timestamp) > SyncWindow {
		return kerrors.ErrSyncExpired
	}

	salt, err := base64.StdEncoding.DecodeString(payload.Salt)
	if err != nil {
		return fmt.Errorf("%w: sync payload salt", kerrors.ErrKeyFormat)
	}
	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return fmt.Errorf("%w: sync payload iv", kerrors.ErrKeyFormat)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return fmt.Errorf("%w: sync payload data", kerrors.ErrKeyFormat)
	}

	derived := e2ee.DeriveKeyFromCode(code, salt)
	plaintext, err := e2ee.DecryptBytes(ciphertext, derived, iv)
	if err != nil {
		return err
	}

	return p.ImportIdentity(userID, string(plaintext))
}

// randomCode draws a uniform 6-digit code from the system entropy source.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", fmt.Errorf("failed to generate sync code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
