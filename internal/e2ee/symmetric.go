package e2ee

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	kerrors "github.com/entwineapp/entwine/internal/errors"
)

const (
	// KeySize is the symmetric key length in bytes (AES-256).
	KeySize = 32

	// IVSize is the GCM nonce length in bytes (96 bits).
	IVSize = 12
)

// GenerateSymmetricKey produces a new random AES-256 key.
func GenerateSymmetricKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate symmetric key: %w", err)
	}
	return key, nil
}

// EncryptBytes encrypts plaintext with AES-256-GCM under a fresh random IV.
// The IV is returned separately so callers can persist or transmit it
// alongside the ciphertext. A fresh IV is generated on every call; IV reuse
// under the same key breaks GCM.
func EncryptBytes(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	iv = make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	return gcm.Seal(nil, iv, plaintext, nil), iv, nil
}

// DecryptBytes decrypts AES-256-GCM ciphertext produced by EncryptBytes.
// Any mismatch between key, IV, and ciphertext surfaces as ErrDecryptFailed;
// a wrong key and tampered data are indistinguishable.
func DecryptBytes(ciphertext, key, iv []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: bad IV length %d", kerrors.ErrDecryptFailed, len(iv))
	}

	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, kerrors.ErrDecryptFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", kerrors.ErrInvalidKeyLength, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return gcm, nil
}
