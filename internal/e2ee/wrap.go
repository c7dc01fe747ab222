package e2ee

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	kerrors "github.com/entwineapp/entwine/internal/errors"
)

// WrapSymmetricKey encrypts a raw symmetric key under the recipient's public
// key with RSA-OAEP(SHA-256) and returns it as base64 text. This is the sole
// mechanism by which the shared channel key moves between identities without
// a plaintext step outside memory.
func WrapSymmetricKey(symKey []byte, recipient *rsa.PublicKey) (string, error) {
	if len(symKey) != KeySize {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", kerrors.ErrInvalidKeyLength, KeySize, len(symKey))
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, recipient, symKey, nil)
	if err != nil {
		return "", fmt.Errorf("failed to wrap symmetric key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// UnwrapSymmetricKey recovers a symmetric key wrapped by WrapSymmetricKey.
// A private key that does not match the wrapping public key, a corrupted
// payload, and tampered ciphertext all surface as ErrUnwrapFailed.
func UnwrapSymmetricKey(wrapped string, priv *rsa.PrivateKey) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: wrapped key is not valid base64", kerrors.ErrKeyFormat)
	}

	symKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return nil, kerrors.ErrUnwrapFailed
	}
	if len(symKey) != KeySize {
		return nil, fmt.Errorf("%w: unwrapped to %d bytes", kerrors.ErrUnwrapFailed, len(symKey))
	}
	return symKey, nil
}
