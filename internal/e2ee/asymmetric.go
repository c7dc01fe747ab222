package e2ee

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	kerrors "github.com/entwineapp/entwine/internal/errors"
)

// rsaKeyBits is the modulus size for generated identities. Wrapped payloads
// are at most KeySize bytes, well within OAEP limits for 2048-bit keys.
const rsaKeyBits = 2048

// GenerateKeypair creates a new RSA identity keypair. Keys generated here
// are used exclusively for wrapping and unwrapping symmetric keys, never
// for signing.
func GenerateKeypair() (*rsa.PublicKey, *rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}
	return &privateKey.PublicKey, privateKey, nil
}

// ExportPublicKey encodes a public key as base64 PKIX DER, the form stored
// on the remote profile document.
func ExportPublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ExportPrivateKey encodes a private key as base64 PKCS#8 DER, the form
// held in local device storage and carried by device-sync transfers.
func ExportPrivateKey(priv *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ImportPublicKey decodes a base64 PKIX public key. Malformed input returns
// ErrKeyFormat.
func ImportPublicKey(text string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not valid base64", kerrors.ErrKeyFormat)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyFormat, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", kerrors.ErrKeyFormat)
	}
	return rsaPub, nil
}

// ImportPrivateKey decodes a base64 PKCS#8 private key. Malformed input
// returns ErrKeyFormat.
func ImportPrivateKey(text string) (*rsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: private key is not valid base64", kerrors.ErrKeyFormat)
	}
	priv, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrKeyFormat, err)
	}
	rsaPriv, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", kerrors.ErrKeyFormat)
	}
	return rsaPriv, nil
}
