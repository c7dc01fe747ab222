package e2ee

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the salt length for code-derived keys.
	SaltSize = 16

	// deriveIterations is the PBKDF2 round count for code-derived keys.
	deriveIterations = 100_000
)

// DeriveKeyFromCode deterministically derives a symmetric key from a short
// numeric sync code and a salt. The same (code, salt) pair always yields the
// same key on both devices.
//
// Six digits is far too little entropy for a long-lived key. This derivation
// exists only for the time-boxed, single-use device-sync payload and must
// never protect the shared channel key itself.
func DeriveKeyFromCode(code string, salt []byte) []byte {
	return pbkdf2.Key([]byte(code), salt, deriveIterations, KeySize, sha256.New)
}

// GenerateSalt produces a random salt for DeriveKeyFromCode.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
