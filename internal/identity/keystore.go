package identity

import (
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/entwineapp/entwine/internal/e2ee"
	kerrors "github.com/entwineapp/entwine/internal/errors"
	logger "github.com/entwineapp/entwine/internal/logging"
)

// Keystore holds private keys in local device storage, one text file per
// user id. Nothing here ever leaves the device; the only readers are this
// process and device-sync export.
type Keystore struct {
	dir string
	log logger.Logger
}

// NewKeystore creates a keystore rooted at dir.
func NewKeystore(dir string, log logger.Logger) *Keystore {
	return &Keystore{dir: dir, log: log}
}

func (k *Keystore) path(userID string) string {
	return filepath.Join(k.dir, userID+".key")
}

// Load reads and imports the private key stored for userID. A missing file
// returns ErrNoLocalKey. Malformed stored text is treated the same way,
// with a logged warning, so callers fall through to the regeneration path
// instead of crashing.
func (k *Keystore) Load(userID string) (*rsa.PrivateKey, string, error) {
	data, err := os.ReadFile(k.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", kerrors.ErrNoLocalKey
		}
		return nil, "", fmt.Errorf("failed to read local private key: %w", err)
	}

	text := strings.TrimSpace(string(data))
	priv, err := e2ee.ImportPrivateKey(text)
	if err != nil {
		k.log.Warnf("Local private key for %s is malformed, treating as absent: %v", userID, err)
		return nil, "", kerrors.ErrNoLocalKey
	}
	return priv, text, nil
}

// Save persists exported private key text for userID, silently overwriting
// any prior key. Callers must ensure the overwrite is intentional: either no
// key exists yet, or the user explicitly confirmed a reset.
func (k *Keystore) Save(userID, privateKeyText string) error {
	if err := os.MkdirAll(k.dir, 0700); err != nil {
		return fmt.Errorf("failed to create keystore directory at %s: %w", k.dir, err)
	}
	if err := os.WriteFile(k.path(userID), []byte(privateKeyText), 0600); err != nil {
		return fmt.Errorf("failed to write local private key: %w", err)
	}
	return nil
}

// Exists reports whether a key file is present for userID, without
// validating its contents.
func (k *Keystore) Exists(userID string) bool {
	info, err := os.Stat(k.path(userID))
	return err == nil && !info.IsDir()
}
