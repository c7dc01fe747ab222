package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	kerrors "github.com/entwineapp/entwine/internal/errors"
)

// FileStore keeps one JSON document per user in a shared directory. It is
// the CLI default backend: point both partners' devices at the same synced
// folder and the folder plays the role of the document store. Watch is
// backed by filesystem notification.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory at %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

var (
	_ Store        = (*FileStore)(nil)
	_ KeyDeliverer = (*FileStore)(nil)
	_ Watcher      = (*FileStore)(nil)
)

func (s *FileStore) docPath(userID string) string {
	return filepath.Join(s.dir, userID+".json")
}

// Get reads and decodes the user's document file.
func (s *FileStore) Get(ctx context.Context, userID string) (*Document, error) {
	data, err := os.ReadFile(s.docPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kerrors.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to read profile document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile document: %w", err)
	}
	return &doc, nil
}

// PublishPublicKey writes the user's public key field.
func (s *FileStore) PublishPublicKey(ctx context.Context, userID, publicKey string) error {
	return s.update(ctx, userID, func(doc *Document) {
		doc.PublicKey = publicKey
	})
}

// SetEncryptedSharedKey writes the user's own wrapped channel key.
func (s *FileStore) SetEncryptedSharedKey(ctx context.Context, userID, encryptedKey string) error {
	return s.update(ctx, userID, func(doc *Document) {
		doc.EncryptedSharedKey = encryptedKey
	})
}

// PublishIdentity writes publicKey and encryptedSharedKey in one update.
func (s *FileStore) PublishIdentity(ctx context.Context, userID, publicKey, encryptedKey string) error {
	return s.update(ctx, userID, func(doc *Document) {
		doc.PublicKey = publicKey
		doc.EncryptedSharedKey = encryptedKey
	})
}

// PutSyncPayload stores or clears the transient device-sync payload.
func (s *FileStore) PutSyncPayload(ctx context.Context, userID string, payload *SyncPayload) error {
	return s.update(ctx, userID, func(doc *Document) {
		doc.SyncPayload = payload
	})
}

// DeliverSharedKey writes the wrapped key into the recipient's document.
func (s *FileStore) DeliverSharedKey(ctx context.Context, recipientID, encryptedKey string) error {
	return s.update(ctx, recipientID, func(doc *Document) {
		doc.EncryptedSharedKey = encryptedKey
	})
}

// SetSharedKeyBase64 seeds the legacy raw-key field for fixtures and tests.
func (s *FileStore) SetSharedKeyBase64(userID, raw string) error {
	return s.update(context.Background(), userID, func(doc *Document) {
		doc.SharedKeyBase64 = raw
	})
}

func (s *FileStore) update(ctx context.Context, userID string, mutate func(*Document)) error {
	doc, err := s.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, kerrors.ErrProfileNotFound) {
			return err
		}
		doc = &Document{UserID: userID}
	}

	mutate(doc)
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile document: %w", err)
	}

	// Write-then-rename so watchers never observe a half-written document.
	tmp := s.docPath(userID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write profile document: %w", err)
	}
	if err := os.Rename(tmp, s.docPath(userID)); err != nil {
		return fmt.Errorf("failed to replace profile document: %w", err)
	}
	return nil
}

// Watch streams document snapshots for userID using filesystem notification
// on the profile directory. The current document, if any, is delivered
// first. The channel closes when ctx is done.
func (s *FileStore) Watch(ctx context.Context, userID string) (<-chan Document, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := fsWatcher.Add(s.dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch profile directory: %w", err)
	}

	ch := make(chan Document, 8)
	target := s.docPath(userID)

	go func() {
		defer close(ch)
		defer fsWatcher.Close()

		if doc, err := s.Get(ctx, userID); err == nil {
			select {
			case ch <- *doc:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if event.Name != target {
					continue
				}
				if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
					continue
				}
				doc, err := s.Get(ctx, userID)
				if err != nil {
					continue
				}
				select {
				case ch <- *doc:
				case <-ctx.Done():
					return
				}
			case _, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return ch, nil
}
