package profile

import (
	"context"
	"sync"
	"time"

	kerrors "github.com/entwineapp/entwine/internal/errors"
)

// MemoryStore is an in-process Store with realtime Watch support. Snapshots
// handed out are copies; mutating a returned Document never affects the
// store.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]*Document
	watchers map[string][]chan Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]*Document),
		watchers: make(map[string][]chan Document),
	}
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ KeyDeliverer = (*MemoryStore)(nil)
	_ Watcher      = (*MemoryStore)(nil)
)

// Get fetches a copy of the user's document.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[userID]
	if !ok {
		return nil, kerrors.ErrProfileNotFound
	}
	copied := *doc
	return &copied, nil
}

// PublishPublicKey writes the user's public key field.
func (s *MemoryStore) PublishPublicKey(ctx context.Context, userID, publicKey string) error {
	s.update(userID, func(doc *Document) {
		doc.PublicKey = publicKey
	})
	return nil
}

// SetEncryptedSharedKey writes the user's own wrapped channel key.
func (s *MemoryStore) SetEncryptedSharedKey(ctx context.Context, userID, encryptedKey string) error {
	s.update(userID, func(doc *Document) {
		doc.EncryptedSharedKey = encryptedKey
	})
	return nil
}

// PublishIdentity writes publicKey and encryptedSharedKey in one update.
func (s *MemoryStore) PublishIdentity(ctx context.Context, userID, publicKey, encryptedKey string) error {
	s.update(userID, func(doc *Document) {
		doc.PublicKey = publicKey
		doc.EncryptedSharedKey = encryptedKey
	})
	return nil
}

// PutSyncPayload stores or clears the transient device-sync payload.
func (s *MemoryStore) PutSyncPayload(ctx context.Context, userID string, payload *SyncPayload) error {
	s.update(userID, func(doc *Document) {
		if payload == nil {
			doc.SyncPayload = nil
			return
		}
		copied := *payload
		doc.SyncPayload = &copied
	})
	return nil
}

// DeliverSharedKey writes the wrapped key into the recipient's document.
// This is the cross-write exception used by the pairing step.
func (s *MemoryStore) DeliverSharedKey(ctx context.Context, recipientID, encryptedKey string) error {
	s.update(recipientID, func(doc *Document) {
		doc.EncryptedSharedKey = encryptedKey
	})
	return nil
}

// SetSharedKeyBase64 seeds the legacy raw-key field. Only migration tests
// and fixtures need this; the subsystem itself never writes it.
func (s *MemoryStore) SetSharedKeyBase64(userID, raw string) {
	s.update(userID, func(doc *Document) {
		doc.SharedKeyBase64 = raw
	})
}

// Watch streams document snapshots for userID. The current document, if any,
// is delivered first. The channel closes when ctx is done.
func (s *MemoryStore) Watch(ctx context.Context, userID string) (<-chan Document, error) {
	ch := make(chan Document, 8)

	s.mu.Lock()
	if doc, ok := s.docs[userID]; ok {
		ch <- *doc
	}
	s.watchers[userID] = append(s.watchers[userID], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		live := s.watchers[userID][:0]
		for _, w := range s.watchers[userID] {
			if w != ch {
				live = append(live, w)
			}
		}
		s.watchers[userID] = live
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (s *MemoryStore) update(userID string, mutate func(*Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[userID]
	if !ok {
		doc = &Document{UserID: userID}
		s.docs[userID] = doc
	}
	mutate(doc)
	doc.UpdatedAt = time.Now().UTC()

	for _, w := range s.watchers[userID] {
		select {
		case w <- *doc:
		default:
			// Slow watcher; it will catch up on the next update.
		}
	}
}
