package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	kerrors "github.com/entwineapp/entwine/internal/errors"
)

// profileRecord is the relational shape of a Document for hosted
// deployments. Sync payload fields are flattened; a zero SyncTimestamp
// means no payload is pending.
type profileRecord struct {
	UserID             string    `gorm:"primaryKey"`
	PublicKey          string    `gorm:"type:text"`
	EncryptedSharedKey string    `gorm:"type:text"`
	SharedKeyBase64    string    `gorm:"type:text"`
	SyncSalt           string    `gorm:"type:text"`
	SyncIV             string    `gorm:"type:text"`
	SyncData           string    `gorm:"type:text"`
	SyncTimestamp      time.Time ``
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

func (profileRecord) TableName() string { return "profiles" }

// GormStore persists profile documents in a relational database. It has no
// realtime Watch; hosted deployments poll or sit behind a push layer that is
// out of scope here.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a postgres-backed store and runs migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&profileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate profiles table: %w", err)
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreWithDB wraps an existing gorm handle (used by tests with an
// alternate driver).
func NewGormStoreWithDB(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&profileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate profiles table: %w", err)
	}
	return &GormStore{db: db}, nil
}

var (
	_ Store        = (*GormStore)(nil)
	_ KeyDeliverer = (*GormStore)(nil)
)

// Get fetches the user's document.
func (s *GormStore) Get(ctx context.Context, userID string) (*Document, error) {
	var rec profileRecord
	err := s.db.WithContext(ctx).First(&rec, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, kerrors.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	doc := &Document{
		UserID:             rec.UserID,
		PublicKey:          rec.PublicKey,
		EncryptedSharedKey: rec.EncryptedSharedKey,
		SharedKeyBase64:    rec.SharedKeyBase64,
		UpdatedAt:          rec.UpdatedAt,
	}
	if !rec.SyncTimestamp.IsZero() {
		doc.SyncPayload = &SyncPayload{
			Salt:      rec.SyncSalt,
			IV:        rec.SyncIV,
			Data:      rec.SyncData,
			Timestamp: rec.SyncTimestamp,
		}
	}
	return doc, nil
}

// PublishPublicKey writes the user's public key column.
func (s *GormStore) PublishPublicKey(ctx context.Context, userID, publicKey string) error {
	return s.upsert(ctx, userID, map[string]any{"public_key": publicKey})
}

// SetEncryptedSharedKey writes the user's own wrapped channel key.
func (s *GormStore) SetEncryptedSharedKey(ctx context.Context, userID, encryptedKey string) error {
	return s.upsert(ctx, userID, map[string]any{"encrypted_shared_key": encryptedKey})
}

// PublishIdentity writes publicKey and encryptedSharedKey in one update.
func (s *GormStore) PublishIdentity(ctx context.Context, userID, publicKey, encryptedKey string) error {
	return s.upsert(ctx, userID, map[string]any{
		"public_key":           publicKey,
		"encrypted_shared_key": encryptedKey,
	})
}

// PutSyncPayload stores or clears the device-sync payload columns.
func (s *GormStore) PutSyncPayload(ctx context.Context, userID string, payload *SyncPayload) error {
	values := map[string]any{
		"sync_salt":      "",
		"sync_iv":        "",
		"sync_data":      "",
		"sync_timestamp": time.Time{},
	}
	if payload != nil {
		values["sync_salt"] = payload.Salt
		values["sync_iv"] = payload.IV
		values["sync_data"] = payload.Data
		values["sync_timestamp"] = payload.Timestamp
	}
	return s.upsert(ctx, userID, values)
}

// DeliverSharedKey writes the wrapped key into the recipient's row.
func (s *GormStore) DeliverSharedKey(ctx context.Context, recipientID, encryptedKey string) error {
	return s.upsert(ctx, recipientID, map[string]any{"encrypted_shared_key": encryptedKey})
}

func (s *GormStore) upsert(ctx context.Context, userID string, values map[string]any) error {
	db := s.db.WithContext(ctx)

	var rec profileRecord
	err := db.First(&rec, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = profileRecord{UserID: userID}
		if err := db.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	if err := db.Model(&profileRecord{}).Where("user_id = ?", userID).Updates(values).Error; err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}
