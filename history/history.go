// Package history persists accepted submissions and the image fingerprints
// used for duplicate rejection.
package history

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"lukechampine.com/blake3"
)

// ErrDuplicateImage is returned when a fingerprint has been seen before.
var ErrDuplicateImage = errors.New("history: duplicate image")

// Submission is the durable record of one processed submission. Records are
// written for every accepted submission, rewarded or not, so the audit trail
// matches the ledger counters.
type Submission struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Actor       string    `gorm:"index;size:64;not null"`
	Cycle       uint64    `gorm:"index;not null"`
	Count       uint64    `gorm:"not null"`
	Reward      string    `gorm:"size:80;not null"`
	Validity    float64   `gorm:"not null"`
	Fingerprint string    `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt   time.Time
}

// Store wraps the relational backend for submission history.
type Store struct {
	db *gorm.DB
}

// NewStore migrates the schema and returns the store.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("history: nil database")
	}
	if err := db.AutoMigrate(&Submission{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Fingerprint derives the duplicate-detection key for a photo. BLAKE3 keeps
// the key short enough for an indexed column while remaining
// collision-resistant for adversarial inputs.
func Fingerprint(imageBase64 string) string {
	sum := blake3.Sum256([]byte(imageBase64))
	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether the fingerprint has been recorded before.
func (s *Store) IsDuplicate(ctx context.Context, fingerprint string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Submission{}).
		Where("fingerprint = ?", fingerprint).Count(&count).Error; err != nil {
		return false, fmt.Errorf("history: duplicate lookup: %w", err)
	}
	return count > 0, nil
}

// Record stores a processed submission. A fingerprint collision fails with
// ErrDuplicateImage.
func (s *Store) Record(ctx context.Context, record *Submission) error {
	if record == nil {
		return fmt.Errorf("history: nil record")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	duplicate, err := s.IsDuplicate(ctx, record.Fingerprint)
	if err != nil {
		return err
	}
	if duplicate {
		return fmt.Errorf("%w: %s", ErrDuplicateImage, record.Fingerprint)
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("history: record submission: %w", err)
	}
	return nil
}

// ByActor returns the most recent submissions for an actor, newest first.
func (s *Store) ByActor(ctx context.Context, actor string, limit int) ([]Submission, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var records []Submission
	if err := s.db.WithContext(ctx).
		Where("actor = ?", actor).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("history: load history: %w", err)
	}
	return records, nil
}

// CycleTotal counts the recorded submissions for a cycle.
func (s *Store) CycleTotal(ctx context.Context, cycle uint64) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Submission{}).
		Where("cycle = ?", cycle).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("history: cycle total: %w", err)
	}
	return count, nil
}
