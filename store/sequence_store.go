package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"salesloom/builder"
	"salesloom/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a sequence does not exist or is not visible to
// the requesting user.
var ErrNotFound = errors.New("sequence not found")

// SequenceStore is the GORM-backed sequence repository. Writes are
// whole-sequence: the steps column is JSONB, so the row is the unit of
// persistence and of conflict resolution.
type SequenceStore struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewSequenceStore(db *gorm.DB, logger *log.Logger) *SequenceStore {
	return &SequenceStore{db: db, logger: logger}
}

// ListByCampaign returns the user's sequences for one campaign, ordered by
// creation time.
func (ss *SequenceStore) ListByCampaign(ctx context.Context, userID, campaignID uint) ([]models.Sequence, error) {
	var sequences []models.Sequence
	err := ss.db.WithContext(ctx).
		Where("user_id = ? AND campaign_id = ?", userID, campaignID).
		Order("created_at ASC").
		Find(&sequences).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	return sequences, nil
}

// Create persists a new sequence after normalizing its step order.
func (ss *SequenceStore) Create(ctx context.Context, seq *models.Sequence) error {
	if seq.Status == "" {
		seq.Status = models.SequenceStatusDraft
	}
	for i := range seq.Steps {
		seq.Steps[i].StepOrder = i
	}
	if err := ss.db.WithContext(ctx).Create(seq).Error; err != nil {
		return fmt.Errorf("failed to create sequence: %w", err)
	}
	return nil
}

// Get loads one sequence scoped to the user.
func (ss *SequenceStore) Get(ctx context.Context, userID, id uint) (models.Sequence, error) {
	var seq models.Sequence
	err := ss.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&seq, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Sequence{}, ErrNotFound
	}
	if err != nil {
		return models.Sequence{}, fmt.Errorf("failed to load sequence: %w", err)
	}
	return seq, nil
}

// UpdateSequence overwrites the stored row with the given state and returns
// what was saved. Last write wins at whole-sequence granularity; callers that
// care about concurrent writers reconcile through the realtime channel, not
// through row locks.
func (ss *SequenceStore) UpdateSequence(ctx context.Context, seq models.Sequence) (models.Sequence, error) {
	seq.UpdatedAt = time.Now()
	seq.Stale = false // any save revives a flagged draft
	// Struct updates with an explicit Select so the JSONB serializer runs for
	// the steps column and zero values still land.
	result := ss.db.WithContext(ctx).
		Model(&models.Sequence{}).
		Where("id = ? AND user_id = ?", seq.ID, seq.UserID).
		Select("name", "status", "steps", "updated_at", "stale").
		Updates(seq)
	if result.Error != nil {
		return models.Sequence{}, fmt.Errorf("failed to update sequence: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.Sequence{}, ErrNotFound
	}
	return seq, nil
}

// ReorderSteps moves one step and renumbers the order inside a transaction,
// so the gapless-order invariant is enforced in exactly one place.
func (ss *SequenceStore) ReorderSteps(ctx context.Context, userID, id uint, fromIndex, toIndex int) (models.Sequence, error) {
	var seq models.Sequence
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&seq, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		n := len(seq.Steps)
		if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
			return fmt.Errorf("reorder index out of range: from=%d to=%d len=%d", fromIndex, toIndex, n)
		}

		seq.Steps = builder.Reorder(seq.Steps, fromIndex, toIndex)
		seq.UpdatedAt = time.Now()
		return tx.Model(&models.Sequence{}).
			Where("id = ?", seq.ID).
			Select("steps", "updated_at").
			Updates(seq).Error
	})
	if err != nil {
		return models.Sequence{}, err
	}
	return seq, nil
}

// Delete soft-deletes a sequence.
func (ss *SequenceStore) Delete(ctx context.Context, userID, id uint) error {
	result := ss.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Sequence{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete sequence: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
