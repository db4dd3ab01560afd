package worker

import (
	"context"
	"log"
	"time"

	"salesloom/models"

	"gorm.io/gorm"
)

// CleanupWorker purges soft-deleted sequences once their retention window
// expires and flags long-abandoned drafts as stale. Runs alongside the API
// the same way the rest of the background jobs do.
type CleanupWorker struct {
	db            *gorm.DB
	logger        *log.Logger
	retentionDays int
}

func NewCleanupWorker(db *gorm.DB, logger *log.Logger, retentionDays int) *CleanupWorker {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &CleanupWorker{db: db, logger: logger, retentionDays: retentionDays}
}

func (cw *CleanupWorker) Start(ctx context.Context) {
	cw.logger.Println("Starting sequence cleanup worker...")
	ticker := time.NewTicker(6 * time.Hour)

	// First pass right away so restarts don't postpone cleanup by a tick
	cw.runOnce()

	for {
		select {
		case <-ticker.C:
			cw.runOnce()
		case <-ctx.Done():
			cw.logger.Println("Stopping sequence cleanup worker...")
			ticker.Stop()
			return
		}
	}
}

func (cw *CleanupWorker) runOnce() {
	cw.purgeDeleted()
	cw.flagStaleDrafts()
}

func (cw *CleanupWorker) purgeDeleted() {
	cutoff := time.Now().AddDate(0, 0, -cw.retentionDays)

	result := cw.db.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&models.Sequence{})
	if result.Error != nil {
		cw.logger.Printf("Failed to purge deleted sequences: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		cw.logger.Printf("Purged %d deleted sequences older than %d days", result.RowsAffected, cw.retentionDays)
	}
}

// flagStaleDrafts marks drafts nobody has touched for the retention window.
// UpdateColumn keeps updated_at as-is: the flag must not look like an edit to
// the conflict ordering, and a flagged draft revives on its next real save.
func (cw *CleanupWorker) flagStaleDrafts() {
	cutoff := time.Now().AddDate(0, 0, -cw.retentionDays)

	result := cw.db.Model(&models.Sequence{}).
		Where("status = ? AND stale = ? AND updated_at < ?", models.SequenceStatusDraft, false, cutoff).
		UpdateColumn("stale", true)
	if result.Error != nil {
		cw.logger.Printf("Failed to flag stale drafts: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		cw.logger.Printf("Flagged %d drafts untouched for over %d days", result.RowsAffected, cw.retentionDays)
	}
}
