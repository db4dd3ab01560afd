package store

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"

	"salesloom/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*SequenceStore, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Campaign{}, &models.Sequence{}))
	return NewSequenceStore(db, log.New(os.Stdout, "STORE: ", log.LstdFlags)), db
}

func createSequence(t *testing.T, ss *SequenceStore) models.Sequence {
	t.Helper()
	seq := models.Sequence{
		UserID:     1,
		CampaignID: 1,
		Name:       "Warm intro",
		Status:     models.SequenceStatusDraft,
		Steps: []models.Step{
			{ID: "a", StepType: models.StepTypeEmail, Subject: "Hi", Body: "Hello"},
			{ID: "b", StepType: models.StepTypeWait, DelayHours: 48},
			{ID: "c", StepType: models.StepTypeEmail, Subject: "Bump", Body: "Ping"},
		},
	}
	require.NoError(t, ss.Create(context.Background(), &seq))
	return seq
}

func TestSequenceStoreUpdateRevivesStaleDraft(t *testing.T) {
	ss, db := newTestStore(t)
	ctx := context.Background()

	seq := createSequence(t, ss)
	require.NoError(t, db.Model(&models.Sequence{}).Where("id = ?", seq.ID).
		UpdateColumn("stale", true).Error)

	seq.Name = "Revived"
	saved, err := ss.UpdateSequence(ctx, seq)
	require.NoError(t, err)
	assert.False(t, saved.Stale)

	got, err := ss.Get(ctx, 1, seq.ID)
	require.NoError(t, err)
	assert.False(t, got.Stale)
	assert.Equal(t, "Revived", got.Name)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, "a", got.Steps[0].ID)
}

func TestSequenceStoreUpdateIsUserScoped(t *testing.T) {
	ss, _ := newTestStore(t)
	ctx := context.Background()

	seq := createSequence(t, ss)
	seq.UserID = 99

	_, err := ss.UpdateSequence(ctx, seq)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSequenceStoreReorderPersistsNewOrder(t *testing.T) {
	ss, _ := newTestStore(t)
	ctx := context.Background()

	seq := createSequence(t, ss)

	saved, err := ss.ReorderSteps(ctx, 1, seq.ID, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, stepIDs(saved.Steps))

	got, err := ss.Get(ctx, 1, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, stepIDs(got.Steps))
	for i, step := range got.Steps {
		assert.Equal(t, i, step.StepOrder)
	}
}

func TestSequenceStoreReorderRejectsOutOfRange(t *testing.T) {
	ss, _ := newTestStore(t)
	ctx := context.Background()

	seq := createSequence(t, ss)

	_, err := ss.ReorderSteps(ctx, 1, seq.ID, 0, 7)
	assert.Error(t, err)

	got, err := ss.Get(ctx, 1, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, stepIDs(got.Steps))
}

func stepIDs(steps []models.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	return ids
}
