package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesloom/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeWriter struct {
	calls   int
	failAll bool
	saved   []models.Sequence
}

func (f *fakeWriter) UpdateSequence(_ context.Context, seq models.Sequence) (models.Sequence, error) {
	f.calls++
	if f.failAll {
		return models.Sequence{}, errors.New("persist failed")
	}
	f.saved = append(f.saved, seq)
	return seq, nil
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) sink(e Event) { r.events = append(r.events, e) }

func (r *eventRecorder) ofType(t EventType) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var baseTime = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func baseSequence() models.Sequence {
	return models.Sequence{
		Model:  gorm.Model{ID: 7, UpdatedAt: baseTime},
		UserID: 1,
		Name:   "Outbound warm intro",
		Status: models.SequenceStatusDraft,
		Steps: []models.Step{
			{ID: "A", StepType: models.StepTypeEmail, StepOrder: 0, Subject: "Hi", Body: "Hello"},
			{ID: "B", StepType: models.StepTypeWait, StepOrder: 1, DelayHours: 48},
			{ID: "C", StepType: models.StepTypeEmail, StepOrder: 2, Subject: "Bump", Body: "Ping"},
		},
	}
}

func newTestSession(writer *fakeWriter, rec *eventRecorder, now *time.Time) *Session {
	return NewSession(baseSequence(), writer, rec.sink, Options{
		MaxPersistRetries: 2,
		RetryBackoff:      time.Millisecond,
		Now:               func() time.Time { return *now },
	})
}

func TestSessionSupersededEditIsDroppedWithOneConflictEvent(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	// Local rename, not yet acknowledged
	sess.Rename("My rename")
	require.Equal(t, "My rename", sess.Sequence().Name)
	require.True(t, sess.Dirty())

	// Remote snapshot timestamped after the local edit
	remote := baseSequence()
	remote.Name = "Teammate's name"
	remote.UpdatedAt = baseTime.Add(2 * time.Minute)
	sess.QueueRemoteUpdate(remote)
	sess.ApplyRemoteQueue()

	// Last write wins: the rename is dropped and reported exactly once
	conflicts := rec.ofType(EventConflictSuperseded)
	require.Len(t, conflicts, 1)
	assert.Contains(t, conflicts[0].Message, "not applied")
	assert.Equal(t, "Teammate's name", sess.Sequence().Name)
	assert.False(t, sess.Dirty())

	// The abandoned edit never reaches the store
	sess.Flush(context.Background())
	assert.Equal(t, 0, writer.calls)
}

func TestSessionEditNewerThanRemoteSnapshotSurvives(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(3 * time.Minute)
	sess := newTestSession(writer, rec, &now)

	sess.Rename("My rename")

	// Remote snapshot older than the local edit: state is replaced, then the
	// pending rename is re-applied on top
	remote := baseSequence()
	remote.Name = "Teammate's name"
	remote.Status = models.SequenceStatusPaused
	remote.UpdatedAt = baseTime.Add(2 * time.Minute)
	sess.QueueRemoteUpdate(remote)
	sess.ApplyRemoteQueue()

	assert.Empty(t, rec.ofType(EventConflictSuperseded))
	got := sess.Sequence()
	assert.Equal(t, "My rename", got.Name)
	assert.Equal(t, models.SequenceStatusPaused, got.Status)
	assert.True(t, sess.Dirty())
}

func TestSessionEchoOfOwnWriteIsIgnored(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	// A snapshot no newer than the last acknowledged state changes nothing
	echo := baseSequence()
	sess.QueueRemoteUpdate(echo)
	sess.ApplyRemoteQueue()

	assert.Empty(t, rec.events)
	assert.Equal(t, "Outbound warm intro", sess.Sequence().Name)
}

func TestSessionFlushPersistsAndAcks(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	sess.Rename("Saved name")
	sess.Flush(context.Background())

	require.Equal(t, 1, writer.calls)
	require.Len(t, writer.saved, 1)
	assert.Equal(t, "Saved name", writer.saved[0].Name)
	assert.False(t, sess.Dirty())

	// Nothing new to save: Flush is a no-op
	sess.Flush(context.Background())
	assert.Equal(t, 1, writer.calls)
}

func TestSessionFlushExhaustionRollsBackAndNotifies(t *testing.T) {
	writer := &fakeWriter{failAll: true}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	sess.Rename("Doomed rename")
	sess.Flush(context.Background())

	assert.Equal(t, 2, writer.calls) // bounded attempts

	failures := rec.ofType(EventPersistFailed)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "rolled back")

	// Rolled back to the last acknowledged state, history reset
	assert.Equal(t, "Outbound warm intro", sess.Sequence().Name)
	assert.False(t, sess.Dirty())
	assert.False(t, sess.CanUndo())
}

func TestSessionAddUpdateRemoveStep(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	sess.AddStep(models.Step{StepType: models.StepTypeWait, DelayHours: 24})
	got := sess.Sequence()
	require.Len(t, got.Steps, 4)
	assert.Equal(t, 3, got.Steps[3].StepOrder)
	assert.NotEmpty(t, got.Steps[3].ID)
	require.Len(t, rec.ofType(EventStepAdded), 1)

	sess.UpdateStep(models.Step{ID: "B", StepType: models.StepTypeWait, DelayHours: 72})
	assert.Equal(t, 72, sess.Sequence().Steps[1].DelayHours)
	assert.Equal(t, 1, sess.Sequence().Steps[1].StepOrder)

	sess.RemoveStep("A")
	got = sess.Sequence()
	require.Len(t, got.Steps, 3)
	assert.Equal(t, "B", got.Steps[0].ID)
	for i, step := range got.Steps {
		assert.Equal(t, i, step.StepOrder)
	}
	require.Len(t, rec.ofType(EventStepRemoved), 1)
}

func TestSessionRejectsUnknownStepType(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	sess.AddStep(models.Step{StepType: "TELEPORT"})

	assert.Len(t, sess.Sequence().Steps, 3)
	require.Len(t, rec.ofType(EventValidationFailed), 1)
	assert.False(t, sess.Dirty())
}

func TestSessionInvalidDraftEditAppliesButReports(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	// Out-of-range delay: the draft edit lands, the problem is reported inline
	sess.AddStep(models.Step{StepType: models.StepTypeWait, DelayHours: 200})

	assert.Len(t, sess.Sequence().Steps, 4)
	events := rec.ofType(EventValidationFailed)
	require.Len(t, events, 1)
	assert.True(t, hasPath(events[0].Errors, "delay_hours"))
}

func TestSessionUndoRedo(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	require.False(t, sess.CanUndo())

	sess.RemoveStep("C")
	require.Len(t, sess.Sequence().Steps, 2)
	require.True(t, sess.CanUndo())

	sess.Undo()
	assert.Len(t, sess.Sequence().Steps, 3)
	require.True(t, sess.CanRedo())

	sess.Redo()
	assert.Len(t, sess.Sequence().Steps, 2)
}

func TestSessionPointerGestureCommitsReorder(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	sess.PointerDown(0, Point{X: 0, Y: 0})
	sess.PointerMove(Point{X: 0, Y: 80})
	sess.HoverOver(2)
	sess.PointerUp()

	got := sess.Sequence()
	assert.Equal(t, []string{"B", "C", "A"}, []string{got.Steps[0].ID, got.Steps[1].ID, got.Steps[2].ID})
	for i, step := range got.Steps {
		assert.Equal(t, i, step.StepOrder)
	}
	require.Len(t, rec.ofType(EventReorderCommitted), 1)
	assert.False(t, sess.DragState().IsDragging)
}

func TestSessionCancelledDragMutatesNothing(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	sess.KeyGrab(0)
	sess.KeyMove(2)
	sess.CancelDrag()

	got := sess.Sequence()
	assert.Equal(t, "A", got.Steps[0].ID)
	assert.Empty(t, rec.ofType(EventReorderCommitted))
	assert.False(t, sess.Dirty())
}

func TestSessionKeyboardReorder(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	sess.KeyGrab(2)
	sess.KeyMove(-1)
	sess.KeyMove(-1)
	sess.KeyCommit()

	got := sess.Sequence()
	assert.Equal(t, []string{"C", "A", "B"}, []string{got.Steps[0].ID, got.Steps[1].ID, got.Steps[2].ID})
}

func TestSessionValidateEmitsOnFailure(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	sess.AddStep(models.Step{
		ID:       "branch",
		StepType: models.StepTypeCondition,
		Condition: &models.StepCondition{
			Field: "opened", Operator: "is", Value: "true", NextStepID: "ghost",
		},
	})
	rec.events = nil

	errs := sess.Validate()
	require.NotEmpty(t, errs)
	require.Len(t, rec.ofType(EventValidationFailed), 1)

	sess.RemoveStep("branch")
	assert.Empty(t, sess.Validate())
}

func TestSessionWindowTracksStepCount(t *testing.T) {
	writer := &fakeWriter{}
	rec := &eventRecorder{}
	now := baseTime.Add(time.Minute)
	sess := newTestSession(writer, rec, &now)

	w := sess.Window(0, 720)
	assert.Equal(t, Window{Start: 0, End: 3}, w)
	assert.Equal(t, 3*72, sess.TotalHeight())

	sess.RemoveStep("C")
	assert.Equal(t, Window{Start: 0, End: 2}, sess.Window(0, 720))
}
