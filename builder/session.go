package builder

import (
	"context"
	"sync"
	"time"

	"salesloom/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SequenceWriter is the slice of the repository the session needs: persisting
// the whole sequence. Reads, creation and fan-out live with the caller.
type SequenceWriter interface {
	UpdateSequence(ctx context.Context, seq models.Sequence) (models.Sequence, error)
}

// Options tunes a session. Zero values fall back to the defaults below.
type Options struct {
	MaxPersistRetries int           // attempts per flush before rollback
	RetryBackoff      time.Duration // wait between attempts
	Viewport          Viewport
	Logger            *logrus.Entry
	Now               func() time.Time // injectable clock for tests
}

const (
	defaultMaxPersistRetries = 3
	defaultRetryBackoff      = 250 * time.Millisecond
)

// pendingEdit is a local optimistic edit that has not been acknowledged by
// the store yet. apply re-plays the edit on top of a fresh remote snapshot
// when the conflict policy decides it survives.
type pendingEdit struct {
	seqNum     uint64
	authoredAt time.Time
	stepID     string
	apply      func(*models.Sequence)
}

// Session is one user's live editing session over a single sequence. It owns
// the authoritative local state, the undo history, the drag controller and
// the reconciliation of optimistic edits against remote snapshots.
//
// All command methods must be called from one goroutine (the connection's
// read loop). Remote snapshots may arrive from any goroutine via
// QueueRemoteUpdate; they are queued and applied between commands, never
// inside one, which preserves the UI-style run-to-completion discipline.
type Session struct {
	store SequenceWriter
	sink  EventSink
	opts  Options
	log   *logrus.Entry

	seq       models.Sequence
	lastSaved models.Sequence // last state acknowledged by the store
	hist      History
	drag      *DragController

	nextEditSeq uint64
	pending     []pendingEdit
	dirty       bool

	remoteMu    sync.Mutex
	remoteQueue []models.Sequence
}

// NewSession starts an editing session over seq.
func NewSession(seq models.Sequence, store SequenceWriter, sink EventSink, opts Options) *Session {
	if opts.MaxPersistRetries <= 0 {
		opts.MaxPersistRetries = defaultMaxPersistRetries
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.Viewport.RowHeight <= 0 {
		opts.Viewport = Viewport{RowHeight: 72, Overscan: 3}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "builder_session")
	}
	if sink == nil {
		sink = func(Event) {}
	}

	return &Session{
		store:     store,
		sink:      sink,
		opts:      opts,
		log:       opts.Logger.WithField("sequence_id", seq.ID),
		seq:       seq.Clone(),
		lastSaved: seq.Clone(),
		hist:      NewHistory(seq),
		drag:      NewDragController(),
	}
}

// Sequence returns a copy of the current local state.
func (s *Session) Sequence() models.Sequence { return s.seq.Clone() }

// CanUndo reports whether an undo is available.
func (s *Session) CanUndo() bool { return s.hist.CanUndo() }

// CanRedo reports whether a redo is available.
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// DragState returns the transient gesture state for rendering feedback.
func (s *Session) DragState() DragState { return s.drag.State() }

// Window computes the materialized row range for the current step count.
func (s *Session) Window(scrollOffset, viewportHeight int) Window {
	return s.opts.Viewport.Window(scrollOffset, viewportHeight, len(s.seq.Steps))
}

// TotalHeight returns the reserved layout height for the current step count.
func (s *Session) TotalHeight() int {
	return s.opts.Viewport.TotalHeight(len(s.seq.Steps))
}

// --- commands -----------------------------------------------------------

// Rename changes the sequence name.
func (s *Session) Rename(name string) {
	s.applyRemoteQueue()
	s.commitEdit(EventSequenceUpdated, "", func(seq *models.Sequence) {
		seq.Name = name
	})
}

// AddStep appends a step. A missing id is assigned; the step always lands at
// the end of the order. Field-level problems are reported through the
// validation_failed event but do not block the edit: drafts may be
// incomplete. A step with an unknown type is rejected outright.
func (s *Session) AddStep(step models.Step) {
	s.applyRemoteQueue()

	switch step.StepType {
	case models.StepTypeEmail, models.StepTypeWait, models.StepTypeCondition:
	default:
		s.emit(Event{Type: EventValidationFailed, SequenceID: s.seq.ID, StepID: step.ID,
			Errors: []ValidationError{{Path: "step_type", Message: "must be one of EMAIL, WAIT, CONDITION"}}})
		return
	}
	if step.ID == "" {
		step.ID = uuid.NewString()
	}

	if errs := ValidateStep(step); len(errs) > 0 {
		s.emit(Event{Type: EventValidationFailed, SequenceID: s.seq.ID, StepID: step.ID, Errors: errs})
	}

	stepID := step.ID
	s.commitEdit(EventStepAdded, stepID, func(seq *models.Sequence) {
		st := step
		st.StepOrder = len(seq.Steps)
		seq.Steps = append(seq.Steps, st)
	})
}

// UpdateStep replaces the payload of an existing step, keeping its position.
// Unknown ids are ignored (the step may have been removed remotely).
func (s *Session) UpdateStep(step models.Step) {
	s.applyRemoteQueue()

	if s.seq.FindStep(step.ID) == -1 {
		return
	}
	if errs := ValidateStep(step); len(errs) > 0 {
		s.emit(Event{Type: EventValidationFailed, SequenceID: s.seq.ID, StepID: step.ID, Errors: errs})
	}

	s.commitEdit(EventSequenceUpdated, step.ID, func(seq *models.Sequence) {
		i := seq.FindStep(step.ID)
		if i == -1 {
			return
		}
		st := step
		st.StepOrder = i
		seq.Steps[i] = st
	})
}

// RemoveStep deletes a step and renumbers the remainder.
func (s *Session) RemoveStep(stepID string) {
	s.applyRemoteQueue()

	if s.seq.FindStep(stepID) == -1 {
		return
	}
	s.commitEdit(EventStepRemoved, stepID, func(seq *models.Sequence) {
		i := seq.FindStep(stepID)
		if i == -1 {
			return
		}
		seq.Steps = append(seq.Steps[:i], seq.Steps[i+1:]...)
		for j := range seq.Steps {
			seq.Steps[j].StepOrder = j
		}
	})
}

// Undo restores the previous snapshot, if any, and persists it like any
// other edit.
func (s *Session) Undo() {
	s.applyRemoteQueue()

	restored := s.hist.Undo()
	if restored == nil {
		return
	}
	s.restoreSnapshot(*restored)
}

// Redo re-applies the most recently undone snapshot.
func (s *Session) Redo() {
	s.applyRemoteQueue()

	restored := s.hist.Redo()
	if restored == nil {
		return
	}
	s.restoreSnapshot(*restored)
}

// Validate runs the activation-level whole-sequence validation.
func (s *Session) Validate() []ValidationError {
	s.applyRemoteQueue()
	errs := ValidateSequence(s.seq)
	if len(errs) > 0 {
		s.emit(Event{Type: EventValidationFailed, SequenceID: s.seq.ID, Errors: errs})
	}
	return errs
}

// --- drag gestures ------------------------------------------------------

// PointerDown forwards a pointer press on the step at index.
func (s *Session) PointerDown(index int, at Point) {
	s.applyRemoteQueue()
	s.drag.PointerDown(index, at, len(s.seq.Steps))
}

// PointerMove forwards pointer movement during a press or drag.
func (s *Session) PointerMove(at Point) {
	s.drag.PointerMove(at)
}

// HoverOver forwards the hovered row index during a drag.
func (s *Session) HoverOver(index int) {
	s.drag.HoverOver(index)
}

// PointerUp completes a pointer gesture, committing the reorder if one was
// produced.
func (s *Session) PointerUp() {
	s.applyRemoteQueue()
	if intent := s.drag.PointerUp(); intent != nil {
		s.commitReorder(intent.FromIndex, intent.ToIndex)
	}
}

// KeyGrab starts a keyboard drag on the focused step.
func (s *Session) KeyGrab(index int) {
	s.applyRemoteQueue()
	s.drag.KeyGrab(index, len(s.seq.Steps))
}

// KeyMove shifts the keyboard drop target.
func (s *Session) KeyMove(delta int) {
	s.drag.KeyMove(delta)
}

// KeyCommit drops at the current keyboard target.
func (s *Session) KeyCommit() {
	s.applyRemoteQueue()
	if intent := s.drag.KeyCommit(); intent != nil {
		s.commitReorder(intent.FromIndex, intent.ToIndex)
	}
}

// CancelDrag aborts the gesture with no mutation.
func (s *Session) CancelDrag() {
	s.drag.Cancel()
}

func (s *Session) commitReorder(from, to int) {
	if from == to {
		return
	}
	s.commitEdit(EventReorderCommitted, "", func(seq *models.Sequence) {
		seq.Steps = Reorder(seq.Steps, from, to)
	})
}

// --- reconciliation -----------------------------------------------------

// QueueRemoteUpdate enqueues an authoritative snapshot pushed from the
// real-time channel. Safe to call from any goroutine; the snapshot is applied
// between commands, never inside one.
func (s *Session) QueueRemoteUpdate(remote models.Sequence) {
	s.remoteMu.Lock()
	s.remoteQueue = append(s.remoteQueue, remote.Clone())
	s.remoteMu.Unlock()
}

// ApplyRemoteQueue applies queued remote snapshots now. The connection loop
// calls it when the channel fires while no command is being handled; every
// command handler also drains the queue before running.
func (s *Session) ApplyRemoteQueue() {
	s.applyRemoteQueue()
}

func (s *Session) applyRemoteQueue() {
	s.remoteMu.Lock()
	queue := s.remoteQueue
	s.remoteQueue = nil
	s.remoteMu.Unlock()

	for _, remote := range queue {
		s.reconcile(remote)
	}
}

// reconcile implements last-write-wins at whole-sequence granularity: the
// remote snapshot replaces local state, and pending local edits survive only
// when authored strictly after the snapshot. Dropped edits are reported, one
// conflict_superseded event each; silent loss is not acceptable.
func (s *Session) reconcile(remote models.Sequence) {
	// Echo of our own acknowledged write, or an older snapshot racing a newer
	// one: nothing to replace.
	if !remote.UpdatedAt.After(s.lastSaved.UpdatedAt) {
		return
	}

	s.log.WithFields(logrus.Fields{
		"remote_updated_at": remote.UpdatedAt,
		"pending_edits":     len(s.pending),
	}).Info("Applying remote sequence snapshot")

	next := remote.Clone()
	var kept []pendingEdit
	for _, edit := range s.pending {
		if edit.authoredAt.After(remote.UpdatedAt) {
			edit.apply(&next)
			kept = append(kept, edit)
			continue
		}
		s.emit(Event{
			Type:       EventConflictSuperseded,
			SequenceID: s.seq.ID,
			StepID:     edit.stepID,
			EditSeq:    edit.seqNum,
			Message:    "sequence was updated elsewhere, your recent change was not applied",
		})
	}

	if len(kept) > 0 {
		next.Touch(s.opts.Now())
	}
	s.seq = next
	s.lastSaved = remote.Clone()
	s.pending = kept
	s.dirty = len(kept) > 0
	s.hist.Reset(s.seq)
	s.drag.Cancel()

	s.emit(Event{Type: EventSequenceReplaced, SequenceID: s.seq.ID})
}

// --- persistence --------------------------------------------------------

// Flush pushes unsaved local state to the store with bounded retries. On
// exhaustion the optimistic edits are rolled back to the last acknowledged
// state and persist_failed is emitted, so the user learns the change did not
// save instead of believing a lie.
//
// Superseded edits never reach the store: reconcile removes them from the
// pending set before the next flush, which is how stale in-flight work is
// abandoned rather than applied out of order.
func (s *Session) Flush(ctx context.Context) {
	s.applyRemoteQueue()
	if !s.dirty {
		return
	}

	snapshot := s.seq.Clone()
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxPersistRetries; attempt++ {
		saved, err := s.store.UpdateSequence(ctx, snapshot)
		if err == nil {
			s.lastSaved = saved.Clone()
			if saved.UpdatedAt.After(s.seq.UpdatedAt) {
				s.seq.UpdatedAt = saved.UpdatedAt
			}
			s.pending = nil
			s.dirty = false
			return
		}
		lastErr = err
		s.log.WithError(err).WithField("attempt", attempt).Warn("Sequence persist failed")
		if attempt < s.opts.MaxPersistRetries {
			select {
			case <-ctx.Done():
				attempt = s.opts.MaxPersistRetries
			case <-time.After(s.opts.RetryBackoff):
			}
		}
	}

	// Retries exhausted: roll back to the last state the store acknowledged.
	s.log.WithError(lastErr).Error("Persist retries exhausted, rolling back local edits")
	s.seq = s.lastSaved.Clone()
	s.pending = nil
	s.dirty = false
	s.hist.Reset(s.seq)
	s.drag.Cancel()
	s.emit(Event{
		Type:       EventPersistFailed,
		SequenceID: s.seq.ID,
		Message:    "your changes could not be saved and were rolled back",
	})
}

// Dirty reports whether local edits are awaiting a Flush.
func (s *Session) Dirty() bool { return s.dirty }

// --- internals ----------------------------------------------------------

// commitEdit applies an optimistic local mutation: snapshot into history,
// record the pending edit with its sequence number and timestamp, emit the
// semantic event. Persistence happens on the next Flush.
func (s *Session) commitEdit(label EventType, stepID string, apply func(*models.Sequence)) {
	apply(&s.seq)
	s.seq.Touch(s.opts.Now())
	s.hist.Push(s.seq)

	s.nextEditSeq++
	s.pending = append(s.pending, pendingEdit{
		seqNum:     s.nextEditSeq,
		authoredAt: s.seq.UpdatedAt,
		stepID:     stepID,
		apply:      apply,
	})
	s.dirty = true

	s.emit(Event{Type: label, SequenceID: s.seq.ID, StepID: stepID, EditSeq: s.nextEditSeq})
}

// restoreSnapshot swaps in an undo/redo snapshot. The restore itself is a
// pending edit: if a remote snapshot lands before it is flushed, the same
// conflict policy applies.
func (s *Session) restoreSnapshot(snap models.Sequence) {
	steps := models.CloneSteps(snap.Steps)
	name := snap.Name
	s.seq.Steps = models.CloneSteps(steps)
	s.seq.Name = name
	s.seq.Touch(s.opts.Now())

	s.nextEditSeq++
	s.pending = append(s.pending, pendingEdit{
		seqNum:     s.nextEditSeq,
		authoredAt: s.seq.UpdatedAt,
		apply: func(seq *models.Sequence) {
			seq.Name = name
			seq.Steps = models.CloneSteps(steps)
		},
	})
	s.dirty = true

	s.emit(Event{Type: EventSequenceUpdated, SequenceID: s.seq.ID, EditSeq: s.nextEditSeq})
}

func (s *Session) emit(e Event) {
	s.sink(e)
}
