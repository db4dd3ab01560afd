package builder

import "salesloom/models"

// MaxHistoryDepth bounds the undo stack so long editing sessions cannot grow
// memory without limit. When the cap is hit the oldest snapshot is dropped.
const MaxHistoryDepth = 100

// History is a bounded snapshot stack with standard editor undo/redo
// semantics. It is a value type mutated only through Push/Undo/Redo so tests
// and callers never deal with hidden shared state; snapshots are deep copies.
type History struct {
	undoStack []models.Sequence
	redoStack []models.Sequence
}

// NewHistory seeds the history with the initial state. Undo never goes below
// this snapshot.
func NewHistory(initial models.Sequence) History {
	return History{undoStack: []models.Sequence{initial.Clone()}}
}

// Push records a new state after an edit and destroys forward history: a
// fresh edit always invalidates redo.
func (h *History) Push(seq models.Sequence) {
	h.undoStack = append(h.undoStack, seq.Clone())
	if len(h.undoStack) > MaxHistoryDepth {
		h.undoStack = h.undoStack[1:]
	}
	h.redoStack = nil
}

// Undo pops the current state and returns the one before it, or nil when only
// the initial snapshot remains.
func (h *History) Undo() *models.Sequence {
	if len(h.undoStack) <= 1 {
		return nil
	}
	top := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, top)

	restored := h.undoStack[len(h.undoStack)-1].Clone()
	return &restored
}

// Redo re-applies the most recently undone state, or returns nil when there
// is nothing to redo.
func (h *History) Redo() *models.Sequence {
	if len(h.redoStack) == 0 {
		return nil
	}
	top := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, top)

	restored := top.Clone()
	return &restored
}

// CanUndo reports whether an undo would change state.
func (h *History) CanUndo() bool { return len(h.undoStack) > 1 }

// CanRedo reports whether a redo is available.
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

// Depth returns the number of retained snapshots.
func (h *History) Depth() int { return len(h.undoStack) }

// Reset discards all history and reseeds with the given state. Used when a
// remote snapshot replaces local state wholesale.
func (h *History) Reset(seq models.Sequence) {
	h.undoStack = []models.Sequence{seq.Clone()}
	h.redoStack = nil
}
