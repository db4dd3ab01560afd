package builder

import (
	"fmt"
	"testing"

	"salesloom/models"

	"github.com/stretchr/testify/require"
)

func seqNamed(name string) models.Sequence {
	return models.Sequence{Name: name, Steps: makeSteps(2)}
}

func TestHistoryUndoRedoRoundTrip(t *testing.T) {
	h := NewHistory(seqNamed("v1"))
	h.Push(seqNamed("v2"))

	undone := h.Undo()
	require.NotNil(t, undone)
	require.Equal(t, "v1", undone.Name)

	redone := h.Redo()
	require.NotNil(t, redone)
	require.Equal(t, "v2", redone.Name)
}

func TestHistoryUndoFloorsAtInitialState(t *testing.T) {
	h := NewHistory(seqNamed("initial"))

	require.False(t, h.CanUndo())
	require.Nil(t, h.Undo())
	require.Equal(t, 1, h.Depth())

	// Still floored after a push+undo pair
	h.Push(seqNamed("edit"))
	require.NotNil(t, h.Undo())
	require.Nil(t, h.Undo())
	require.Equal(t, 1, h.Depth())
}

func TestHistoryPushClearsRedo(t *testing.T) {
	h := NewHistory(seqNamed("v1"))
	h.Push(seqNamed("v2"))
	h.Push(seqNamed("v3"))

	require.NotNil(t, h.Undo())
	require.True(t, h.CanRedo())

	// A fresh edit invalidates forward history
	h.Push(seqNamed("v2b"))
	require.False(t, h.CanRedo())
	require.Nil(t, h.Redo())
}

func TestHistoryBoundedDropsOldest(t *testing.T) {
	h := NewHistory(seqNamed("v0"))
	for i := 1; i <= MaxHistoryDepth+10; i++ {
		h.Push(seqNamed(fmt.Sprintf("v%d", i)))
	}

	require.Equal(t, MaxHistoryDepth, h.Depth())

	// Undo all the way down: the oldest surviving snapshot is not v0
	var last *models.Sequence
	for {
		s := h.Undo()
		if s == nil {
			break
		}
		last = s
	}
	require.NotNil(t, last)
	require.NotEqual(t, "v0", last.Name)
}

func TestHistorySnapshotsDoNotAliasLiveState(t *testing.T) {
	live := seqNamed("v1")
	h := NewHistory(live)

	live.Steps[0].Subject = "mutated after snapshot"
	h.Push(live)

	restored := h.Undo()
	require.NotNil(t, restored)
	require.Equal(t, "Subject 0", restored.Steps[0].Subject)
}

func TestHistoryResetReseeds(t *testing.T) {
	h := NewHistory(seqNamed("v1"))
	h.Push(seqNamed("v2"))
	require.NotNil(t, h.Undo())
	require.True(t, h.CanRedo())

	h.Reset(seqNamed("remote"))
	require.False(t, h.CanUndo())
	require.False(t, h.CanRedo())
	require.Equal(t, 1, h.Depth())
}
