package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDragPointerBelowThresholdStaysIdle(t *testing.T) {
	d := NewDragController()

	d.PointerDown(1, Point{X: 10, Y: 10}, 5)
	d.PointerMove(Point{X: 12, Y: 11})

	assert.Equal(t, PhaseIdle, d.Phase())
	assert.Nil(t, d.PointerUp()) // plain click, no reorder
}

func TestDragPointerDropProducesIntent(t *testing.T) {
	d := NewDragController()

	d.PointerDown(1, Point{X: 10, Y: 10}, 5)
	d.PointerMove(Point{X: 10, Y: 40})
	require.Equal(t, PhaseDragging, d.Phase())

	d.HoverOver(3)
	intent := d.PointerUp()
	require.NotNil(t, intent)
	assert.Equal(t, ReorderIntent{FromIndex: 1, ToIndex: 3}, *intent)

	// Transient state destroyed on drop
	assert.Equal(t, PhaseIdle, d.Phase())
	assert.False(t, d.State().IsDragging)
	assert.Equal(t, -1, d.State().SourceIndex)
}

func TestDragReleaseOutsideTargetsCancels(t *testing.T) {
	d := NewDragController()

	d.PointerDown(0, Point{}, 3)
	d.PointerMove(Point{X: 0, Y: 100})
	d.HoverOver(7) // outside the list

	assert.Nil(t, d.PointerUp())
	assert.Equal(t, PhaseIdle, d.Phase())
}

func TestDragCancelHasNoEffect(t *testing.T) {
	d := NewDragController()

	d.PointerDown(2, Point{}, 5)
	d.PointerMove(Point{X: 50, Y: 0})
	d.HoverOver(4)
	d.Cancel()

	assert.Equal(t, PhaseIdle, d.Phase())
	assert.Nil(t, d.PointerUp())
}

func TestDragKeyboardGrabMoveCommit(t *testing.T) {
	d := NewDragController()

	d.KeyGrab(1, 4)
	require.Equal(t, PhaseDragging, d.Phase())

	d.KeyMove(1)
	d.KeyMove(1)
	intent := d.KeyCommit()
	require.NotNil(t, intent)
	assert.Equal(t, ReorderIntent{FromIndex: 1, ToIndex: 3}, *intent)
}

func TestDragKeyboardMoveClampsToBounds(t *testing.T) {
	d := NewDragController()

	d.KeyGrab(0, 3)
	d.KeyMove(-1)
	assert.Equal(t, 0, d.State().HoverIndex)

	d.KeyMove(10)
	assert.Equal(t, 2, d.State().HoverIndex)
}

func TestDragKeyboardEscapeCancels(t *testing.T) {
	d := NewDragController()

	d.KeyGrab(2, 5)
	d.KeyMove(-1)
	d.Cancel()

	assert.Equal(t, PhaseIdle, d.Phase())
	assert.Nil(t, d.KeyCommit())
}

func TestDragIgnoresInvalidStarts(t *testing.T) {
	d := NewDragController()

	d.PointerDown(9, Point{}, 3) // out of range
	d.PointerMove(Point{X: 100, Y: 100})
	assert.Equal(t, PhaseIdle, d.Phase())

	d.KeyGrab(-1, 3)
	assert.Equal(t, PhaseIdle, d.Phase())

	// A second press during a drag is ignored
	d.KeyGrab(1, 3)
	d.PointerDown(0, Point{}, 3)
	assert.Equal(t, 1, d.State().SourceIndex)
}
