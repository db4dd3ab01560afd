package builder

import "math"

// DefaultDragThreshold is how far the pointer must travel before a press
// becomes a drag, so plain clicks never trigger reorders.
const DefaultDragThreshold = 5.0

// DragPhase enumerates the controller's states. Dropping and cancelling are
// transitions back to Idle, not resting states.
type DragPhase int

const (
	PhaseIdle DragPhase = iota
	PhaseDragging
)

// Point is a pointer position in px.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ReorderIntent is the output of a completed drag: move the step at FromIndex
// to ToIndex. The authoritative step list is only mutated when an intent is
// produced, never mid-gesture.
type ReorderIntent struct {
	FromIndex int `json:"from_index"`
	ToIndex   int `json:"to_index"`
}

// DragState is the transient gesture state exposed for rendering feedback.
// It is destroyed on drop or cancel and never persisted.
type DragState struct {
	SourceIndex int   `json:"source_index"`
	HoverIndex  int   `json:"hover_index"`
	Pointer     Point `json:"pointer"`
	IsDragging  bool  `json:"is_dragging"`
}

// DragController turns pointer and keyboard gestures into reorder intents.
// It is deliberately decoupled from any gesture library so the reorder,
// validation and sync logic can be tested without simulating pointer events.
//
// Pointer path: PointerDown arms the controller, PointerMove past the
// threshold enters Dragging, HoverOver tracks the drop target, PointerUp
// drops (or cancels when no valid target), Cancel aborts.
//
// Keyboard path: KeyGrab enters Dragging on the focused step, KeyMove shifts
// the target with the arrow keys, KeyCommit drops, Cancel (Escape) aborts.
type DragController struct {
	Threshold float64

	phase       DragPhase
	pressed     bool
	sourceIndex int
	hoverIndex  int
	origin      Point
	pointer     Point
	stepCount   int
}

// NewDragController returns an idle controller with the default threshold.
func NewDragController() *DragController {
	return &DragController{Threshold: DefaultDragThreshold, sourceIndex: -1, hoverIndex: -1}
}

// Phase returns the current state-machine phase.
func (d *DragController) Phase() DragPhase { return d.phase }

// State returns a copy of the transient drag state.
func (d *DragController) State() DragState {
	return DragState{
		SourceIndex: d.sourceIndex,
		HoverIndex:  d.hoverIndex,
		Pointer:     d.pointer,
		IsDragging:  d.phase == PhaseDragging,
	}
}

// PointerDown arms the controller on the step at index. The drag does not
// start until the pointer moves past the threshold.
func (d *DragController) PointerDown(index int, at Point, stepCount int) {
	if d.phase != PhaseIdle || index < 0 || index >= stepCount {
		return
	}
	d.pressed = true
	d.sourceIndex = index
	d.hoverIndex = index
	d.origin = at
	d.pointer = at
	d.stepCount = stepCount
}

// PointerMove updates the tracked position and promotes an armed press to a
// drag once movement exceeds the threshold.
func (d *DragController) PointerMove(at Point) {
	if !d.pressed && d.phase != PhaseDragging {
		return
	}
	d.pointer = at
	if d.phase == PhaseIdle && d.pressed {
		dx := at.X - d.origin.X
		dy := at.Y - d.origin.Y
		if math.Hypot(dx, dy) >= d.Threshold {
			d.phase = PhaseDragging
		}
	}
}

// HoverOver records the current drop target while dragging. Out-of-range
// indexes clear the target, so releasing there cancels instead of dropping.
func (d *DragController) HoverOver(index int) {
	if d.phase != PhaseDragging {
		return
	}
	if index < 0 || index >= d.stepCount {
		d.hoverIndex = -1
		return
	}
	d.hoverIndex = index
}

// PointerUp completes the gesture. It returns a reorder intent when the
// release happened over a valid target, and nil otherwise (a plain click or a
// release outside the list). Either way the controller returns to Idle.
func (d *DragController) PointerUp() *ReorderIntent {
	defer d.reset()
	if d.phase != PhaseDragging || d.hoverIndex < 0 {
		return nil
	}
	return &ReorderIntent{FromIndex: d.sourceIndex, ToIndex: d.hoverIndex}
}

// KeyGrab starts a keyboard drag on the focused step.
func (d *DragController) KeyGrab(index, stepCount int) {
	if d.phase != PhaseIdle || index < 0 || index >= stepCount {
		return
	}
	d.phase = PhaseDragging
	d.sourceIndex = index
	d.hoverIndex = index
	d.stepCount = stepCount
}

// KeyMove shifts the drop target by delta (ArrowUp = -1, ArrowDown = +1),
// clamped to the list bounds.
func (d *DragController) KeyMove(delta int) {
	if d.phase != PhaseDragging {
		return
	}
	next := d.hoverIndex + delta
	if next < 0 {
		next = 0
	}
	if next >= d.stepCount {
		next = d.stepCount - 1
	}
	d.hoverIndex = next
}

// KeyCommit drops at the current target and returns the reorder intent.
func (d *DragController) KeyCommit() *ReorderIntent {
	return d.PointerUp()
}

// Cancel aborts the gesture with no mutation (Escape, or release outside any
// target).
func (d *DragController) Cancel() {
	d.reset()
}

func (d *DragController) reset() {
	d.phase = PhaseIdle
	d.pressed = false
	d.sourceIndex = -1
	d.hoverIndex = -1
	d.origin = Point{}
	d.pointer = Point{}
	d.stepCount = 0
}
