package builder

// Viewport computes which rows of a step list are materialized for rendering.
// Rows outside the window are represented only by reserved layout space so
// scrollbar proportions stay correct for sequences with hundreds of steps.
type Viewport struct {
	RowHeight int // estimated per-row height in px, must be > 0
	Overscan  int // extra rows rendered beyond each viewport edge
}

// Window is a half-open materialized index range [Start, End).
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of materialized rows.
func (w Window) Len() int { return w.End - w.Start }

// Contains reports whether the row at index i is materialized.
func (w Window) Contains(i int) bool { return i >= w.Start && i < w.End }

// Window computes the visible index range for the given scroll offset and
// viewport height. Callers re-invoke it whenever the scroll position, the
// step count, or the container size changes.
//
// The window never materializes more than viewport_rows + 2*Overscan rows.
// At unaligned scroll offsets the trailing straddled row comes out of the
// overscan budget rather than growing the window.
func (v Viewport) Window(scrollOffset, viewportHeight, stepCount int) Window {
	if stepCount <= 0 || v.RowHeight <= 0 || viewportHeight <= 0 {
		return Window{}
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}

	first := scrollOffset / v.RowHeight
	rows := viewportHeight / v.RowHeight

	start := first - v.Overscan
	if start < 0 {
		start = 0
	}
	end := first + rows + v.Overscan
	if end > stepCount {
		end = stepCount
	}
	if start > end {
		start = end
	}
	return Window{Start: start, End: end}
}

// TotalHeight returns the reserved layout height for the whole list.
func (v Viewport) TotalHeight(stepCount int) int {
	if stepCount < 0 {
		return 0
	}
	return stepCount * v.RowHeight
}

// OffsetOf returns the layout offset of the row at index i, used to position
// the materialized slice inside the reserved space.
func (v Viewport) OffsetOf(i int) int {
	if i < 0 {
		return 0
	}
	return i * v.RowHeight
}
