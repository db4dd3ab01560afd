package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportWindowMaterializesViewportPlusOverscan(t *testing.T) {
	v := Viewport{RowHeight: 50, Overscan: 3}
	const stepCount = 1000
	const viewportHeight = 500 // exactly 10 rows

	// Away from both edges the window is viewport_rows + 2*overscan
	w := v.Window(20000, viewportHeight, stepCount)
	assert.Equal(t, 10+2*3, w.Len())
	assert.True(t, w.Contains(20000/50))

	// An offset straddling a row boundary must not grow the window
	w = v.Window(274, viewportHeight, stepCount)
	assert.Equal(t, 10+2*3, w.Len())
	assert.True(t, w.Contains(274/50))

	// Scan a range of offsets: never more than rows + 2*overscan
	for offset := 0; offset < stepCount*50-viewportHeight; offset += 137 {
		w := v.Window(offset, viewportHeight, stepCount)
		assert.LessOrEqual(t, w.Len(), 10+2*3, "offset=%d", offset)
		assert.GreaterOrEqual(t, w.Start, 0)
		assert.LessOrEqual(t, w.End, stepCount)
	}
}

func TestViewportWindowClampsAtEdges(t *testing.T) {
	v := Viewport{RowHeight: 50, Overscan: 3}

	top := v.Window(0, 500, 1000)
	assert.Equal(t, 0, top.Start)
	assert.Equal(t, 13, top.End) // 10 visible + trailing overscan

	bottom := v.Window(1000*50-500, 500, 1000)
	assert.Equal(t, 1000, bottom.End)
	assert.Equal(t, 1000-13, bottom.Start)
}

func TestViewportWindowPartialRowsKeepBound(t *testing.T) {
	// Offset 25 straddles rows 0..10. The materialization bound takes
	// precedence: with no overscan the straddled trailing row stays virtual.
	v := Viewport{RowHeight: 50, Overscan: 0}
	w := v.Window(25, 500, 1000)
	assert.Equal(t, Window{Start: 0, End: 10}, w)

	// Any overscan at all covers it
	v.Overscan = 1
	w = v.Window(25, 500, 1000)
	assert.True(t, w.Contains(10))
	assert.LessOrEqual(t, w.Len(), 10+2*1)
}

func TestViewportWindowShrinksWithStepCount(t *testing.T) {
	v := Viewport{RowHeight: 50, Overscan: 3}

	w := v.Window(0, 500, 4)
	require.Equal(t, Window{Start: 0, End: 4}, w)

	// Removing steps must never leave a window past the end
	w = v.Window(900, 500, 4)
	assert.LessOrEqual(t, w.End, 4)
	assert.LessOrEqual(t, w.Start, w.End)
}

func TestViewportWindowDegenerateInputs(t *testing.T) {
	v := Viewport{RowHeight: 50, Overscan: 3}

	assert.Equal(t, Window{}, v.Window(0, 500, 0))
	assert.Equal(t, Window{}, v.Window(0, 0, 100))
	assert.Equal(t, Window{}, Viewport{}.Window(0, 500, 100))

	// Negative scroll clamps to the top
	w := v.Window(-200, 500, 100)
	assert.Equal(t, 0, w.Start)
}

func TestViewportTotalHeight(t *testing.T) {
	v := Viewport{RowHeight: 72, Overscan: 3}
	assert.Equal(t, 72000, v.TotalHeight(1000))
	assert.Equal(t, 0, v.TotalHeight(0))
	assert.Equal(t, 0, v.TotalHeight(-5))
	assert.Equal(t, 72*41, v.OffsetOf(41))
}
