package builder

import "salesloom/models"

// Reorder moves the step at fromIndex to toIndex and renumbers every step's
// StepOrder to its new 0-based position, keeping the ordering total and
// gapless. It is a pure function: the input slice is never mutated.
//
// fromIndex == toIndex is the identity. Out-of-bounds indexes are a caller
// contract violation; the defensive check returns the input unchanged rather
// than corrupting the order.
func Reorder(steps []models.Step, fromIndex, toIndex int) []models.Step {
	n := len(steps)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n || fromIndex == toIndex {
		return steps
	}

	out := models.CloneSteps(steps)
	moved := out[fromIndex]
	out = append(out[:fromIndex], out[fromIndex+1:]...)

	rest := append(out[:toIndex:toIndex], moved)
	out = append(rest, out[toIndex:]...)

	for i := range out {
		out[i].StepOrder = i
	}
	return out
}
