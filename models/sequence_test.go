package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneStepsIsDeep(t *testing.T) {
	steps := []Step{
		{ID: "a", StepType: StepTypeEmail, Attachments: []Attachment{{Name: "deck.pdf", ContentType: "application/pdf"}}},
		{ID: "b", StepType: StepTypeCondition, Condition: &StepCondition{Field: "opened", Operator: "is", Value: "true"}},
	}

	clone := CloneSteps(steps)
	clone[0].Attachments[0].Name = "changed.pdf"
	clone[1].Condition.Value = "false"

	assert.Equal(t, "deck.pdf", steps[0].Attachments[0].Name)
	assert.Equal(t, "true", steps[1].Condition.Value)
}

func TestFindStep(t *testing.T) {
	seq := Sequence{Steps: []Step{{ID: "a"}, {ID: "b"}}}

	assert.Equal(t, 1, seq.FindStep("b"))
	assert.Equal(t, -1, seq.FindStep("missing"))
}

func TestTouchIsMonotonic(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	seq := Sequence{}
	seq.UpdatedAt = now

	// A clock reading at or before the current stamp still moves it forward
	seq.Touch(now)
	require.True(t, seq.UpdatedAt.After(now))

	later := now.Add(time.Second)
	seq.Touch(later)
	assert.Equal(t, later, seq.UpdatedAt)
}
