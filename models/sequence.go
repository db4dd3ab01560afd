package models

import (
	"time"

	"gorm.io/gorm"
)

// Sequence status values
const (
	SequenceStatusDraft     = "draft"
	SequenceStatusActive    = "active"
	SequenceStatusPaused    = "paused"
	SequenceStatusCompleted = "completed"
)

// Step types
const (
	StepTypeEmail     = "EMAIL"
	StepTypeWait      = "WAIT"
	StepTypeCondition = "CONDITION"
)

// Sequence represents a multi-step automated email flow owned by a campaign.
// Steps are stored as a JSONB column so the whole sequence is read and written
// as one unit, which is what the builder's last-write-wins policy needs.
type Sequence struct {
	gorm.Model
	UserID     uint `gorm:"not null;index" json:"user_id"`
	CampaignID uint `gorm:"not null;index" json:"campaign_id"`

	Name   string `gorm:"not null" json:"name"`
	Status string `gorm:"default:'draft'" json:"status"`    // draft, active, paused, completed
	Stale  bool   `gorm:"default:false;index" json:"stale"` // draft untouched past the retention window

	Steps []Step `gorm:"type:jsonb;serializer:json" json:"steps"`

	// Statistics (denormalized for performance)
	EnrolledCount int     `gorm:"default:0" json:"enrolled_count"`
	SentCount     int     `gorm:"default:0" json:"sent_count"`
	OpenRate      float64 `gorm:"default:0" json:"open_rate"`
	ReplyRate     float64 `gorm:"default:0" json:"reply_rate"`

	// Relations
	Campaign Campaign `json:"-"`
}

// Step is one unit of a sequence: send an email, wait, or branch on a condition.
type Step struct {
	ID        string `json:"id" validate:"required"`
	StepType  string `json:"step_type" validate:"required,oneof=EMAIL WAIT CONDITION"`
	StepOrder int    `json:"step_order" validate:"gte=0"`

	// EMAIL fields
	Subject     string       `json:"subject,omitempty"`
	Body        string       `json:"body,omitempty"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// WAIT fields
	DelayHours int `json:"delay_hours,omitempty" validate:"gte=0,lte=168"`

	// CONDITION fields
	Condition *StepCondition `json:"condition,omitempty"`
}

// StepCondition branches a sequence on lead behavior. NextStepID, when set,
// must reference another step in the same sequence.
type StepCondition struct {
	Field      string `json:"field"`    // opened, clicked, replied
	Operator   string `json:"operator"` // is, is_not
	Value      string `json:"value"`
	NextStepID string `json:"next_step_id,omitempty"`
}

// Attachment describes a file attached to an EMAIL step.
type Attachment struct {
	Name        string `json:"name"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// CloneSteps returns a deep copy of the step list so snapshots held by the
// undo history cannot alias live state.
func CloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	for i := range out {
		if steps[i].Condition != nil {
			cond := *steps[i].Condition
			out[i].Condition = &cond
		}
		if len(steps[i].Attachments) > 0 {
			out[i].Attachments = append([]Attachment(nil), steps[i].Attachments...)
		}
	}
	return out
}

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	out := s
	out.Steps = CloneSteps(s.Steps)
	return out
}

// FindStep returns the index of the step with the given id, or -1.
func (s *Sequence) FindStep(stepID string) int {
	for i := range s.Steps {
		if s.Steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

// Touch bumps the sequence's updated-at so snapshot ordering stays monotonic
// even when two writes land inside the same DB clock tick.
func (s *Sequence) Touch(now time.Time) {
	if now.After(s.UpdatedAt) {
		s.UpdatedAt = now
	} else {
		s.UpdatedAt = s.UpdatedAt.Add(time.Millisecond)
	}
}
