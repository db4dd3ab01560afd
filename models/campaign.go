package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign owns sequences. The builder only needs the owning side of the
// relation; campaign scheduling and sending live in a separate service.
type Campaign struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	Status      string     `gorm:"default:'draft'" json:"status"` // draft, active, paused, archived
	StartedAt   *time.Time `json:"started_at"`

	// Relations
	Sequences []Sequence `gorm:"foreignKey:CampaignID" json:"sequences,omitempty"`
}
