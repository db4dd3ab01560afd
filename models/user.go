package models

import "gorm.io/gorm"

// User is the authenticated principal attached to requests by the JWT
// middleware. Account management lives in the auth service; this model only
// carries what the builder API needs to scope queries and validate tokens.
type User struct {
	gorm.Model

	Email         string  `gorm:"uniqueIndex;not null" json:"email"`
	EmailVerified bool    `gorm:"default:false" json:"email_verified"`
	Name          *string `json:"name,omitempty"`

	IsActive     bool `gorm:"default:true" json:"is_active"`
	TokenVersion int  `gorm:"default:0" json:"-"`

	// Relations
	Campaigns []Campaign `gorm:"foreignKey:UserID" json:"campaigns,omitempty"`
	Sequences []Sequence `gorm:"foreignKey:UserID" json:"sequences,omitempty"`
}
