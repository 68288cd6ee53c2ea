package models

import "time"

// Compulsion is a user-logged record of a single compulsive episode.
type Compulsion struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Type            string     `json:"type"`             // washing, checking, counting, ordering, hoarding, mental, other
	Intensity       int        `json:"intensity"`        // 1..10
	ResistanceLevel int        `json:"resistance_level"` // 1..10
	Resisted        bool       `json:"resisted"`
	Trigger         string     `json:"trigger,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}
