package models

import "time"

// UserProfile is the denormalized local mirror of the identity-provider account.
type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Locale       string    `json:"locale,omitempty"`
	ReminderTime string    `json:"reminder_time,omitempty"` // "HH:MM", empty disables reminders
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
