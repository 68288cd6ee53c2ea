package models

import "time"

// AchievementUnlock records when an achievement was earned.
type AchievementUnlock struct {
	UnlockedAt time.Time `json:"unlocked_at"`
	Points     int       `json:"points"`
}

// Achievement is a catalog definition joined with per-user unlock state.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Metric      string     `json:"metric"` // erp_sessions, resisted, streak, points, any_activity
	Requirement int        `json:"requirement"`
	Points      int        `json:"points"`
	Progress    int        `json:"progress"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// UserProgress holds the gamification counters for one user.
// LastActiveDate is a calendar day in DateLayout, not an instant:
// streak arithmetic works on whole days in the user's local zone.
type UserProgress struct {
	UserID         string                       `json:"user_id"`
	ERPSessions    int                          `json:"erp_sessions"`
	Resisted       int                          `json:"compulsions_resisted"`
	CurrentStreak  int                          `json:"current_streak"`
	BestStreak     int                          `json:"best_streak"`
	TotalPoints    int                          `json:"total_points"`
	LastActiveDate string                       `json:"last_active_date,omitempty"`
	Unlocked       map[string]AchievementUnlock `json:"unlocked,omitempty"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}
