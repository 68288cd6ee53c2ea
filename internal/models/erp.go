package models

import "time"

// ERPExercise is a catalog entry for an exposure-response-prevention exercise.
type ERPExercise struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Category        string `json:"category"`   // contamination, checking, symmetry, intrusive, hoarding
	Difficulty      int    `json:"difficulty"` // 1..5
	TargetDuration  int    `json:"target_duration_seconds"`
	Description     string `json:"description,omitempty"`
	ResponsePrevent string `json:"response_prevention,omitempty"`
}

// ERPSession is one timed run of an exercise.
type ERPSession struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	ExerciseID   string     `json:"exercise_id"`
	Category     string     `json:"category"`
	Duration     int        `json:"duration_seconds"`
	AnxietyStart int        `json:"anxiety_start"` // SUDS 0..10
	AnxietyPeak  int        `json:"anxiety_peak"`
	AnxietyEnd   int        `json:"anxiety_end"`
	Completed    bool       `json:"completed"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
