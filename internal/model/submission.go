// Package model defines the persisted and transient types shared by the
// OKR evaluation pipeline.
package model

import "time"

// ObjectiveSubmission is the persisted record for one objective evaluation.
// Written exactly once per evaluation call and never mutated afterwards.
type ObjectiveSubmission struct {
	ID        string    `json:"id"`
	Objective string    `json:"objective"`
	Clarity   float64   `json:"clarity"`
	Focus     float64   `json:"focus"`
	Writing   float64   `json:"writing"`
	Score     float64   `json:"score"`
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`
}

// KeyResultSubmission is the persisted record for one key-result evaluation.
// It belongs to exactly one ObjectiveSubmission; deleting the parent
// cascades to its key results.
type KeyResultSubmission struct {
	ID            string    `json:"id"`
	ObjectiveID   string    `json:"okr_id"`
	Definition    string    `json:"kr_definition"`
	TargetValue   string    `json:"target_value"`
	TargetDate    string    `json:"target_date"`
	Clarity       float64   `json:"clarity"`
	Measurability float64   `json:"measurability"`
	Feasibility   float64   `json:"feasibility"`
	Score         float64   `json:"score"`
	Feedback      string    `json:"feedback"`
	CreatedAt     time.Time `json:"created_at"`
}
