// Package store persists evaluated OKR submissions.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/okr-evaluator/internal/model"
)

// ErrNotFound is returned when a submission id does not exist.
var ErrNotFound = eris.New("store: submission not found")

// SubmissionFilter specifies criteria for listing objective submissions.
type SubmissionFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the persistence interface for evaluated submissions.
type Store interface {
	// Submissions
	InsertObjectiveSubmission(ctx context.Context, sub model.ObjectiveSubmission) error
	InsertKeyResultSubmission(ctx context.Context, sub model.KeyResultSubmission) error
	GetObjectiveSubmission(ctx context.Context, id string) (*model.ObjectiveSubmission, []model.KeyResultSubmission, error)
	ListObjectiveSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.ObjectiveSubmission, error)
	DeleteObjectiveSubmission(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
