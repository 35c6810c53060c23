package repositories

import (
	"context"
	"errors"

	"textsubmission/app/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

// SubmissionRepository defines the interface for submission data access
type SubmissionRepository interface {
	// Create assigns a fresh ID and persists the submission.
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id int) (*models.Submission, error)
	// List returns every submission, newest first.
	List(ctx context.Context) ([]*models.Submission, error)
	// Update overwrites the text of an existing submission only.
	Update(ctx context.Context, submission *models.Submission) error
	Delete(ctx context.Context, id int) error

	// Replace swaps the whole store for submissions, keeping their IDs and
	// timestamps. Either every row is replaced or nothing changes.
	Replace(ctx context.Context, submissions []*models.Submission) error
	// Clear removes every submission.
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
