package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"textsubmission/app/apperr"
	"textsubmission/app/models"
	"textsubmission/app/repositories"
)

// SubmissionService handles business logic for text submissions
type SubmissionService struct {
	repo repositories.SubmissionRepository
	rule models.TextRule
	now  func() time.Time
}

// NewSubmissionService creates a new SubmissionService enforcing rule on
// every write.
func NewSubmissionService(repo repositories.SubmissionRepository, rule models.TextRule) *SubmissionService {
	return &SubmissionService{
		repo: repo,
		rule: rule,
		now:  time.Now,
	}
}

// SetClock replaces the time source used to stamp new submissions
func (s *SubmissionService) SetClock(now func() time.Time) {
	s.now = now
}

// Rule returns the text rule applied before persisting.
func (s *SubmissionService) Rule() models.TextRule {
	return s.rule
}

// CreateSubmission validates text and persists it with a fresh id and timestamp
func (s *SubmissionService) CreateSubmission(ctx context.Context, text string) (*models.Submission, error) {
	if err := s.rule.Check(text); err != nil {
		return nil, err
	}

	submission := &models.Submission{Text: text}
	submission.Stamp(s.now())

	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to create submission: %w", err))
	}
	return submission, nil
}

// GetSubmission retrieves a submission by ID
func (s *SubmissionService) GetSubmission(ctx context.Context, id int) (*models.Submission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id, "get")
	}
	return submission, nil
}

// ListSubmissions retrieves every submission, newest first
func (s *SubmissionService) ListSubmissions(ctx context.Context) ([]*models.Submission, error) {
	submissions, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to list submissions: %w", err))
	}
	if submissions == nil {
		submissions = []*models.Submission{}
	}
	return submissions, nil
}

// UpdateSubmission replaces the text of an existing submission. The id and
// creation time are never changed. Text is validated before the lookup, so
// invalid text is reported even for a missing id.
func (s *SubmissionService) UpdateSubmission(ctx context.Context, id int, text string) (*models.Submission, error) {
	if err := s.rule.Check(text); err != nil {
		return nil, err
	}

	submission := &models.Submission{ID: id, Text: text}
	if err := s.repo.Update(ctx, submission); err != nil {
		return nil, mapRepoError(err, id, "update")
	}
	return submission, nil
}

// DeleteSubmission deletes a submission by ID
func (s *SubmissionService) DeleteSubmission(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, id, "delete")
	}
	return nil
}

// Ping reports whether the store is reachable
func (s *SubmissionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func mapRepoError(err error, id int, op string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(fmt.Sprintf("Submission with id %d not found.", id))
	}
	return apperr.Internal(fmt.Errorf("failed to %s submission %d: %w", op, id, err))
}
