package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"textsubmission/app/models"
	"textsubmission/app/repositories"
)

// SubmissionRepository is an in-memory repositories.SubmissionRepository.
// Records are copied on the way in and out so callers never share state
// with the store.
type SubmissionRepository struct {
	submissions map[int]*models.Submission
	nextID      int
	failure     error
	mutex       sync.RWMutex
}

var _ repositories.SubmissionRepository = (*SubmissionRepository)(nil)

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{
		submissions: make(map[int]*models.Submission),
		nextID:      1,
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (m *SubmissionRepository) FailWith(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failure = err
}

// Len returns the number of stored submissions.
func (m *SubmissionRepository) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.submissions)
}

func (m *SubmissionRepository) Create(_ context.Context, submission *models.Submission) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failure != nil {
		return m.failure
	}

	submission.ID = m.nextID
	m.nextID++
	stored := *submission
	m.submissions[submission.ID] = &stored
	return nil
}

func (m *SubmissionRepository) GetByID(_ context.Context, id int) (*models.Submission, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}

	submission, exists := m.submissions[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	found := *submission
	return &found, nil
}

func (m *SubmissionRepository) List(_ context.Context) ([]*models.Submission, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.failure != nil {
		return nil, m.failure
	}

	submissions := make([]*models.Submission, 0, len(m.submissions))
	for _, submission := range m.submissions {
		found := *submission
		submissions = append(submissions, &found)
	}
	sort.Slice(submissions, func(i, j int) bool {
		return models.Less(submissions[i], submissions[j])
	})
	return submissions, nil
}

func (m *SubmissionRepository) Update(_ context.Context, submission *models.Submission) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failure != nil {
		return m.failure
	}

	existing, exists := m.submissions[submission.ID]
	if !exists {
		return repositories.ErrNotFound
	}
	existing.Text = submission.Text
	*submission = *existing
	return nil
}

func (m *SubmissionRepository) Delete(_ context.Context, id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failure != nil {
		return m.failure
	}

	if _, exists := m.submissions[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.submissions, id)
	return nil
}

func (m *SubmissionRepository) Replace(_ context.Context, submissions []*models.Submission) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failure != nil {
		return m.failure
	}

	replaced := make(map[int]*models.Submission, len(submissions))
	nextID := 1
	for _, submission := range submissions {
		if submission.ID <= 0 {
			return fmt.Errorf("cannot restore submission without id")
		}
		if _, dup := replaced[submission.ID]; dup {
			return fmt.Errorf("duplicate submission id %d", submission.ID)
		}
		stored := *submission
		replaced[stored.ID] = &stored
		if stored.ID >= nextID {
			nextID = stored.ID + 1
		}
	}
	m.submissions = replaced
	m.nextID = nextID
	return nil
}

func (m *SubmissionRepository) Clear(_ context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failure != nil {
		return m.failure
	}

	m.submissions = make(map[int]*models.Submission)
	m.nextID = 1
	return nil
}

func (m *SubmissionRepository) Ping(_ context.Context) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.failure
}

func (m *SubmissionRepository) Close() error {
	return nil
}
