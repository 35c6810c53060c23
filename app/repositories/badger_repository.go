package repositories

import (
	"context"
	"errors"
	"fmt"

	"textsubmission/app/models"

	"github.com/dgraph-io/badger/v4"
)

// conflictRetries bounds how often a write transaction is replayed after
// badger reports a conflicting concurrent write.
const conflictRetries = 3

// BadgerSubmissionRepository implements SubmissionRepository using BadgerDB
type BadgerSubmissionRepository struct {
	db *badger.DB
}

// NewBadgerSubmissionRepository creates a new BadgerSubmissionRepository
func NewBadgerSubmissionRepository(db *badger.DB) *BadgerSubmissionRepository {
	return &BadgerSubmissionRepository{db: db}
}

func (r *BadgerSubmissionRepository) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// Create creates a new submission
func (r *BadgerSubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.update(ctx, func(txn *badger.Txn) error {
		// Get next ID
		id, err := getNextID(txn, SubmissionSeqKey)
		if err != nil {
			return err
		}
		submission.ID = id

		data, err := marshalEntity(submission)
		if err != nil {
			return err
		}
		return txn.Set(submissionKey(id), data)
	})
}

// GetByID retrieves a submission by ID
func (r *BadgerSubmissionRepository) GetByID(ctx context.Context, id int) (*models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var submission models.Submission
	err := r.db.View(func(txn *badger.Txn) error {
		return getSubmission(txn, id, &submission)
	})
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func getSubmission(txn *badger.Txn, id int, submission *models.Submission) error {
	item, err := txn.Get(submissionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, submission)
	})
}

// List retrieves all submissions, newest first
func (r *BadgerSubmissionRepository) List(ctx context.Context) ([]*models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	submissions := []*models.Submission{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(SubmissionKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var submission models.Submission
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &submission)
			})
			if err != nil {
				return fmt.Errorf("failed to read submission %s: %w", it.Item().Key(), err)
			}
			submissions = append(submissions, &submission)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(submissions)
	return submissions, nil
}

// Update rewrites the text of an existing submission
func (r *BadgerSubmissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.update(ctx, func(txn *badger.Txn) error {
		// Verify submission exists and keep its stored timestamp
		var existing models.Submission
		if err := getSubmission(txn, submission.ID, &existing); err != nil {
			return err
		}
		existing.Text = submission.Text

		data, err := marshalEntity(&existing)
		if err != nil {
			return err
		}
		if err := txn.Set(submissionKey(existing.ID), data); err != nil {
			return err
		}
		*submission = existing
		return nil
	})
}

// Delete deletes a submission by ID
func (r *BadgerSubmissionRepository) Delete(ctx context.Context, id int) error {
	return r.update(ctx, func(txn *badger.Txn) error {
		key := submissionKey(id)

		// Verify submission exists
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return txn.Delete(key)
	})
}

// Replace deletes every stored submission and writes submissions in their
// place within one transaction, resetting the ID sequence to the highest ID
func (r *BadgerSubmissionRepository) Replace(ctx context.Context, submissions []*models.Submission) error {
	if err := checkReplaceable(submissions); err != nil {
		return err
	}
	return r.update(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(SubmissionKeyPrefix)

		var stale [][]byte
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		maxID := 0
		for _, submission := range submissions {
			data, err := marshalEntity(submission)
			if err != nil {
				return err
			}
			if err := txn.Set(submissionKey(submission.ID), data); err != nil {
				return err
			}
			if submission.ID > maxID {
				maxID = submission.ID
			}
		}
		return setID(txn, SubmissionSeqKey, maxID)
	})
}

// Clear drops every submission and resets the ID sequence
func (r *BadgerSubmissionRepository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.DropPrefix([]byte(SubmissionKeyPrefix), []byte(SubmissionSeqKey))
}

func (r *BadgerSubmissionRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

func (r *BadgerSubmissionRepository) Close() error {
	return r.db.Close()
}
