package repositories

import (
	"context"
	"errors"
	"fmt"

	"textsubmission/app/models"

	"gorm.io/gorm"
)

// GormSubmissionRepository implements SubmissionRepository on a relational
// database through gorm.
type GormSubmissionRepository struct {
	db *gorm.DB
}

// NewGormSubmissionRepository creates the submissions table if needed and
// returns a repository bound to db.
func NewGormSubmissionRepository(db *gorm.DB) (*GormSubmissionRepository, error) {
	if err := db.AutoMigrate(&models.Submission{}); err != nil {
		return nil, fmt.Errorf("failed to migrate submissions table: %w", err)
	}
	return &GormSubmissionRepository{db: db}, nil
}

// DB exposes the underlying handle.
func (r *GormSubmissionRepository) DB() *gorm.DB {
	return r.db
}

func (r *GormSubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	submission.ID = 0
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *GormSubmissionRepository) GetByID(ctx context.Context, id int) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).First(&submission, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	normalize(&submission)
	return &submission, nil
}

func (r *GormSubmissionRepository) List(ctx context.Context) ([]*models.Submission, error) {
	submissions := []*models.Submission{}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	for _, submission := range submissions {
		normalize(submission)
	}
	return submissions, nil
}

func (r *GormSubmissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Submission
		err := tx.First(&existing, submission.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		err = tx.Model(&models.Submission{}).
			Where("id = ?", submission.ID).
			Update("text", submission.Text).Error
		if err != nil {
			return err
		}
		existing.Text = submission.Text
		normalize(&existing)
		*submission = existing
		return nil
	})
}

func (r *GormSubmissionRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&models.Submission{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormSubmissionRepository) Replace(ctx context.Context, submissions []*models.Submission) error {
	if err := checkReplaceable(submissions); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		if len(submissions) > 0 {
			if err := tx.CreateInBatches(submissions, 100).Error; err != nil {
				return err
			}
		}
		// Explicit ids bypass the postgres sequence, so move it past them
		if tx.Dialector.Name() == "postgres" {
			return tx.Exec(
				"SELECT setval(pg_get_serial_sequence('text_submissions', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM text_submissions",
			).Error
		}
		return nil
	})
}

func (r *GormSubmissionRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Submission{}).Error
}

func (r *GormSubmissionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormSubmissionRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// normalize puts timestamps read back from the driver into UTC.
func normalize(submission *models.Submission) {
	submission.CreatedAt = submission.CreatedAt.UTC()
}
