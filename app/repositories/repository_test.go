package repositories

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"textsubmission/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newBadgerRepo(t *testing.T) SubmissionRepository {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	repo := NewBadgerSubmissionRepository(db)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newSqliteRepo(t *testing.T) SubmissionRepository {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo, err := NewGormSubmissionRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newSubmission(text string, createdAt time.Time) *models.Submission {
	s := &models.Submission{Text: text}
	s.Stamp(createdAt)
	return s
}

func TestSubmissionRepositories(t *testing.T) {
	drivers := map[string]func(t *testing.T) SubmissionRepository{
		"badger": newBadgerRepo,
		"sqlite": newSqliteRepo,
	}

	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			testRepositoryContract(t, open)
		})
	}
}

func testRepositoryContract(t *testing.T, open func(t *testing.T) SubmissionRepository) {
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 123456000, time.UTC)

	t.Run("create and get submission", func(t *testing.T) {
		repo := open(t)
		submission := newSubmission("Valid submission text", base)

		err := repo.Create(ctx, submission)
		require.NoError(t, err)
		assert.Equal(t, 1, submission.ID)

		found, err := repo.GetByID(ctx, submission.ID)
		require.NoError(t, err)
		assert.Equal(t, submission.Text, found.Text)
		assert.True(t, found.CreatedAt.Equal(base))
		assert.Equal(t, time.UTC, found.CreatedAt.Location())
	})

	t.Run("ids are fresh", func(t *testing.T) {
		repo := open(t)
		seen := map[int]bool{}
		for i := 0; i < 5; i++ {
			submission := newSubmission(fmt.Sprintf("Submission number %d", i), base)
			require.NoError(t, repo.Create(ctx, submission))
			assert.Positive(t, submission.ID)
			assert.False(t, seen[submission.ID])
			seen[submission.ID] = true
		}
	})

	t.Run("get missing submission", func(t *testing.T) {
		repo := open(t)
		_, err := repo.GetByID(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list is empty but not nil on a fresh store", func(t *testing.T) {
		repo := open(t)
		submissions, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, submissions)
		assert.Empty(t, submissions)
	})

	t.Run("list is newest first for any insertion order", func(t *testing.T) {
		repo := open(t)
		offsets := []int{3, 0, 4, 1, 2}
		for _, off := range offsets {
			submission := newSubmission(fmt.Sprintf("Offset %d minutes", off), base.Add(time.Duration(off)*time.Minute))
			require.NoError(t, repo.Create(ctx, submission))
		}

		submissions, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, submissions, len(offsets))
		for i := 1; i < len(submissions); i++ {
			assert.True(t, submissions[i-1].CreatedAt.After(submissions[i].CreatedAt))
		}
		assert.Equal(t, "Offset 4 minutes", submissions[0].Text)
	})

	t.Run("list breaks timestamp ties by id", func(t *testing.T) {
		repo := open(t)
		first := newSubmission("First submission", base)
		second := newSubmission("Second submission", base)
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		submissions, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, submissions, 2)
		assert.Equal(t, second.ID, submissions[0].ID)
	})

	t.Run("update changes text only", func(t *testing.T) {
		repo := open(t)
		submission := newSubmission("Original text value", base)
		require.NoError(t, repo.Create(ctx, submission))

		update := &models.Submission{ID: submission.ID, Text: "Updated text value", CreatedAt: base.Add(time.Hour)}
		require.NoError(t, repo.Update(ctx, update))
		assert.True(t, update.CreatedAt.Equal(base))

		found, err := repo.GetByID(ctx, submission.ID)
		require.NoError(t, err)
		assert.Equal(t, "Updated text value", found.Text)
		assert.Equal(t, submission.ID, found.ID)
		assert.True(t, found.CreatedAt.Equal(base))
	})

	t.Run("update missing submission", func(t *testing.T) {
		repo := open(t)
		err := repo.Update(ctx, &models.Submission{ID: 999, Text: "Nobody home here"})
		assert.ErrorIs(t, err, ErrNotFound)

		submissions, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, submissions)
	})

	t.Run("delete removes exactly one row", func(t *testing.T) {
		repo := open(t)
		keep := newSubmission("Keep this one", base)
		drop := newSubmission("Drop this one", base.Add(time.Second))
		require.NoError(t, repo.Create(ctx, keep))
		require.NoError(t, repo.Create(ctx, drop))

		require.NoError(t, repo.Delete(ctx, drop.ID))

		_, err := repo.GetByID(ctx, drop.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		submissions, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, submissions, 1)
		assert.Equal(t, keep.ID, submissions[0].ID)

		assert.ErrorIs(t, repo.Delete(ctx, drop.ID), ErrNotFound)
	})

	t.Run("replace keeps ids and continues the sequence", func(t *testing.T) {
		repo := open(t)
		old := newSubmission("Replaced away entirely", base)
		require.NoError(t, repo.Create(ctx, old))

		restored := []*models.Submission{
			{ID: 4, Text: "Restored four", CreatedAt: base},
			{ID: 9, Text: "Restored nine", CreatedAt: base.Add(time.Minute)},
		}
		require.NoError(t, repo.Replace(ctx, restored))

		submissions, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, submissions, 2)
		assert.Equal(t, 9, submissions[0].ID)
		assert.Equal(t, "Restored nine", submissions[0].Text)

		next := newSubmission("After the restore", base.Add(time.Hour))
		require.NoError(t, repo.Create(ctx, next))
		assert.Greater(t, next.ID, 9)
	})

	t.Run("replace with nothing empties the store", func(t *testing.T) {
		repo := open(t)
		require.NoError(t, repo.Create(ctx, newSubmission("Soon to be gone", base)))
		require.NoError(t, repo.Replace(ctx, nil))

		submissions, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, submissions)
	})

	t.Run("failed replace keeps existing rows", func(t *testing.T) {
		tests := []struct {
			name string
			rows []*models.Submission
		}{
			{"missing id", []*models.Submission{
				{ID: 3, Text: "Restored three", CreatedAt: base},
				{Text: "Restored without id", CreatedAt: base},
			}},
			{"duplicate id", []*models.Submission{
				{ID: 3, Text: "Restored three", CreatedAt: base},
				{ID: 3, Text: "Restored three again", CreatedAt: base},
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := open(t)
				kept := newSubmission("Survives a bad restore", base)
				require.NoError(t, repo.Create(ctx, kept))

				assert.Error(t, repo.Replace(ctx, tt.rows))

				submissions, err := repo.List(ctx)
				require.NoError(t, err)
				require.Len(t, submissions, 1)
				assert.Equal(t, kept.ID, submissions[0].ID)
				assert.Equal(t, "Survives a bad restore", submissions[0].Text)
			})
		}
	})

	t.Run("clear removes everything", func(t *testing.T) {
		repo := open(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Create(ctx, newSubmission(strings.Repeat("c", 10+i), base)))
		}
		require.NoError(t, repo.Clear(ctx))

		submissions, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, submissions)
		assert.NoError(t, repo.Ping(ctx))
	})
}
