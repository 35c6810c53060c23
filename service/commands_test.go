package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"textsubmission/app/config"
	"textsubmission/app/models"
	"textsubmission/app/repositories"
	"textsubmission/app/repositories/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDrivers = []string{config.DriverSqlite, config.DriverBadger}

func setupTestConfig(t *testing.T, driver string) *config.Config {
	cfg := config.Default()
	cfg.DatabaseDriver = driver
	cfg.DatabasePath = t.TempDir()
	return cfg
}

func newMaintenance(cfg *config.Config, input string) (*Maintenance, *bytes.Buffer) {
	var out bytes.Buffer
	return &Maintenance{
		Config: cfg,
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		In:     strings.NewReader(input),
		Out:    &out,
	}, &out
}

// seed stores texts through a freshly opened repository and closes it.
func seed(t *testing.T, cfg *config.Config, texts ...string) {
	repo, err := openStore(cfg, nil)
	require.NoError(t, err)
	defer repo.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range texts {
		s := &models.Submission{Text: text}
		s.Stamp(now.Add(time.Duration(i) * time.Minute))
		require.NoError(t, repo.Create(context.Background(), s))
	}
}

func count(t *testing.T, cfg *config.Config) []*models.Submission {
	repo, err := openStore(cfg, nil)
	require.NoError(t, err)
	defer repo.Close()

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	return list
}

func TestInit(t *testing.T) {
	for _, driver := range testDrivers {
		t.Run(driver, func(t *testing.T) {
			cfg := setupTestConfig(t, driver)
			m, out := newMaintenance(cfg, "")

			require.NoError(t, m.Init(context.Background()))

			assert.Contains(t, out.String(), "Database initialized successfully")
			if driver == config.DriverSqlite {
				assert.FileExists(t, cfg.SqlitePath())
			} else {
				assert.DirExists(t, cfg.BadgerPath())
			}
		})
	}
}

func TestInitOpenFailure(t *testing.T) {
	old := openStore
	t.Cleanup(func() { openStore = old })
	openStore = func(*config.Config, *slog.Logger) (repositories.SubmissionRepository, error) {
		return nil, errors.New("permission denied")
	}

	m, _ := newMaintenance(config.Default(), "")
	err := m.Init(context.Background())

	assert.ErrorContains(t, err, "permission denied")
}

func TestClean(t *testing.T) {
	for _, driver := range testDrivers {
		t.Run(driver, func(t *testing.T) {
			cfg := setupTestConfig(t, driver)

			t.Run("clean empty database", func(t *testing.T) {
				m, out := newMaintenance(cfg, "")
				require.NoError(t, m.Clean(context.Background()))
				assert.Contains(t, out.String(), "Database is already clean")
			})

			seed(t, cfg, "First submission", "Second submission")

			t.Run("clean existing database - cancelled", func(t *testing.T) {
				m, out := newMaintenance(cfg, "n\n")
				require.NoError(t, m.Clean(context.Background()))

				assert.Contains(t, out.String(), "Are you sure you want to delete all 2 submissions?")
				assert.Contains(t, out.String(), "Operation cancelled")
				assert.Len(t, count(t, cfg), 2)
			})

			t.Run("clean existing database - confirmed", func(t *testing.T) {
				m, out := newMaintenance(cfg, "y\n")
				require.NoError(t, m.Clean(context.Background()))

				assert.Contains(t, out.String(), "Database cleaned successfully")
				assert.Empty(t, count(t, cfg))
			})
		})
	}
}

func TestBackup(t *testing.T) {
	cfg := setupTestConfig(t, config.DriverSqlite)
	seed(t, cfg, "First submission", "Second submission")

	m, out := newMaintenance(cfg, "")
	file, err := m.Backup(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.DatabasePath, "backups"), filepath.Dir(file))
	assert.Contains(t, filepath.Base(file), "backup_")
	assert.Contains(t, out.String(), "Database backed up successfully")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, SnapshotVersion, snapshot.Version)
	assert.Equal(t, config.DriverSqlite, snapshot.Driver)
	require.Len(t, snapshot.Submissions, 2)
	assert.Equal(t, "Second submission", snapshot.Submissions[0].Text)
}

func TestRestore(t *testing.T) {
	source := setupTestConfig(t, config.DriverSqlite)
	seed(t, source, "First submission", "Second submission", "Third submission")
	m, _ := newMaintenance(source, "")
	backupFile, err := m.Backup(context.Background(), filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, err)
	original := count(t, source)

	t.Run("restore non-existent backup", func(t *testing.T) {
		m, _ := newMaintenance(setupTestConfig(t, config.DriverBadger), "")
		err := m.Restore(context.Background(), "nonexistent.json")
		assert.ErrorContains(t, err, "backup file does not exist")
	})

	t.Run("restore empty backup", func(t *testing.T) {
		empty := filepath.Join(t.TempDir(), "empty.json")
		require.NoError(t, os.WriteFile(empty, nil, 0644))

		m, _ := newMaintenance(setupTestConfig(t, config.DriverBadger), "")
		err := m.Restore(context.Background(), empty)
		assert.ErrorContains(t, err, "backup file is empty")
	})

	t.Run("restore corrupt backup", func(t *testing.T) {
		corrupt := filepath.Join(t.TempDir(), "corrupt.json")
		require.NoError(t, os.WriteFile(corrupt, []byte("test backup data"), 0644))

		m, _ := newMaintenance(setupTestConfig(t, config.DriverBadger), "")
		err := m.Restore(context.Background(), corrupt)
		assert.ErrorContains(t, err, "failed to decode backup file")
	})

	for _, driver := range testDrivers {
		t.Run("restore to clean state - "+driver, func(t *testing.T) {
			target := setupTestConfig(t, driver)
			m, out := newMaintenance(target, "")

			require.NoError(t, m.Restore(context.Background(), backupFile))
			assert.Contains(t, out.String(), "Database restored successfully")

			restored := count(t, target)
			require.Len(t, restored, len(original))
			for i := range original {
				assert.Equal(t, original[i].ID, restored[i].ID)
				assert.Equal(t, original[i].Text, restored[i].Text)
				assert.True(t, original[i].CreatedAt.Equal(restored[i].CreatedAt))
			}

			// new rows continue after the restored ids
			seed(t, target, "Fourth submission")
			for _, s := range count(t, target) {
				if s.Text == "Fourth submission" {
					assert.Greater(t, s.ID, original[0].ID)
				}
			}
		})
	}

	t.Run("restore with existing database - cancelled", func(t *testing.T) {
		target := setupTestConfig(t, config.DriverBadger)
		seed(t, target, "Keep this one")

		m, out := newMaintenance(target, "n\n")
		err := m.Restore(context.Background(), backupFile)

		assert.ErrorIs(t, err, ErrCancelled)
		assert.Contains(t, out.String(), "Operation cancelled")
		remaining := count(t, target)
		require.Len(t, remaining, 1)
		assert.Equal(t, "Keep this one", remaining[0].Text)
	})

	t.Run("restore with existing database - confirmed", func(t *testing.T) {
		target := setupTestConfig(t, config.DriverBadger)
		seed(t, target, "Replace this one")

		m, _ := newMaintenance(target, "")
		m.Yes = true
		require.NoError(t, m.Restore(context.Background(), backupFile))

		assert.Len(t, count(t, target), len(original))
	})
}

// failingReplace wraps a store whose Replace fails after every other call works.
type failingReplace struct {
	repositories.SubmissionRepository
	err error
}

func (f failingReplace) Replace(context.Context, []*models.Submission) error {
	return f.err
}

func TestRestoreFailureKeepsExistingRows(t *testing.T) {
	source := setupTestConfig(t, config.DriverSqlite)
	seed(t, source, "First submission", "Second submission")
	m, _ := newMaintenance(source, "")
	backupFile, err := m.Backup(context.Background(), filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, err)

	store := mock.NewSubmissionRepository()
	kept := &models.Submission{Text: "Still here afterwards"}
	kept.Stamp(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Create(context.Background(), kept))

	old := openStore
	t.Cleanup(func() { openStore = old })
	openStore = func(*config.Config, *slog.Logger) (repositories.SubmissionRepository, error) {
		return failingReplace{SubmissionRepository: store, err: errors.New("disk full")}, nil
	}

	target, out := newMaintenance(setupTestConfig(t, config.DriverBadger), "")
	target.Yes = true
	err = target.Restore(context.Background(), backupFile)

	assert.ErrorContains(t, err, "failed to restore database: disk full")
	assert.NotContains(t, out.String(), "Database restored successfully")
	assert.Equal(t, 1, store.Len())
	found, err := store.GetByID(context.Background(), kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "Still here afterwards", found.Text)
}

func TestReadSnapshotRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name     string
		document string
		expected string
	}{
		{
			name:     "unknown version",
			document: `{"version": 9, "submissions": []}`,
			expected: "unsupported backup version",
		},
		{
			name:     "missing id",
			document: `{"version": 1, "submissions": [{"text": "No id here", "createdAt": "2024-01-01T00:00:00Z"}]}`,
			expected: "has no id",
		},
		{
			name:     "duplicate id",
			document: `{"version": 1, "submissions": [{"id": 1, "text": "One", "createdAt": "2024-01-01T00:00:00Z"}, {"id": 1, "text": "Two", "createdAt": "2024-01-01T00:00:00Z"}]}`,
			expected: "duplicate submission id 1",
		},
		{
			name:     "blank text",
			document: `{"version": 1, "submissions": [{"id": 1, "text": "   ", "createdAt": "2024-01-01T00:00:00Z"}]}`,
			expected: "invalid submission 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "snapshot.json")
			require.NoError(t, os.WriteFile(file, []byte(tt.document), 0644))

			_, err := readSnapshot(file, models.DefaultServerRule)
			assert.ErrorContains(t, err, tt.expected)
		})
	}
}
