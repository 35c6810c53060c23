package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"textsubmission/app/config"
	"textsubmission/app/database"
	"textsubmission/app/models"
	"textsubmission/app/repositories"
)

// SnapshotVersion is written into every backup file.
const SnapshotVersion = 1

// ErrCancelled is returned when the operator declines a confirmation prompt.
var ErrCancelled = errors.New("operation cancelled")

// openStore is swapped out in tests.
var openStore = database.Open

// Snapshot is the JSON document written by backup and read by restore.
type Snapshot struct {
	Version     int                  `json:"version"`
	CreatedAt   time.Time            `json:"createdAt"`
	Driver      string               `json:"driver"`
	Submissions []*models.Submission `json:"submissions"`
}

// Maintenance runs the database maintenance commands against the store
// described by Config.
type Maintenance struct {
	Config *config.Config
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
	// Yes answers every confirmation prompt with yes.
	Yes bool
}

func (m *Maintenance) open() (repositories.SubmissionRepository, error) {
	repo, err := openStore(m.Config, m.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", m.Config.DatabaseDriver, err)
	}
	return repo, nil
}

func (m *Maintenance) confirm(prompt string) bool {
	if m.Yes {
		return true
	}
	fmt.Fprintf(m.Out, "%s [y/N] ", prompt)
	var response string
	fmt.Fscanln(m.In, &response)
	return response == "y" || response == "Y"
}

// Init opens the store, creating its files and schema when missing.
func (m *Maintenance) Init(ctx context.Context) error {
	repo, err := m.open()
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(m.Out, "Database initialized successfully (%s)\n", m.Config.DatabaseDriver)
	return nil
}

// Clean removes every submission after confirmation.
func (m *Maintenance) Clean(ctx context.Context) error {
	repo, err := m.open()
	if err != nil {
		return err
	}
	defer repo.Close()

	existing, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to count submissions: %w", err)
	}
	if len(existing) == 0 {
		fmt.Fprintln(m.Out, "Database is already clean")
		return nil
	}

	if !m.confirm(fmt.Sprintf("Are you sure you want to delete all %d submissions? This cannot be undone.", len(existing))) {
		fmt.Fprintln(m.Out, "Operation cancelled")
		return nil
	}

	if err := repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clean database: %w", err)
	}
	m.Logger.Info("database cleaned", "removed", len(existing))
	fmt.Fprintln(m.Out, "Database cleaned successfully")
	return nil
}

// Backup writes a JSON snapshot of every submission to file, or to a
// timestamped file under <databasePath>/backups when file is empty. It
// returns the path written.
func (m *Maintenance) Backup(ctx context.Context, file string) (string, error) {
	repo, err := m.open()
	if err != nil {
		return "", err
	}
	defer repo.Close()

	submissions, err := repo.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read submissions: %w", err)
	}

	now := time.Now().UTC()
	if file == "" {
		file = filepath.Join(m.Config.DatabasePath, "backups", fmt.Sprintf("backup_%d.json", now.Unix()))
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	data, err := json.MarshalIndent(Snapshot{
		Version:     SnapshotVersion,
		CreatedAt:   now,
		Driver:      m.Config.DatabaseDriver,
		Submissions: submissions,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}

	m.Logger.Info("database backed up", "file", file, "submissions", len(submissions))
	fmt.Fprintf(m.Out, "Database backed up successfully to %s (%d submissions)\n", file, len(submissions))
	return file, nil
}

// Restore replaces the store contents with the snapshot in file, keeping
// ids and timestamps. A non-empty store is only replaced after confirmation.
func (m *Maintenance) Restore(ctx context.Context, file string) error {
	snapshot, err := readSnapshot(file, m.Config.ServerRule())
	if err != nil {
		return err
	}

	repo, err := m.open()
	if err != nil {
		return err
	}
	defer repo.Close()

	existing, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to count submissions: %w", err)
	}
	if len(existing) > 0 {
		if !m.confirm(fmt.Sprintf("Existing database holds %d submissions. Do you want to replace them?", len(existing))) {
			fmt.Fprintln(m.Out, "Operation cancelled")
			return ErrCancelled
		}
	}

	if err := repo.Replace(ctx, snapshot.Submissions); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}

	m.Logger.Info("database restored", "file", file, "submissions", len(snapshot.Submissions))
	fmt.Fprintf(m.Out, "Database restored successfully (%d submissions)\n", len(snapshot.Submissions))
	return nil
}

func readSnapshot(file string, rule models.TextRule) (*Snapshot, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("backup file does not exist: %s", file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("backup file is empty: %s", file)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode backup file: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported backup version %d", snapshot.Version)
	}

	seen := make(map[int]bool, len(snapshot.Submissions))
	for i, s := range snapshot.Submissions {
		if s == nil || s.ID <= 0 {
			return nil, fmt.Errorf("submission %d in backup has no id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate submission id %d in backup", s.ID)
		}
		seen[s.ID] = true
		if err := s.Validate(rule); err != nil {
			return nil, fmt.Errorf("invalid submission %d in backup: %w", s.ID, err)
		}
		s.Stamp(s.CreatedAt)
	}
	return &snapshot, nil
}
