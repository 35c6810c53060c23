// Package database opens the configured submission store.
package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"textsubmission/app/config"
	"textsubmission/app/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Open returns a repository for the driver named in cfg, creating the data
// directory and schema as needed.
func Open(cfg *config.Config, logger *slog.Logger) (repositories.SubmissionRepository, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	switch cfg.DatabaseDriver {
	case config.DriverSqlite:
		if err := ensureDir(cfg.DatabasePath); err != nil {
			return nil, err
		}
		// WAL journal mode lets readers proceed while a write is in flight
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.SqlitePath())
		logger.Debug("opening sqlite database", "component", "database", "path", cfg.SqlitePath())
		return openGorm(sqlite.Open(dsn))
	case config.DriverPostgres:
		logger.Debug("opening postgres database", "component", "database")
		return openGorm(postgres.Open(cfg.DatabaseDSN))
	case config.DriverBadger:
		if err := ensureDir(cfg.DatabasePath); err != nil {
			return nil, err
		}
		logger.Debug("opening badger database", "component", "database", "path", cfg.BadgerPath())
		return OpenBadger(cfg.BadgerPath())
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

// OpenMemory returns an isolated in-memory sqlite store named name.
func OpenMemory(name string) (*repositories.GormSubmissionRepository, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	repo, err := openGorm(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}
	sqlDB, err := repo.DB().DB()
	if err != nil {
		return nil, err
	}
	// a shared-cache memory database lives only as long as a connection does
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	return repo, nil
}

// OpenBadger opens a badger store at path; an empty path is in-memory.
func OpenBadger(path string) (*repositories.BadgerSubmissionRepository, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return repositories.NewBadgerSubmissionRepository(db), nil
}

func openGorm(dialector gorm.Dialector) (*repositories.GormSubmissionRepository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Configure tracing for GORM
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	return repositories.NewGormSubmissionRepository(db)
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read data dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	return nil
}
