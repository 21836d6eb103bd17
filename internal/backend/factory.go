package backend

import (
	"context"
	"fmt"

	"bilancio/internal/cache"
	"bilancio/internal/log"
	"bilancio/internal/ports"
	"bilancio/internal/ports/memory"
	"bilancio/internal/report"
	"bilancio/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		src     dataSource
		cleanup CleanupFunc
	)
	switch config.Type {
	case MemoryBackend:
		store, err := f.createMemoryBackend(config)
		if err != nil {
			return nil, err
		}
		src = store
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		src, cleanup = repo, repo.Close
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		src, cleanup = repo, repo.Close
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &Result{
		Sources: report.Sources{
			Expenses:   src,
			Budgets:    src,
			Categories: src,
		},
		Store:   src,
		Totals:  src,
		Cleanup: cleanup,
	}
	if config.CacheSize > 0 {
		res.Cache = cache.NewReportStore(src, config.CacheSize, config.CacheTTL)
		res.Store = res.Cache
		f.logger.Info("Report cache enabled", "size", config.CacheSize, "ttl", config.CacheTTL)
	}
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*memory.Store, error) {
	if config.DataDirectory == "" {
		f.logger.Info("Initialized memory backend without seed data")
		return memory.New(), nil
	}
	store, err := memory.NewFromFiles(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed data: %w", err)
	}
	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
	return store, nil
}

var (
	_ dataSource = (*memory.Store)(nil)
	_ dataSource = (*storage.Repository)(nil)
	_ ports.ReportStore = (*cache.ReportStore)(nil)
)
