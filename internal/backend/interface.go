// Package backend assembles the data sources and report store selected by
// DATA_BACKEND.
package backend

import (
	"context"

	"bilancio/internal/cache"
	"bilancio/internal/ports"
	"bilancio/internal/report"
)

// CleanupFunc releases the resources held by a Result.
type CleanupFunc func() error

// Result holds everything the report engine needs from storage.
type Result struct {
	Sources report.Sources
	Store   ports.ReportStore
	Totals  ports.MonthlyTotalsReader

	// Cache is nil when caching is disabled. Register it with a
	// cache.Manager to drop expired entries.
	Cache *cache.ReportStore

	Cleanup CleanupFunc
}

// Close runs Cleanup if one is set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// dataSource is implemented by every concrete backend.
type dataSource interface {
	ports.ExpenseLister
	ports.BudgetLister
	ports.CategoryLister
	ports.MonthlyTotalsReader
	ports.ReportStore
}
