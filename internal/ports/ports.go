// Package ports declares the collaborators the report engine depends on.
package ports

//go:generate mockgen -destination=mocks/mock_ports.go -source=ports.go

import (
	"context"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// Inbound data sources.
type (
	// ExpenseLister returns the user's expenses dated within [start, end].
	ExpenseLister interface {
		ListExpenses(ctx context.Context, user core.UserID, start, end core.Date) ([]core.Expense, error)
	}

	BudgetLister interface {
		ListBudgets(ctx context.Context, user core.UserID) ([]core.Budget, error)
	}

	CategoryLister interface {
		ListCategories(ctx context.Context, user core.UserID) ([]core.Category, error)
	}

	// MonthlyTotalsReader returns per month expense totals, most recent month first.
	MonthlyTotalsReader interface {
		MonthlyTotals(ctx context.Context, user core.UserID) ([]core.MonthTotal, error)
	}
)

// ReportStore persists generated reports keyed by (user, start, end).
//
// FindByPeriod returns core.ErrNotFound when no report exists. Save must
// treat the triple as a natural key: when a report for the same period was
// stored concurrently, Save returns the stored one instead of writing twice.
type ReportStore interface {
	FindByPeriod(ctx context.Context, user core.UserID, start, end core.Date) (core.Report, error)
	Save(ctx context.Context, r core.Report) (core.Report, error)
	Get(ctx context.Context, id uuid.UUID) (core.Report, error)
	ListByUser(ctx context.Context, user core.UserID) ([]core.Report, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReportExporter copies a report to an external destination and returns a
// reference to the written data.
type ReportExporter interface {
	Export(ctx context.Context, r core.Report) (ref string, err error)
}
