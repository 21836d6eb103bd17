package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/ports"
)

// Sources are the collaborators a Generator reads raw data from.
type Sources struct {
	Expenses   ports.ExpenseLister
	Budgets    ports.BudgetLister
	Categories ports.CategoryLister
}

// Generator produces reports and memoizes them in a ReportStore: once a
// report exists for (user, start, end) it is returned unchanged until it is
// explicitly regenerated or deleted.
type Generator struct {
	src    Sources
	store  ports.ReportStore
	logger *log.Logger
	now    func() time.Time
	flight singleflight.Group
}

type Option func(*Generator)

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(src Sources, store ports.ReportStore, logger *log.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	g := &Generator{
		src:    src,
		store:  store,
		logger: logger.WithComponent(log.ComponentReport),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the report for the requested period, computing and
// storing it only when none exists yet.
func (g *Generator) Generate(ctx context.Context, user core.UserID, req Request) (core.Report, error) {
	p, err := Resolve(req)
	if err != nil {
		return core.Report{}, err
	}
	return g.once(ctx, user, p, false)
}

// Regenerate drops the stored report for the period, if any, and computes a
// fresh one from the current data.
func (g *Generator) Regenerate(ctx context.Context, user core.UserID, req Request) (core.Report, error) {
	p, err := Resolve(req)
	if err != nil {
		return core.Report{}, err
	}
	return g.once(ctx, user, p, true)
}

// once collapses concurrent requests for the same period into one computation.
func (g *Generator) once(ctx context.Context, user core.UserID, p Period, fresh bool) (core.Report, error) {
	key := fmt.Sprintf("%d|%s|%s|%t", user, p.Start, p.End, fresh)
	v, err, _ := g.flight.Do(key, func() (any, error) {
		if fresh {
			if err := g.drop(ctx, user, p); err != nil {
				return core.Report{}, err
			}
		}
		return g.generate(ctx, user, p)
	})
	if err != nil {
		return core.Report{}, err
	}
	return v.(core.Report), nil
}

func (g *Generator) drop(ctx context.Context, user core.UserID, p Period) error {
	existing, err := g.store.FindByPeriod(ctx, user, p.Start, p.End)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find report: %w", err)
	}
	if err := g.store.Delete(ctx, existing.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("delete report: %w", err)
	}
	g.logger.InfoContext(ctx, "Dropped stored report",
		log.FieldUserID, user, log.FieldReportID, existing.ID.String(), log.FieldOperation, log.OpRegenerate)
	return nil
}

func (g *Generator) generate(ctx context.Context, user core.UserID, p Period) (core.Report, error) {
	existing, err := g.store.FindByPeriod(ctx, user, p.Start, p.End)
	switch {
	case err == nil:
		g.logger.DebugContext(ctx, "Returning stored report",
			log.FieldUserID, user, log.FieldReportID, existing.ID.String())
		return existing, nil
	case !errors.Is(err, core.ErrNotFound):
		return core.Report{}, fmt.Errorf("find report: %w", err)
	}

	var (
		categories []core.Category
		budgets    []core.Budget
		expenses   []core.Expense
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		categories, err = g.src.Categories.ListCategories(egCtx, user)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		budgets, err = g.src.Budgets.ListBudgets(egCtx, user)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		expenses, err = g.src.Expenses.ListExpenses(egCtx, user, p.Start, p.End)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return core.Report{}, err
	}

	agg := Aggregate(p, categories, budgets, expenses)
	series := BuildSeries(p, agg.DailyExpenses, agg.MonthlyBudgets)
	r := Assemble(user, p, agg, series, g.now().UTC())

	saved, err := g.store.Save(ctx, r)
	if err != nil {
		return core.Report{}, fmt.Errorf("save report: %w", err)
	}
	g.logger.InfoContext(ctx, "Report generated",
		log.FieldUserID, user,
		log.FieldReportID, saved.ID.String(),
		log.FieldReportKind, string(p.Kind),
		log.FieldStartDate, p.Start.String(),
		log.FieldEndDate, p.End.String(),
		"categories", len(agg.Categories),
		"expenses", len(expenses))
	return saved, nil
}

// List returns the user's reports, most recently generated first.
func (g *Generator) List(ctx context.Context, user core.UserID) ([]core.Report, error) {
	reports, err := g.store.ListByUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].GeneratedAt.After(reports[j].GeneratedAt)
	})
	return reports, nil
}

// Get returns a report owned by user. Reports of other users are reported
// as core.ErrNotFound.
func (g *Generator) Get(ctx context.Context, user core.UserID, id uuid.UUID) (core.Report, error) {
	r, err := g.store.Get(ctx, id)
	if err != nil {
		return core.Report{}, err
	}
	if r.UserID != user {
		return core.Report{}, core.ErrNotFound
	}
	return r, nil
}

// Delete removes a report owned by user.
func (g *Generator) Delete(ctx context.Context, user core.UserID, id uuid.UUID) error {
	if _, err := g.Get(ctx, user, id); err != nil {
		return err
	}
	if err := g.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	g.logger.InfoContext(ctx, "Report deleted",
		log.FieldUserID, user, log.FieldReportID, id.String(), log.FieldOperation, log.OpDelete)
	return nil
}
