package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

const reportColumns = `id, user_id, kind, start_date, end_date, generated_at,
	total_budget, total_expenses, total_savings, global_usage_percentage,
	dominant_category, dominant_category_amount,
	over_budget_categories_count, total_over_budget_amount,
	category_details, time_series`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(s rowScanner) (core.Report, error) {
	var (
		r                                              core.Report
		kind                                           string
		start, end                                     dateValue
		generatedAt                                    timeValue
		budget, expenses, savings, dominant, overTotal decimal.Decimal
		usage                                          decimal.NullDecimal
		details, series                                []byte
	)
	err := s.Scan(&r.ID, &r.UserID, &kind, &start, &end, &generatedAt,
		&budget, &expenses, &savings, &usage,
		&r.DominantCategory, &dominant,
		&r.OverBudgetCategoriesCount, &overTotal,
		&details, &series)
	if err != nil {
		return core.Report{}, err
	}

	r.Kind = core.ReportKind(kind)
	r.StartDate = start.Date
	r.EndDate = end.Date
	r.GeneratedAt = generatedAt.Time
	r.TotalBudget = core.NewMoney(budget)
	r.TotalExpenses = core.NewMoney(expenses)
	r.TotalSavings = core.NewMoney(savings)
	if usage.Valid {
		r.GlobalUsagePercentage = core.NewPercentage(usage.Decimal)
	}
	r.DominantCategoryAmount = core.NewMoney(dominant)
	r.TotalOverBudgetAmount = core.NewMoney(overTotal)

	if err := json.Unmarshal(details, &r.CategoryDetails); err != nil {
		return core.Report{}, fmt.Errorf("decode category details: %w", err)
	}
	if err := json.Unmarshal(series, &r.TimeSeries); err != nil {
		return core.Report{}, fmt.Errorf("decode time series: %w", err)
	}
	return r, nil
}

func nullableDecimal(p core.Percentage) any {
	if !p.Valid() {
		return nil
	}
	return p.String()
}

func (r *Repository) FindByPeriod(ctx context.Context, user core.UserID, start, end core.Date) (core.Report, error) {
	row := r.db.QueryRowContext(ctx,
		r.q(`SELECT `+reportColumns+` FROM reports WHERE user_id = ? AND start_date = ? AND end_date = ?`),
		int64(user), start.String(), end.String())
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, core.ErrNotFound
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("find report by period: %w", err)
	}
	return rep, nil
}

// Save writes the report in a single statement inside a transaction. When a
// report for the same (user, start, end) already exists the insert is a no-op
// and the stored report is returned instead.
func (r *Repository) Save(ctx context.Context, rep core.Report) (core.Report, error) {
	if rep.ID == uuid.Nil {
		return core.Report{}, errors.New("report id is required")
	}
	details, err := json.Marshal(rep.CategoryDetails)
	if err != nil {
		return core.Report{}, fmt.Errorf("encode category details: %w", err)
	}
	series, err := json.Marshal(rep.TimeSeries)
	if err != nil {
		return core.Report{}, fmt.Errorf("encode time series: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Report{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.q(`INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, start_date, end_date) DO NOTHING`),
		rep.ID.String(), int64(rep.UserID), string(rep.Kind), rep.StartDate.String(), rep.EndDate.String(), formatTime(rep.GeneratedAt),
		rep.TotalBudget.String(), rep.TotalExpenses.String(), rep.TotalSavings.String(), nullableDecimal(rep.GlobalUsagePercentage),
		rep.DominantCategory, rep.DominantCategoryAmount.String(),
		rep.OverBudgetCategoriesCount, rep.TotalOverBudgetAmount.String(),
		string(details), string(series),
	)
	if err != nil {
		return core.Report{}, fmt.Errorf("insert report: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Report{}, fmt.Errorf("commit report: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return r.FindByPeriod(ctx, rep.UserID, rep.StartDate, rep.EndDate)
	}
	return rep, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (core.Report, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+reportColumns+` FROM reports WHERE id = ?`), id.String())
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, core.ErrNotFound
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *Repository) ListByUser(ctx context.Context, user core.UserID) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT `+reportColumns+` FROM reports WHERE user_id = ? ORDER BY generated_at DESC, id`), int64(user))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := []core.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM reports WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}
