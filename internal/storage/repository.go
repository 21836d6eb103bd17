// Package storage is the SQL implementation of the report engine ports,
// backed by sqlite (modernc) or postgres (pgx).
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"bilancio/internal/core"
)

type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) the sqlite database at
// dbPath and applies pending migrations.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return open(DialectSQLite, dsn)
}

// NewPostgresRepository connects to databaseURL and applies pending migrations.
func NewPostgresRepository(databaseURL string) (*Repository, error) {
	return open(DialectPostgres, databaseURL)
}

func open(d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: d}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Dialect() Dialect { return r.dialect }

func (r *Repository) q(query string) string { return r.dialect.rebind(query) }

func (r *Repository) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	err := r.db.QueryRowContext(ctx,
		r.q(`INSERT INTO categories (user_id, name) VALUES (?, ?) RETURNING id`),
		int64(c.UserID), c.Name,
	).Scan(&c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *Repository) AddBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	err := r.db.QueryRowContext(ctx,
		r.q(`INSERT INTO budgets (user_id, category_id, year, month, amount) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		int64(b.UserID), int64(b.CategoryID), b.Month.Year, int(b.Month.Month), b.Amount.String(),
	).Scan(&b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (r *Repository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	err := r.db.QueryRowContext(ctx,
		r.q(`INSERT INTO expenses (user_id, category_id, date, amount, description) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		int64(e.UserID), int64(e.CategoryID), e.Date.String(), e.Amount.String(), e.Description,
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved",
		"id", e.ID,
		"user_id", e.UserID,
		"category_id", e.CategoryID,
		"date", e.Date.String(),
		"amount", e.Amount.String())

	return e, nil
}

func (r *Repository) ListCategories(ctx context.Context, user core.UserID) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY name, id`), int64(user))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListBudgets returns budgets in insertion order, so the first budget of a
// duplicated (category, month) pair stays first.
func (r *Repository) ListBudgets(ctx context.Context, user core.UserID) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT id, user_id, category_id, year, month, amount FROM budgets WHERE user_id = ? ORDER BY id`), int64(user))
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		var (
			b      core.Budget
			month  int
			amount decimal.Decimal
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Month.Year, &month, &amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Month.Month = time.Month(month)
		b.Amount = core.NewMoney(amount)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) ListExpenses(ctx context.Context, user core.UserID, start, end core.Date) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT e.id, e.user_id, e.category_id, COALESCE(c.name, ''), e.date, e.amount, e.description
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ? AND e.date >= ? AND e.date <= ?
		ORDER BY e.date, e.id`),
		int64(user), start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var (
			e      core.Expense
			date   dateValue
			amount decimal.Decimal
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.CategoryName, &date, &amount, &e.Description); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = date.Date
		e.Amount = core.NewMoney(amount)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MonthlyTotals sums the user's expenses per month, most recent month first.
// Amounts are added as decimals in Go so sqlite never rounds through floats.
func (r *Repository) MonthlyTotals(ctx context.Context, user core.UserID) ([]core.MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT date, amount FROM expenses WHERE user_id = ? ORDER BY date DESC`), int64(user))
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var out []core.MonthTotal
	for rows.Next() {
		var (
			date   dateValue
			amount decimal.Decimal
		)
		if err := rows.Scan(&date, &amount); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		ym := date.YearMonth()
		if n := len(out); n == 0 || out[n-1].Month != ym {
			out = append(out, core.MonthTotal{Month: ym})
		}
		last := &out[len(out)-1]
		last.Total = last.Total.Add(core.NewMoney(amount))
	}
	return out, rows.Err()
}
