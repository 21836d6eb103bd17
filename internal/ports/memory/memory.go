// Package memory is an in-process implementation of every port, used for
// development and tests.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

type periodKey struct {
	user       core.UserID
	start, end core.Date
}

type Store struct {
	mu         sync.RWMutex
	categories []core.Category
	budgets    []core.Budget
	expenses   []core.Expense
	nextID     int64

	reports  map[uuid.UUID]core.Report
	byPeriod map[periodKey]uuid.UUID
}

func New() *Store {
	return &Store{
		reports:  make(map[uuid.UUID]core.Report),
		byPeriod: make(map[periodKey]uuid.UUID),
	}
}

// NewFromFiles loads seed_categories.csv, seed_budgets.csv and
// seed_expenses.csv from base. Missing files are skipped.
//
//	seed_categories.csv: user_id,category_id,name
//	seed_budgets.csv:    user_id,category_id,YYYY-MM,amount
//	seed_expenses.csv:   user_id,category_id,YYYY-MM-DD,amount[,description]
func NewFromFiles(base string) (*Store, error) {
	s := New()
	loaders := []struct {
		file string
		load func([]string) error
	}{
		{"seed_categories.csv", s.loadCategory},
		{"seed_budgets.csv", s.loadBudget},
		{"seed_expenses.csv", s.loadExpense},
	}
	for _, l := range loaders {
		records, err := readCSV(filepath.Join(base, l.file))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", l.file, err)
		}
		for i, rec := range records {
			if err := l.load(rec); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", l.file, i+1, err)
			}
		}
	}
	return s, nil
}

func (s *Store) AddCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		s.nextID++
		c.ID = core.CategoryID(s.nextID)
	}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) AddBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = s.nextID
	s.budgets = append(s.budgets, b)
	return b, nil
}

// AddExpense stores e, filling CategoryName from the known categories when empty.
func (s *Store) AddExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CategoryName == "" {
		for _, c := range s.categories {
			if c.ID == e.CategoryID {
				e.CategoryName = c.Name
				break
			}
		}
	}
	s.nextID++
	e.ID = s.nextID
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) ListCategories(_ context.Context, user core.UserID) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Category{}
	for _, c := range s.categories {
		if c.UserID == user {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) ListBudgets(_ context.Context, user core.UserID) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Budget{}
	for _, b := range s.budgets {
		if b.UserID == user {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) ListExpenses(_ context.Context, user core.UserID, start, end core.Date) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if e.UserID == user && e.Date.Within(start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

// MonthlyTotals sums expenses per month, most recent month first.
func (s *Store) MonthlyTotals(_ context.Context, user core.UserID) ([]core.MonthTotal, error) {
	s.mu.RLock()
	sums := make(map[core.YearMonth]core.Money)
	for _, e := range s.expenses {
		if e.UserID == user {
			ym := e.Date.YearMonth()
			sums[ym] = sums[ym].Add(e.Amount)
		}
	}
	s.mu.RUnlock()

	out := make([]core.MonthTotal, 0, len(sums))
	for ym, total := range sums {
		out = append(out, core.MonthTotal{Month: ym, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.After(out[j].Month) })
	return out, nil
}

func (s *Store) FindByPeriod(_ context.Context, user core.UserID, start, end core.Date) (core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPeriod[periodKey{user, start, end}]
	if !ok {
		return core.Report{}, core.ErrNotFound
	}
	return s.reports[id], nil
}

// Save keeps the first report stored for a period and returns it to later writers.
func (s *Store) Save(_ context.Context, r core.Report) (core.Report, error) {
	if r.ID == uuid.Nil {
		return core.Report{}, errors.New("report id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := periodKey{r.UserID, r.StartDate, r.EndDate}
	if id, ok := s.byPeriod[key]; ok {
		return s.reports[id], nil
	}
	s.reports[r.ID] = r
	s.byPeriod[key] = r.ID
	return r, nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return core.Report{}, core.ErrNotFound
	}
	return r, nil
}

// ListByUser returns the user's reports, newest first.
func (s *Store) ListByUser(_ context.Context, user core.UserID) ([]core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Report{}
	for _, r := range s.reports {
		if r.UserID == user {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return core.ErrNotFound
	}
	delete(s.reports, id)
	delete(s.byPeriod, periodKey{r.UserID, r.StartDate, r.EndDate})
	return nil
}

func (s *Store) loadCategory(rec []string) error {
	if len(rec) < 3 {
		return fmt.Errorf("want 3 fields, got %d", len(rec))
	}
	user, err := parseID(rec[0])
	if err != nil {
		return err
	}
	id, err := parseID(rec[1])
	if err != nil {
		return err
	}
	_, err = s.AddCategory(context.Background(), core.Category{ID: core.CategoryID(id), UserID: core.UserID(user), Name: strings.TrimSpace(rec[2])})
	if id > s.nextID {
		s.nextID = id
	}
	return err
}

func (s *Store) loadBudget(rec []string) error {
	if len(rec) < 4 {
		return fmt.Errorf("want 4 fields, got %d", len(rec))
	}
	user, err := parseID(rec[0])
	if err != nil {
		return err
	}
	cat, err := parseID(rec[1])
	if err != nil {
		return err
	}
	ym, err := core.ParseYearMonth(rec[2])
	if err != nil {
		return err
	}
	amount, err := core.ParseMoney(rec[3])
	if err != nil {
		return err
	}
	_, err = s.AddBudget(context.Background(), core.Budget{UserID: core.UserID(user), CategoryID: core.CategoryID(cat), Month: ym, Amount: amount})
	return err
}

func (s *Store) loadExpense(rec []string) error {
	if len(rec) < 4 {
		return fmt.Errorf("want at least 4 fields, got %d", len(rec))
	}
	user, err := parseID(rec[0])
	if err != nil {
		return err
	}
	cat, err := parseID(rec[1])
	if err != nil {
		return err
	}
	date, err := core.ParseDate(rec[2])
	if err != nil {
		return err
	}
	amount, err := core.ParseMoney(rec[3])
	if err != nil {
		return err
	}
	e := core.Expense{UserID: core.UserID(user), CategoryID: core.CategoryID(cat), Date: date, Amount: amount}
	if len(rec) > 4 {
		e.Description = strings.TrimSpace(rec[4])
	}
	_, err = s.AddExpense(context.Background(), e)
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// readCSV returns the non comment records of path, or nil if it does not exist.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
