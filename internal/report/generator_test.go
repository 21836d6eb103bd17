package report_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/log"
	mock_ports "bilancio/internal/ports/mocks"
	"bilancio/internal/ports/memory"
	"bilancio/internal/report"
)

var march2024 = report.Request{Kind: core.KindMonthly, Year: 2024, Month: 3}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	food, err := s.AddCategory(ctx, core.Category{UserID: 1, Name: "Food"})
	require.NoError(t, err)
	_, err = s.AddBudget(ctx, core.Budget{UserID: 1, CategoryID: food.ID, Month: core.YearMonth{Year: 2024, Month: 3}, Amount: core.MustMoney("100.00")})
	require.NoError(t, err)
	for _, e := range []struct {
		day    int
		amount string
	}{{5, "40.00"}, {20, "70.00"}} {
		_, err := s.AddExpense(ctx, core.Expense{UserID: 1, CategoryID: food.ID, Date: core.NewDate(2024, 3, e.day), Amount: core.MustMoney(e.amount)})
		require.NoError(t, err)
	}
	return s
}

func newGenerator(s *memory.Store, opts ...report.Option) *report.Generator {
	return report.NewGenerator(report.Sources{Expenses: s, Budgets: s, Categories: s}, s, log.Discard(), opts...)
}

func TestGeneratorGenerate(t *testing.T) {
	g := newGenerator(seededStore(t))

	r, err := g.Generate(context.Background(), 1, march2024)
	require.NoError(t, err)
	assert.Equal(t, "110.00", r.TotalExpenses.String())
	assert.Equal(t, "-10.00", r.TotalSavings.String())
	assert.Equal(t, "Food", r.DominantCategory)
	assert.Equal(t, 1, r.OverBudgetCategoriesCount)
}

func TestGeneratorMemoizesPeriod(t *testing.T) {
	s := seededStore(t)
	g := newGenerator(s)
	ctx := context.Background()

	first, err := g.Generate(ctx, 1, march2024)
	require.NoError(t, err)

	cats, _ := s.ListCategories(ctx, 1)
	_, err = s.AddExpense(ctx, core.Expense{UserID: 1, CategoryID: cats[0].ID, Date: core.NewDate(2024, 3, 21), Amount: core.MustMoney("500.00")})
	require.NoError(t, err)

	second, err := g.Generate(ctx, 1, march2024)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "110.00", second.TotalExpenses.String())

	// a custom request covering the same dates hits the same report
	custom, err := g.Generate(ctx, 1, report.Request{Kind: core.KindCustom, Start: core.NewDate(2024, 3, 1), End: core.NewDate(2024, 3, 31)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, custom.ID)

	fresh, err := g.Regenerate(ctx, 1, march2024)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Equal(t, "610.00", fresh.TotalExpenses.String())

	_, err = g.Get(ctx, 1, first.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGeneratorRejectsInvalidRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	store := mock_ports.NewMockReportStore(ctrl)

	g := report.NewGenerator(report.Sources{}, store, nil)
	_, err := g.Generate(context.Background(), 1, report.Request{
		Kind:  core.KindCustom,
		Start: core.NewDate(2024, 3, 2),
		End:   core.NewDate(2024, 3, 1),
	})
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestGeneratorFailures(t *testing.T) {
	start, end := core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31)
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(store *mock_ports.MockReportStore, exp *mock_ports.MockExpenseLister, bud *mock_ports.MockBudgetLister, cat *mock_ports.MockCategoryLister)
	}{
		{
			name: "store lookup fails",
			setup: func(store *mock_ports.MockReportStore, _ *mock_ports.MockExpenseLister, _ *mock_ports.MockBudgetLister, _ *mock_ports.MockCategoryLister) {
				store.EXPECT().FindByPeriod(gomock.Any(), core.UserID(1), start, end).Return(core.Report{}, boom)
			},
		},
		{
			name: "expense source fails",
			setup: func(store *mock_ports.MockReportStore, exp *mock_ports.MockExpenseLister, bud *mock_ports.MockBudgetLister, cat *mock_ports.MockCategoryLister) {
				store.EXPECT().FindByPeriod(gomock.Any(), core.UserID(1), start, end).Return(core.Report{}, core.ErrNotFound)
				exp.EXPECT().ListExpenses(gomock.Any(), core.UserID(1), start, end).Return(nil, boom)
				bud.EXPECT().ListBudgets(gomock.Any(), core.UserID(1)).Return(nil, nil).AnyTimes()
				cat.EXPECT().ListCategories(gomock.Any(), core.UserID(1)).Return(nil, nil).AnyTimes()
			},
		},
		{
			name: "save fails",
			setup: func(store *mock_ports.MockReportStore, exp *mock_ports.MockExpenseLister, bud *mock_ports.MockBudgetLister, cat *mock_ports.MockCategoryLister) {
				store.EXPECT().FindByPeriod(gomock.Any(), core.UserID(1), start, end).Return(core.Report{}, core.ErrNotFound)
				exp.EXPECT().ListExpenses(gomock.Any(), core.UserID(1), start, end).Return(nil, nil)
				bud.EXPECT().ListBudgets(gomock.Any(), core.UserID(1)).Return(nil, nil)
				cat.EXPECT().ListCategories(gomock.Any(), core.UserID(1)).Return(nil, nil)
				store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(core.Report{}, boom)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mock_ports.NewMockReportStore(ctrl)
			exp := mock_ports.NewMockExpenseLister(ctrl)
			bud := mock_ports.NewMockBudgetLister(ctrl)
			cat := mock_ports.NewMockCategoryLister(ctrl)
			tt.setup(store, exp, bud, cat)

			g := report.NewGenerator(report.Sources{Expenses: exp, Budgets: bud, Categories: cat}, store, log.Discard())
			_, err := g.Generate(context.Background(), 1, march2024)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestGeneratorReturnsStoredValueOnConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock_ports.NewMockReportStore(ctrl)
	exp := mock_ports.NewMockExpenseLister(ctrl)
	bud := mock_ports.NewMockBudgetLister(ctrl)
	cat := mock_ports.NewMockCategoryLister(ctrl)

	winner := core.Report{ID: uuid.New(), UserID: 1, DominantCategory: "winner"}
	now := time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)

	store.EXPECT().FindByPeriod(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(core.Report{}, core.ErrNotFound)
	exp.EXPECT().ListExpenses(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	bud.EXPECT().ListBudgets(gomock.Any(), gomock.Any()).Return(nil, nil)
	cat.EXPECT().ListCategories(gomock.Any(), gomock.Any()).Return([]core.Category{{ID: 1, UserID: 1, Name: "Food"}}, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r core.Report) (core.Report, error) {
		assert.Equal(t, now, r.GeneratedAt)
		assert.Len(t, r.CategoryDetails, 1)
		return winner, nil
	})

	g := report.NewGenerator(report.Sources{Expenses: exp, Budgets: bud, Categories: cat}, store, log.Discard(),
		report.WithClock(func() time.Time { return now }))
	got, err := g.Generate(context.Background(), 1, march2024)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
}

// countingStore counts writes that reached the underlying store.
type countingStore struct {
	*memory.Store
	saves atomic.Int32
}

func (c *countingStore) Save(ctx context.Context, r core.Report) (core.Report, error) {
	c.saves.Add(1)
	return c.Store.Save(ctx, r)
}

func TestGeneratorConcurrentDuplicates(t *testing.T) {
	s := seededStore(t)
	cs := &countingStore{Store: s}
	g := report.NewGenerator(report.Sources{Expenses: s, Budgets: s, Categories: s}, cs, log.Discard())

	const n = 16
	ids := make([]uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := g.Generate(context.Background(), 1, march2024)
			if assert.NoError(t, err) {
				ids[i] = r.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	list, err := s.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.LessOrEqual(t, cs.saves.Load(), int32(n))
}

func TestGeneratorListGetDelete(t *testing.T) {
	s := seededStore(t)
	clock := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	g := newGenerator(s, report.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	ctx := context.Background()

	march, err := g.Generate(ctx, 1, march2024)
	require.NoError(t, err)
	annual, err := g.Generate(ctx, 1, report.Request{Kind: core.KindAnnual, Year: 2024})
	require.NoError(t, err)

	list, err := g.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, annual.ID, list[0].ID)
	assert.Equal(t, march.ID, list[1].ID)

	_, err = g.Get(ctx, 2, march.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, g.Delete(ctx, 2, march.ID), core.ErrNotFound)

	require.NoError(t, g.Delete(ctx, 1, march.ID))
	_, err = g.Get(ctx, 1, march.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
