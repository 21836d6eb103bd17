package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/ports/memory"
	mock_ports "bilancio/internal/ports/mocks"
	"bilancio/internal/report"
)

func TestReportStoreReadThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := mock_ports.NewMockReportStore(ctrl)
	s := NewReportStore(next, 8, time.Minute)
	ctx := context.Background()
	start, end := core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31)
	r := core.Report{ID: uuid.New(), UserID: 1, StartDate: start, EndDate: end}

	next.EXPECT().FindByPeriod(ctx, core.UserID(1), start, end).Return(r, nil).Times(3)

	for i := 0; i < 3; i++ {
		got, err := s.FindByPeriod(ctx, 1, start, end)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
	}
	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, 1, st.Size)

	m := NewManager(nil)
	s.Register(m)
	assert.Len(t, m.Stats(), 1)
}

func TestReportStoreDoesNotCacheMisses(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := mock_ports.NewMockReportStore(ctrl)
	s := NewReportStore(next, 8, time.Minute)
	ctx := context.Background()
	start, end := core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31)

	next.EXPECT().FindByPeriod(ctx, core.UserID(1), start, end).Return(core.Report{}, core.ErrNotFound).Times(2)
	for i := 0; i < 2; i++ {
		_, err := s.FindByPeriod(ctx, 1, start, end)
		assert.ErrorIs(t, err, core.ErrNotFound)
	}
}

func TestReportStoreSaveCachesStoredValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := mock_ports.NewMockReportStore(ctrl)
	s := NewReportStore(next, 8, time.Minute)
	ctx := context.Background()
	start, end := core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31)
	mine := core.Report{ID: uuid.New(), UserID: 1, StartDate: start, EndDate: end}
	stored := core.Report{ID: uuid.New(), UserID: 1, StartDate: start, EndDate: end}

	next.EXPECT().Save(ctx, mine).Return(stored, nil)
	got, err := s.Save(ctx, mine)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)

	cached, err := s.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, cached.ID)
}

func TestReportStoreDeleteEvicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := mock_ports.NewMockReportStore(ctrl)
	s := NewReportStore(next, 8, time.Minute)
	ctx := context.Background()
	start, end := core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31)
	r := core.Report{ID: uuid.New(), UserID: 1, StartDate: start, EndDate: end}

	next.EXPECT().Save(ctx, r).Return(r, nil)
	next.EXPECT().Delete(ctx, r.ID).Return(nil)
	next.EXPECT().FindByPeriod(ctx, core.UserID(1), start, end).Return(core.Report{}, core.ErrNotFound)
	next.EXPECT().Get(ctx, r.ID).Return(core.Report{}, core.ErrNotFound)

	_, err := s.Save(ctx, r)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, r.ID))

	_, err = s.FindByPeriod(ctx, 1, start, end)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Get(ctx, r.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReportStorePassesErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("boom")
	next := mock_ports.NewMockReportStore(ctrl)
	s := NewReportStore(next, 8, time.Minute)
	ctx := context.Background()

	next.EXPECT().ListByUser(ctx, core.UserID(1)).Return(nil, boom)
	_, err := s.ListByUser(ctx, 1)
	assert.ErrorIs(t, err, boom)
}

// Two processes (API and worker) each keep their own cache over one store.
// A regeneration in one must be visible to the other right away.
func TestReportStoreSharedBackingStore(t *testing.T) {
	ctx := context.Background()
	shared := memory.New()
	_, err := shared.AddCategory(ctx, core.Category{ID: 1, UserID: 1, Name: "Food"})
	require.NoError(t, err)
	_, err = shared.AddExpense(ctx, core.Expense{UserID: 1, CategoryID: 1, Date: core.NewDate(2024, 3, 5), Amount: core.MustMoney("40.00")})
	require.NoError(t, err)

	src := report.Sources{Expenses: shared, Budgets: shared, Categories: shared}
	worker := report.NewGenerator(src, NewReportStore(shared, 8, time.Minute), nil)
	api := report.NewGenerator(src, NewReportStore(shared, 8, time.Minute), nil)
	req := report.Request{Kind: core.KindMonthly, Year: 2024, Month: 3}

	first, err := worker.Generate(ctx, 1, req)
	require.NoError(t, err)

	_, err = shared.AddExpense(ctx, core.Expense{UserID: 1, CategoryID: 1, Date: core.NewDate(2024, 3, 6), Amount: core.MustMoney("10.00")})
	require.NoError(t, err)
	second, err := api.Regenerate(ctx, 1, req)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	got, err := worker.Generate(ctx, 1, req)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "50.00", got.TotalExpenses.String())

	_, err = shared.Get(ctx, got.ID)
	assert.NoError(t, err)
}
