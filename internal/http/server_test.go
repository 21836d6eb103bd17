package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/ports/memory"
	"bilancio/internal/report"
)

type fakePublisher struct {
	msgs []*amqp.ReportRequestMessage
	err  error
}

func (f *fakePublisher) PublishReportRequest(_ context.Context, msg *amqp.ReportRequestMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

type testAPI struct {
	handler http.Handler
	store   *memory.Store
}

func newTestAPI(t *testing.T, pub RequestPublisher) *testAPI {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	food, err := s.AddCategory(ctx, core.Category{UserID: 1, Name: "Food"})
	require.NoError(t, err)
	_, err = s.AddBudget(ctx, core.Budget{UserID: 1, CategoryID: food.ID, Month: core.YearMonth{Year: 2024, Month: 3}, Amount: core.MustMoney("100")})
	require.NoError(t, err)
	_, err = s.AddExpense(ctx, core.Expense{UserID: 1, CategoryID: food.ID, Date: core.NewDate(2024, 3, 4), Amount: core.MustMoney("30")})
	require.NoError(t, err)

	gen := report.NewGenerator(report.Sources{Expenses: s, Budgets: s, Categories: s}, s, log.Discard())
	deps := Dependencies{Reports: gen, Statistics: report.NewStatistics(s, s)}
	if pub != nil {
		deps.Requests = pub
	}
	return &testAPI{handler: New(deps, Options{RateLimitPerMinute: 6000, RateLimitBurst: 100}, log.Discard()), store: s}
}

func (a *testAPI) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) generate(t *testing.T) map[string]any {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/reports", "1", `{"type":"monthly","year":2024,"month":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestUserHeaderRequired(t *testing.T) {
	api := newTestAPI(t, nil)
	for _, user := range []string{"", "abc", "-3"} {
		rec := api.do(t, http.MethodGet, "/api/v1/reports", user, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "user %q", user)
	}
}

func TestGenerateReport(t *testing.T) {
	api := newTestAPI(t, nil)
	out := api.generate(t)

	assert.Equal(t, "MONTHLY", out["type"])
	assert.Equal(t, "2024-03-01", out["startDate"])
	assert.Equal(t, "2024-03-31", out["endDate"])
	assert.Equal(t, 30.0, out["totalExpenses"])
	assert.Equal(t, 30.0, out["globalUsagePercentage"])
	assert.Equal(t, "Food", out["dominantCategory"])

	// memoized
	again := api.generate(t)
	assert.Equal(t, out["id"], again["id"])
}

func TestGenerateReport_BadRequests(t *testing.T) {
	api := newTestAPI(t, nil)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type":`},
		{"missing type", `{"year":2024}`},
		{"unknown type", `{"type":"weekly","year":2024}`},
		{"month out of range", `{"type":"MONTHLY","year":2024,"month":13}`},
		{"monthly without month", `{"type":"MONTHLY","year":2024}`},
		{"bad date", `{"type":"CUSTOM","startDate":"2024/01/01","endDate":"2024-01-31"}`},
		{"end before start", `{"type":"CUSTOM","startDate":"2024-02-01","endDate":"2024-01-31"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/v1/reports", "1", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestReportReads(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.generate(t)["id"].(string)

	rec := api.do(t, http.MethodGet, "/api/v1/reports/"+id, "1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/reports", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = api.do(t, http.MethodGet, "/api/v1/reports/"+id+"/categories", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.Equal(t, 100.0, cats["totalBudget"])
	assert.Len(t, cats["categories"], 1)

	rec = api.do(t, http.MethodGet, "/api/v1/reports/"+id+"/timeseries", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var series map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	assert.Equal(t, "Monthly", series["type"])
	assert.Len(t, series["series"], 31)

	// other users cannot see it
	rec = api.do(t, http.MethodGet, "/api/v1/reports/"+id, "2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/reports/not-a-uuid", "1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportXLSX(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.generate(t)["id"].(string)

	rec := api.do(t, http.MethodGet, "/api/v1/reports/"+id+"/export/xlsx", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report_2024-03-01_2024-03-31.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue("Categories", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Food", name)
}

func TestDeleteReport(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.generate(t)["id"].(string)

	rec := api.do(t, http.MethodDelete, "/api/v1/reports/"+id, "2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/v1/reports/"+id, "1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/reports/"+id, "1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegenerateReport(t *testing.T) {
	api := newTestAPI(t, nil)
	first := api.generate(t)

	_, err := api.store.AddExpense(context.Background(), core.Expense{UserID: 1, CategoryID: 1, Date: core.NewDate(2024, 3, 9), Amount: core.MustMoney("20")})
	require.NoError(t, err)

	assert.Equal(t, 30.0, api.generate(t)["totalExpenses"])

	rec := api.do(t, http.MethodPost, "/api/v1/reports/regenerate", "1", `{"type":"MONTHLY","year":2024,"month":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var fresh map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	assert.Equal(t, 50.0, fresh["totalExpenses"])
	assert.NotEqual(t, first["id"], fresh["id"])
}

func TestRequestReport(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		api := newTestAPI(t, nil)
		rec := api.do(t, http.MethodPost, "/api/v1/reports/requests", "1", `{"type":"ANNUAL","year":2024}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("queued", func(t *testing.T) {
		pub := &fakePublisher{}
		api := newTestAPI(t, pub)
		rec := api.do(t, http.MethodPost, "/api/v1/reports/requests", "1", `{"type":"annual","year":2024}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var body RequestAccepted
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, pub.msgs, 1)
		assert.Equal(t, body.RequestID, pub.msgs[0].RequestID)
		assert.Equal(t, "ANNUAL", pub.msgs[0].Type)
		assert.Equal(t, int64(1), pub.msgs[0].UserID)
	})

	t.Run("invalid period is rejected before queueing", func(t *testing.T) {
		pub := &fakePublisher{}
		api := newTestAPI(t, pub)
		rec := api.do(t, http.MethodPost, "/api/v1/reports/requests", "1", `{"type":"ANNUAL"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, pub.msgs)
	})

	t.Run("broker failure", func(t *testing.T) {
		api := newTestAPI(t, &fakePublisher{err: errors.New("circuit breaker is open")})
		rec := api.do(t, http.MethodPost, "/api/v1/reports/requests", "1", `{"type":"ANNUAL","year":2024}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestLastMonthStatistics(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/v1/statistics/last-month", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var activity report.MonthActivity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &activity))
	assert.Equal(t, 2024, activity.Year)
	assert.Equal(t, 3, activity.Month)
	assert.Equal(t, []string{"4"}, activity.Labels)

	rec = api.do(t, http.MethodGet, "/api/v1/statistics/last-month", "2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := memory.New()
	gen := report.NewGenerator(report.Sources{Expenses: s, Budgets: s, Categories: s}, s, log.Discard())
	h := New(Dependencies{Reports: gen, Statistics: report.NewStatistics(s, s)}, Options{RateLimitPerMinute: 1, RateLimitBurst: 2}, log.Discard())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
		req.Header.Set(HeaderUserID, "5")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
