package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

func sampleReport() core.Report {
	return core.Report{
		ID:                     uuid.New(),
		UserID:                 2,
		Kind:                   core.KindMonthly,
		StartDate:              core.NewDate(2024, 3, 1),
		EndDate:                core.NewDate(2024, 3, 31),
		GeneratedAt:            time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		TotalBudget:            core.MustMoney("100"),
		TotalExpenses:          core.MustMoney("25.5"),
		TotalSavings:           core.MustMoney("74.5"),
		GlobalUsagePercentage:  core.PercentOf(core.MustMoney("25.5"), core.MustMoney("100")),
		DominantCategory:       "Food",
		DominantCategoryAmount: core.MustMoney("25.5"),
		CategoryDetails: []core.CategoryTotals{
			{CategoryID: 1, Name: "Food", Budget: core.MustMoney("100"), Expenses: core.MustMoney("25.5"),
				UsagePercentage: core.PercentOf(core.MustMoney("25.5"), core.MustMoney("100")), TransactionCount: 3},
			{CategoryID: 2, Name: "Gifts", Expenses: core.Zero},
		},
		TimeSeries: []core.SeriesPoint{
			{Label: "2024-03-01", CumulativeExpenses: core.MustMoney("25.5"), CumulativeBudget: core.MustMoney("3.23"),
				BucketExpenses: core.MustMoney("25.5"), BucketBudget: core.MustMoney("3.23")},
		},
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Report", nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("expected missing spreadsheet error, got %v", err)
	}
}

func TestCredentialsFromEnv_Missing(t *testing.T) {
	for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}
	_, err := credentialsFromEnv(context.Background(), log.Discard())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestCredentialsFromEnv_File(t *testing.T) {
	path := t.TempDir() + "/sa.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", path)

	data, err := credentialsFromEnv(context.Background(), log.Discard())
	require.NoError(t, err)
	assert.Contains(t, string(data), "service_account")
}

func TestReportValues(t *testing.T) {
	values := reportValues(sampleReport())

	assert.Equal(t, []any{"Monthly report", "2024-03-01", "2024-03-31"}, values[0])
	assert.Equal(t, []any{"Budget usage %", "25.50"}, values[4])
	assert.Equal(t, []any{"Food", "100.00", "25.50", "25.50", "0.00", 3}, values[9])
	// undefined usage is left blank
	assert.Equal(t, []any{"Gifts", "0.00", "0.00", "", "0.00", 0}, values[10])
	assert.Equal(t, []any{"Date", "Expenses", "Budget", "dayExpenses", "dayBudget"}, values[12])
	assert.Equal(t, []any{"2024-03-01", "25.50", "3.23", "25.50", "3.23"}, values[13])
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Report 2024'", quoteSheet("Report 2024"))
	assert.Equal(t, "'Bob''s'", quoteSheet("Bob's"))
}

type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	added   []string
	cleared int
	updated *gsheet.ValueRange
	rng     string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		var sheets []map[string]any
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id", "sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				f.titles = append(f.titles, rq.AddSheet.Properties.Title)
			}
		}
		w.Write([]byte(`{"spreadsheetId":"sheet-id"}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.cleared++
		w.Write([]byte(`{"spreadsheetId":"sheet-id"}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.updated = &vr
		f.rng = path[strings.Index(path, "/values/")+len("/values/"):]
		w.Write([]byte(`{"spreadsheetId":"sheet-id"}`))
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sheet-id", "", log.Discard(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestClient_Export(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	c := newTestClient(t, fake)

	ref, err := c.Export(context.Background(), sampleReport())
	require.NoError(t, err)

	rows := len(reportValues(sampleReport()))
	assert.Equal(t, "'Report 2 2024-03-01 2024-03-31'!A1:F"+strconv.Itoa(rows), ref)
	assert.Equal(t, []string{"Report 2 2024-03-01 2024-03-31"}, fake.added)
	assert.Equal(t, 1, fake.cleared)
	require.NotNil(t, fake.updated)
	assert.Len(t, fake.updated.Values, rows)
	assert.Equal(t, ref, fake.rng)

	// second export reuses the tab
	_, err = c.Export(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Len(t, fake.added, 1)
	assert.Equal(t, 2, fake.cleared)
}

func TestClient_ExportKeepsUsersApart(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	c := newTestClient(t, fake)

	first := sampleReport()
	first.UserID = 1
	second := sampleReport()
	second.UserID = 2

	refFirst, err := c.Export(context.Background(), first)
	require.NoError(t, err)
	refSecond, err := c.Export(context.Background(), second)
	require.NoError(t, err)

	assert.NotEqual(t, refFirst, refSecond)
	assert.Equal(t, []string{"Report 1 2024-03-01 2024-03-31", "Report 2 2024-03-01 2024-03-31"}, fake.added)
	assert.NotEqual(t, c.sheetName(first), c.sheetName(second))
}
