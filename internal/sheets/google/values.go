package google

import (
	"encoding/json"
	"fmt"

	"bilancio/internal/core"
	"bilancio/internal/report"
)

// reportValues lays out r as a block of rows: summary, category breakdown
// and time series, separated by empty rows.
func reportValues(r core.Report) [][]any {
	values := [][]any{
		{fmt.Sprintf("%s report", r.Kind.Label()), r.StartDate.String(), r.EndDate.String()},
		{"Total budget", r.TotalBudget.String()},
		{"Total expenses", r.TotalExpenses.String()},
		{"Total savings", r.TotalSavings.String()},
		{"Budget usage %", r.GlobalUsagePercentage.String()},
		{"Dominant category", r.DominantCategory, r.DominantCategoryAmount.String()},
		{"Over budget", r.OverBudgetCategoriesCount, r.TotalOverBudgetAmount.String()},
		{},
		{"Category", "Budget", "Expenses", "Usage %", "Over budget", "Transactions"},
	}
	for _, row := range report.DetailRows(r.CategoryDetails) {
		values = append(values, []any{
			row[report.KeyName],
			cellValue(row[report.KeyBudget]),
			cellValue(row[report.KeyExpenses]),
			cellValue(row[report.KeyUsagePercentage]),
			cellValue(row[report.KeyOverBudgetAmount]),
			row[report.KeyTransactionCount],
		})
	}

	bucketExpenses, bucketBudget := report.KeyDayExpenses, report.KeyDayBudget
	if r.Kind == core.KindAnnual {
		bucketExpenses, bucketBudget = report.KeyMonthExpenses, report.KeyMonthBudget
	}
	values = append(values, []any{}, []any{"Date", "Expenses", "Budget", bucketExpenses, bucketBudget})
	for _, row := range report.SeriesRows(r.Kind, r.TimeSeries) {
		values = append(values, []any{
			row[report.KeyDate],
			cellValue(row[report.KeyExpenses]),
			cellValue(row[report.KeyBudget]),
			cellValue(row[bucketExpenses]),
			cellValue(row[bucketBudget]),
		})
	}
	return values
}

func cellValue(v any) any {
	switch v := v.(type) {
	case nil:
		return ""
	case json.Number:
		return v.String()
	}
	return v
}
