package report

import (
	"encoding/json"

	"bilancio/internal/core"
)

// Row is a flat generic record handed to renderers and exporters.
// Values are json.Number, string, int or nil so no precision is lost.
type Row = map[string]any

// Row keys.
const (
	KeyName             = "name"
	KeyBudget           = "budget"
	KeyExpenses         = "expenses"
	KeyUsagePercentage  = "usagePercentage"
	KeyOverBudgetAmount = "overBudgetAmount"
	KeyTransactionCount = "transactionCount"

	KeyDate          = "date"
	KeyMonthExpenses = "monthExpenses"
	KeyMonthBudget   = "monthBudget"
	KeyDayExpenses   = "dayExpenses"
	KeyDayBudget     = "dayBudget"
)

// DetailRows flattens category totals, preserving their order.
func DetailRows(details []core.CategoryTotals) []Row {
	rows := make([]Row, 0, len(details))
	for _, d := range details {
		rows = append(rows, Row{
			KeyName:             d.Name,
			KeyBudget:           number(d.Budget),
			KeyExpenses:         number(d.Expenses),
			KeyUsagePercentage:  percentage(d.UsagePercentage),
			KeyOverBudgetAmount: number(d.OverBudgetAmount),
			KeyTransactionCount: d.TransactionCount,
		})
	}
	return rows
}

// SeriesRows flattens a series in chronological order. Bucket values are
// keyed monthExpenses/monthBudget for annual reports and dayExpenses/dayBudget
// otherwise.
func SeriesRows(kind core.ReportKind, series []core.SeriesPoint) []Row {
	bucketExpenses, bucketBudget := KeyDayExpenses, KeyDayBudget
	if kind == core.KindAnnual {
		bucketExpenses, bucketBudget = KeyMonthExpenses, KeyMonthBudget
	}
	rows := make([]Row, 0, len(series))
	for _, p := range series {
		rows = append(rows, Row{
			KeyDate:        p.Label,
			KeyExpenses:    number(p.CumulativeExpenses),
			KeyBudget:      number(p.CumulativeBudget),
			bucketExpenses: number(p.BucketExpenses),
			bucketBudget:   number(p.BucketBudget),
		})
	}
	return rows
}

func number(m core.Money) json.Number {
	return json.Number(m.String())
}

func percentage(p core.Percentage) any {
	if !p.Valid() {
		return nil
	}
	return json.Number(p.String())
}
