package report

import (
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// Assemble computes the report level figures from an aggregation and its
// series. The dominant category is the first category, in the order of
// agg.Categories, whose expenses are strictly greater than all previous ones.
func Assemble(user core.UserID, p Period, agg Aggregation, series []core.SeriesPoint, generatedAt time.Time) core.Report {
	r := core.Report{
		ID:              uuid.New(),
		UserID:          user,
		Kind:            p.Kind,
		StartDate:       p.Start,
		EndDate:         p.End,
		GeneratedAt:     generatedAt,
		CategoryDetails: agg.Categories,
		TimeSeries:      series,
	}

	for _, ct := range agg.Categories {
		r.TotalBudget = r.TotalBudget.Add(ct.Budget)
		r.TotalExpenses = r.TotalExpenses.Add(ct.Expenses)
		if ct.Expenses.GreaterThan(r.DominantCategoryAmount) {
			r.DominantCategory = ct.Name
			r.DominantCategoryAmount = ct.Expenses
		}
		if ct.IsOverBudget() {
			r.OverBudgetCategoriesCount++
			r.TotalOverBudgetAmount = r.TotalOverBudgetAmount.Add(ct.OverBudgetAmount)
		}
	}

	r.TotalSavings = r.TotalBudget.Sub(r.TotalExpenses)
	r.GlobalUsagePercentage = core.PercentOf(r.TotalExpenses, r.TotalBudget)
	if !r.GlobalUsagePercentage.Valid() {
		r.GlobalUsagePercentage = core.ZeroPercentage()
	}

	if r.CategoryDetails == nil {
		r.CategoryDetails = []core.CategoryTotals{}
	}
	if r.TimeSeries == nil {
		r.TimeSeries = []core.SeriesPoint{}
	}
	return r
}
