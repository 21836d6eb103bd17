package report

import "bilancio/internal/core"

// CategoryDetailsView is the payload of the category breakdown chart.
func CategoryDetailsView(r core.Report) map[string]any {
	return map[string]any{
		"categories":            DetailRows(r.CategoryDetails),
		"totalBudget":           number(r.TotalBudget),
		"totalExpenses":         number(r.TotalExpenses),
		"totalSavings":          number(r.TotalSavings),
		"globalUsagePercentage": percentage(r.GlobalUsagePercentage),
	}
}

// TimeSeriesView is the payload of the cumulative line chart.
func TimeSeriesView(r core.Report) map[string]any {
	return map[string]any{
		"series":    SeriesRows(r.Kind, r.TimeSeries),
		"startDate": r.StartDate.String(),
		"endDate":   r.EndDate.String(),
		"type":      r.Kind.Label(),
	}
}
