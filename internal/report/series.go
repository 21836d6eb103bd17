package report

import (
	"bilancio/internal/core"
)

// BuildSeries produces the chronological series of the period.
//
// ANNUAL reports get one point per month. Any other kind gets one point per
// day, where the day's budget is the month budget split evenly over the days
// of that month. Cumulative fields never decrease as long as amounts are
// non negative.
func BuildSeries(p Period, daily map[core.Date]core.Money, monthly map[core.YearMonth]core.Money) []core.SeriesPoint {
	if p.Kind == core.KindAnnual {
		return monthlySeries(p, daily, monthly)
	}
	return dailySeries(p, daily, monthly)
}

func monthlySeries(p Period, daily map[core.Date]core.Money, monthly map[core.YearMonth]core.Money) []core.SeriesPoint {
	byMonth := make(map[core.YearMonth]core.Money)
	for d, amount := range daily {
		if !p.Contains(d) {
			continue
		}
		byMonth[d.YearMonth()] = byMonth[d.YearMonth()].Add(amount)
	}

	months := p.Months()
	out := make([]core.SeriesPoint, 0, len(months))
	var cumExpenses, cumBudget core.Money
	for _, ym := range months {
		spent := byMonth[ym]
		budget := monthly[ym]
		cumExpenses = cumExpenses.Add(spent)
		cumBudget = cumBudget.Add(budget)
		out = append(out, core.SeriesPoint{
			Label:              ym.String(),
			CumulativeExpenses: cumExpenses,
			CumulativeBudget:   cumBudget,
			BucketExpenses:     spent,
			BucketBudget:       budget,
		})
	}
	return out
}

func dailySeries(p Period, daily map[core.Date]core.Money, monthly map[core.YearMonth]core.Money) []core.SeriesPoint {
	days := p.Days()
	out := make([]core.SeriesPoint, 0, len(days))

	var (
		cumExpenses, cumBudget core.Money
		current                core.YearMonth
		perDay                 core.Money
	)
	for i, d := range days {
		if ym := d.YearMonth(); i == 0 || ym != current {
			current = ym
			perDay = monthly[ym].DivRound(ym.Days())
		}
		spent := daily[d]
		cumExpenses = cumExpenses.Add(spent)
		cumBudget = cumBudget.Add(perDay)
		out = append(out, core.SeriesPoint{
			Label:              d.String(),
			CumulativeExpenses: cumExpenses,
			CumulativeBudget:   cumBudget,
			BucketExpenses:     spent,
			BucketBudget:       perDay,
		})
	}
	return out
}
