package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"bilancio/internal/core"
	"bilancio/internal/ports"
)

// MonthActivity holds the daily spending of one month, ordered by day.
// Labels are day numbers ("1".."31").
type MonthActivity struct {
	Year   int          `json:"year"`
	Month  int          `json:"month"`
	Labels []string     `json:"labels"`
	Values []core.Money `json:"values"`
}

// Statistics answers dashboard questions that do not need a stored report.
type Statistics struct {
	totals   ports.MonthlyTotalsReader
	expenses ports.ExpenseLister
}

func NewStatistics(totals ports.MonthlyTotalsReader, expenses ports.ExpenseLister) *Statistics {
	return &Statistics{totals: totals, expenses: expenses}
}

// LastActiveMonth returns the daily totals of the most recent month with a
// positive total, or core.ErrNotFound when the user never spent anything.
func (s *Statistics) LastActiveMonth(ctx context.Context, user core.UserID) (MonthActivity, error) {
	totals, err := s.totals.MonthlyTotals(ctx, user)
	if err != nil {
		return MonthActivity{}, fmt.Errorf("monthly totals: %w", err)
	}

	var (
		month core.YearMonth
		found bool
	)
	for _, t := range totals {
		if t.Total.IsPositive() {
			month, found = t.Month, true
			break
		}
	}
	if !found {
		return MonthActivity{}, core.ErrNotFound
	}

	expenses, err := s.expenses.ListExpenses(ctx, user, month.FirstDay(), month.LastDay())
	if err != nil {
		return MonthActivity{}, fmt.Errorf("list expenses: %w", err)
	}

	byDay := make(map[int]core.Money)
	for _, e := range expenses {
		if e.Date.YearMonth() != month {
			continue
		}
		byDay[e.Date.Day] = byDay[e.Date.Day].Add(e.Amount)
	}
	days := make([]int, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)

	out := MonthActivity{
		Year:   month.Year,
		Month:  int(month.Month),
		Labels: make([]string, 0, len(days)),
		Values: make([]core.Money, 0, len(days)),
	}
	for _, d := range days {
		out.Labels = append(out.Labels, strconv.Itoa(d))
		out.Values = append(out.Values, byDay[d])
	}
	return out, nil
}
