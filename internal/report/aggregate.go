package report

import (
	"sort"

	"bilancio/internal/core"
)

// Aggregation is the output of Aggregate. DailyExpenses and MonthlyBudgets
// feed BuildSeries.
type Aggregation struct {
	Categories     []core.CategoryTotals
	DailyExpenses  map[core.Date]core.Money
	MonthlyBudgets map[core.YearMonth]core.Money
}

type budgetKey struct {
	category core.CategoryID
	month    core.YearMonth
}

// Aggregate folds budgets and expenses of the period into per category totals.
//
// Every category in categories appears in the result, even without activity.
// Expenses whose category is not listed get their own entry named after the
// expense. Budgets are only counted for listed categories; when several
// budgets exist for the same (category, month) the first one wins.
// Categories are sorted by name, then id.
func Aggregate(p Period, categories []core.Category, budgets []core.Budget, expenses []core.Expense) Aggregation {
	totals := make(map[core.CategoryID]*core.CategoryTotals, len(categories))
	for _, c := range categories {
		if _, ok := totals[c.ID]; ok {
			continue
		}
		totals[c.ID] = &core.CategoryTotals{CategoryID: c.ID, Name: c.Name}
	}

	monthly := make(map[core.YearMonth]core.Money)
	lookup := indexBudgets(budgets)
	for _, ym := range p.Months() {
		for id, ct := range totals {
			b, ok := lookup[budgetKey{category: id, month: ym}]
			if !ok {
				continue
			}
			ct.Budget = ct.Budget.Add(b)
			monthly[ym] = monthly[ym].Add(b)
		}
	}

	daily := make(map[core.Date]core.Money)
	for _, e := range expenses {
		if !p.Contains(e.Date) {
			continue
		}
		ct, ok := totals[e.CategoryID]
		if !ok {
			ct = &core.CategoryTotals{CategoryID: e.CategoryID, Name: e.CategoryName}
			totals[e.CategoryID] = ct
		}
		ct.Expenses = ct.Expenses.Add(e.Amount)
		ct.TransactionCount++
		daily[e.Date] = daily[e.Date].Add(e.Amount)
	}

	out := make([]core.CategoryTotals, 0, len(totals))
	for _, ct := range totals {
		out = append(out, withUsage(*ct))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CategoryID < out[j].CategoryID
	})

	return Aggregation{Categories: out, DailyExpenses: daily, MonthlyBudgets: monthly}
}

func indexBudgets(budgets []core.Budget) map[budgetKey]core.Money {
	idx := make(map[budgetKey]core.Money, len(budgets))
	for _, b := range budgets {
		k := budgetKey{category: b.CategoryID, month: b.Month}
		if _, ok := idx[k]; ok {
			continue
		}
		idx[k] = b.Amount
	}
	return idx
}

// withUsage fills usage percentage and over budget amount.
// A category without budget but with expenses is 100% used and entirely over budget.
func withUsage(ct core.CategoryTotals) core.CategoryTotals {
	switch {
	case ct.Budget.IsPositive():
		ct.UsagePercentage = core.PercentOf(ct.Expenses, ct.Budget)
		ct.OverBudgetAmount = core.Zero
		if ct.Expenses.GreaterThan(ct.Budget) {
			ct.OverBudgetAmount = ct.Expenses.Sub(ct.Budget)
		}
	case ct.Expenses.IsPositive():
		ct.UsagePercentage = core.FullPercentage()
		ct.OverBudgetAmount = ct.Expenses
	default:
		ct.OverBudgetAmount = core.Zero
	}
	return ct
}
