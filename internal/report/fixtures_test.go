package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bilancio/internal/core"
)

const testUser core.UserID = 1

func category(id core.CategoryID, name string) core.Category {
	return core.Category{ID: id, UserID: testUser, Name: name}
}

func budget(cat core.CategoryID, year int, month int, amount string) core.Budget {
	return core.Budget{
		UserID:     testUser,
		CategoryID: cat,
		Month:      core.YearMonth{Year: year, Month: time.Month(month)},
		Amount:     core.MustMoney(amount),
	}
}

func expense(cat core.CategoryID, name string, d core.Date, amount string) core.Expense {
	return core.Expense{
		UserID:       testUser,
		CategoryID:   cat,
		CategoryName: name,
		Date:         d,
		Amount:       core.MustMoney(amount),
	}
}

func assertMoney(t *testing.T, want string, got core.Money, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.String(), msgAndArgs...)
}

func monthlyPeriod(t *testing.T, year, month int) Period {
	t.Helper()
	p, err := Resolve(Request{Kind: core.KindMonthly, Year: year, Month: month})
	if err != nil {
		t.Fatal(err)
	}
	return p
}
