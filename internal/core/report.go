package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportKind selects how a period is resolved and how its series is bucketed.
type ReportKind string

const (
	KindMonthly ReportKind = "MONTHLY"
	KindAnnual  ReportKind = "ANNUAL"
	KindCustom  ReportKind = "CUSTOM"
)

var (
	ErrInvalidRange         = errors.New("invalid range: end date before start date")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrUnknownKind          = errors.New("unknown report kind")
)

// ParseReportKind is case insensitive.
func ParseReportKind(s string) (ReportKind, error) {
	k := ReportKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case KindMonthly, KindAnnual, KindCustom:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Label is the human readable name of the kind.
func (k ReportKind) Label() string {
	switch k {
	case KindMonthly:
		return "Monthly"
	case KindAnnual:
		return "Annual"
	case KindCustom:
		return "Custom"
	}
	return string(k)
}

// CategoryTotals is the per category breakdown of a report.
type CategoryTotals struct {
	CategoryID       CategoryID `json:"categoryId"`
	Name             string     `json:"categoryName"`
	Budget           Money      `json:"budget"`
	Expenses         Money      `json:"expenses"`
	UsagePercentage  Percentage `json:"usagePercentage"`
	OverBudgetAmount Money      `json:"overBudgetAmount"`
	TransactionCount int        `json:"transactionCount"`
}

// IsOverBudget reports whether the category spent more than planned.
func (c CategoryTotals) IsOverBudget() bool {
	return c.OverBudgetAmount.IsPositive()
}

// SeriesPoint is one chronological bucket (day or month) of a report.
type SeriesPoint struct {
	Label              string `json:"date"`
	CumulativeExpenses Money  `json:"expenses"`
	CumulativeBudget   Money  `json:"budget"`
	BucketExpenses     Money  `json:"bucketExpenses"`
	BucketBudget       Money  `json:"bucketBudget"`
}

// Report is the immutable summary of a user's finances over a period.
type Report struct {
	ID                        uuid.UUID        `json:"id"`
	UserID                    UserID           `json:"userId"`
	Kind                      ReportKind       `json:"type"`
	StartDate                 Date             `json:"startDate"`
	EndDate                   Date             `json:"endDate"`
	GeneratedAt               time.Time        `json:"generatedAt"`
	TotalBudget               Money            `json:"totalBudget"`
	TotalExpenses             Money            `json:"totalExpenses"`
	TotalSavings              Money            `json:"totalSavings"`
	GlobalUsagePercentage     Percentage       `json:"globalUsagePercentage"`
	DominantCategory          string           `json:"dominantCategory"`
	DominantCategoryAmount    Money            `json:"dominantCategoryAmount"`
	OverBudgetCategoriesCount int              `json:"overBudgetCategoriesCount"`
	TotalOverBudgetAmount     Money            `json:"totalOverBudgetAmount"`
	CategoryDetails           []CategoryTotals `json:"categoryDetails"`
	TimeSeries                []SeriesPoint    `json:"timeSeries"`
}

// SamePeriod reports whether r covers exactly [start, end] for user.
func (r Report) SamePeriod(user UserID, start, end Date) bool {
	return r.UserID == user && r.StartDate == start && r.EndDate == end
}

// MonthTotal is the sum of a user's expenses in one month.
type MonthTotal struct {
	Month YearMonth
	Total Money
}
