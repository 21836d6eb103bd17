package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	yearMonthLayout = "2006-01"
)

type (
	UserID     int64
	CategoryID int64

	// Date is a civil calendar date without time or location.
	// It is comparable and safe to use as a map key.
	Date struct {
		Year  int
		Month time.Month
		Day   int
	}

	// YearMonth identifies a calendar month.
	YearMonth struct {
		Year  int
		Month time.Month
	}

	Category struct {
		ID     CategoryID
		UserID UserID
		Name   string
	}

	// Expense is a single recorded spending. Records are never mutated by the
	// report engine.
	Expense struct {
		ID           int64
		UserID       UserID
		CategoryID   CategoryID
		CategoryName string
		Date         Date
		Amount       Money
		Description  string
	}

	// Budget is the amount planned for one category in one month.
	Budget struct {
		ID         int64
		UserID     UserID
		CategoryID CategoryID
		Month      YearMonth
		Amount     Money
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidUser      = errors.New("invalid user")
	ErrNotFound         = errors.New("not found")
	ErrDescriptionLimit = errors.New("description too long (max 200 characters)")
)

// NewDate creates a Date from year, month, day. Overflowing values are
// normalized the way time.Date does (Feb 30 -> Mar 1 or 2).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf drops the clock part of t, keeping t's own calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	if d.Month < time.January || d.Month > time.December {
		return ErrInvalidMonth
	}
	if d.Day < 1 || d.Day > d.YearMonth().Days() {
		return ErrInvalidDay
	}
	return nil
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }
func (d Date) After(o Date) bool  { return d.Time().After(o.Time()) }

// Within reports whether d lies in the inclusive range [start, end].
func (d Date) Within(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year, Month: d.Month}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(yearMonthLayout, strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) FirstDay() Date {
	return Date{Year: ym.Year, Month: ym.Month, Day: 1}
}

func (ym YearMonth) LastDay() Date {
	return NewDate(ym.Year, ym.Month+1, 0)
}

// Days returns the number of days in the month (28-31).
func (ym YearMonth) Days() int {
	return ym.LastDay().Day
}

func (ym YearMonth) Next() YearMonth {
	return NewDate(ym.Year, ym.Month+1, 1).YearMonth()
}

func (ym YearMonth) After(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year > o.Year
	}
	return ym.Month > o.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	if c.UserID <= 0 {
		return ErrInvalidUser
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	if e.UserID <= 0 {
		return ErrInvalidUser
	}
	if len(e.Description) > 200 {
		return ErrDescriptionLimit
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Month.Month < time.January || b.Month.Month > time.December {
		return ErrInvalidMonth
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if b.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	if b.UserID <= 0 {
		return ErrInvalidUser
	}
	return nil
}
