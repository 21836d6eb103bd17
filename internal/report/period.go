// Package report turns raw expenses, budgets and categories into a
// financial summary for a period.
//
// Resolve, Aggregate, BuildSeries and Assemble are pure functions; Generator
// wires them to the data sources and the report store.
package report

import (
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

// Request selects the period of a report. Which fields are required depends
// on Kind: Year and Month for MONTHLY, Year for ANNUAL, Start and End for CUSTOM.
type Request struct {
	Kind  core.ReportKind
	Year  int
	Month int
	Start core.Date
	End   core.Date
}

// ParseRequest builds a Request from its wire form. Empty dates stay zero.
func ParseRequest(kind string, year, month int, start, end string) (Request, error) {
	k, err := core.ParseReportKind(kind)
	if err != nil {
		return Request{}, err
	}
	r := Request{Kind: k, Year: year, Month: month}
	if start != "" {
		if r.Start, err = core.ParseDate(start); err != nil {
			return Request{}, err
		}
	}
	if end != "" {
		if r.End, err = core.ParseDate(end); err != nil {
			return Request{}, err
		}
	}
	return r, nil
}

// IsRequestError reports whether err was caused by a malformed request
// rather than by a failing collaborator.
func IsRequestError(err error) bool {
	return errors.Is(err, core.ErrInvalidRange) ||
		errors.Is(err, core.ErrMissingRequiredField) ||
		errors.Is(err, core.ErrUnknownKind) ||
		errors.Is(err, core.ErrInvalidDate)
}

// Period is a canonical inclusive date range.
type Period struct {
	Kind  core.ReportKind
	Start core.Date
	End   core.Date
}

// Resolve validates r and turns it into a Period.
func Resolve(r Request) (Period, error) {
	switch r.Kind {
	case core.KindMonthly:
		if r.Year == 0 || r.Month == 0 {
			return Period{}, fmt.Errorf("%w: monthly report needs year and month", core.ErrMissingRequiredField)
		}
		if r.Month < 1 || r.Month > 12 {
			return Period{}, fmt.Errorf("%w: month %d out of range", core.ErrMissingRequiredField, r.Month)
		}
		ym := core.YearMonth{Year: r.Year, Month: time.Month(r.Month)}
		return Period{Kind: r.Kind, Start: ym.FirstDay(), End: ym.LastDay()}, nil
	case core.KindAnnual:
		if r.Year == 0 {
			return Period{}, fmt.Errorf("%w: annual report needs year", core.ErrMissingRequiredField)
		}
		return Period{
			Kind:  r.Kind,
			Start: core.NewDate(r.Year, time.January, 1),
			End:   core.NewDate(r.Year, time.December, 31),
		}, nil
	case core.KindCustom:
		if r.Start.IsZero() || r.End.IsZero() {
			return Period{}, fmt.Errorf("%w: custom report needs start and end date", core.ErrMissingRequiredField)
		}
		for _, d := range []core.Date{r.Start, r.End} {
			if err := d.Validate(); err != nil {
				return Period{}, fmt.Errorf("%w: %d-%02d-%02d: %w", core.ErrInvalidDate, d.Year, int(d.Month), d.Day, err)
			}
		}
		if r.End.Before(r.Start) {
			return Period{}, fmt.Errorf("%w: %s < %s", core.ErrInvalidRange, r.End, r.Start)
		}
		return Period{Kind: r.Kind, Start: r.Start, End: r.End}, nil
	}
	return Period{}, fmt.Errorf("%w: %q", core.ErrUnknownKind, r.Kind)
}

// Months returns every calendar month touched by the period, in order.
func (p Period) Months() []core.YearMonth {
	var out []core.YearMonth
	last := p.End.YearMonth()
	for ym := p.Start.YearMonth(); !ym.After(last); ym = ym.Next() {
		out = append(out, ym)
	}
	return out
}

// Days returns every date of the period, in order.
func (p Period) Days() []core.Date {
	var out []core.Date
	for d := p.Start; !d.After(p.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Contains reports whether d lies inside the period.
func (p Period) Contains(d core.Date) bool {
	return d.Within(p.Start, p.End)
}

func (p Period) String() string {
	return fmt.Sprintf("%s %s..%s", p.Kind, p.Start, p.End)
}
