// Package core provides the domain records shared by the report engine and
// its collaborators.
//
// This file contains the Money and Percentage helpers. Amounts are fixed
// precision decimals; every rounding step is half-up to two fractional digits.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the number of fractional digits kept after rounding.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Money is an immutable decimal amount.
// The zero value is a valid amount of 0.00.
type Money struct {
	amount decimal.Decimal
}

// Zero is 0.00.
var Zero = Money{}

// NewMoney wraps a decimal without rounding it.
func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d}
}

// MoneyFromCents builds an amount from a count of hundredths.
func MoneyFromCents(cents int64) Money {
	return Money{amount: decimal.New(cents, -moneyPlaces)}
}

// MustMoney parses s and panics on error. Intended for tests and constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("core: invalid money literal " + s)
	}
	return Money{amount: d}
}

// ParseMoney converts a user supplied decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Only strictly positive amounts
// are accepted.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,345") -> 12.35
//	ParseMoney("-1")     -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		parts[0] = "0"
	}
	s = parts[0]
	if len(parts) == 2 && parts[1] != "" {
		s += "." + parts[1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	m := Money{amount: d}.Round2()
	if !m.IsPositive() {
		return Zero, ErrInvalidAmount
	}
	return m, nil
}

func (m Money) Add(o Money) Money { return Money{amount: m.amount.Add(o.amount)} }

func (m Money) Sub(o Money) Money { return Money{amount: m.amount.Sub(o.amount)} }

// Cmp returns -1, 0 or +1 like decimal.Cmp.
func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }

// Equal compares numerically, so 10 equals 10.00.
func (m Money) Equal(o Money) bool { return m.amount.Equal(o.amount) }

func (m Money) GreaterThan(o Money) bool { return m.amount.GreaterThan(o.amount) }

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// DivRound splits the amount in n equal parts, rounding half-up to 2 digits.
// A non positive n yields Zero instead of failing.
func (m Money) DivRound(n int) Money {
	if n <= 0 {
		return Zero
	}
	return Money{amount: m.amount.DivRound(decimal.NewFromInt(int64(n)), moneyPlaces)}
}

// Round2 rounds half-up to two fractional digits.
func (m Money) Round2() Money {
	return Money{amount: m.amount.Round(moneyPlaces)}
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// Cents returns the amount in hundredths, rounding half-up.
func (m Money) Cents() int64 {
	return m.amount.Mul(hundred).Round(0).IntPart()
}

// String always renders two fractional digits ("12.50").
func (m Money) String() string {
	return m.amount.StringFixed(moneyPlaces)
}

// MarshalJSON renders the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	m.amount = d
	return nil
}

// Percentage is a decimal percentage that may be undefined (null).
type Percentage struct {
	value decimal.Decimal
	valid bool
}

// PercentOf returns round2(part / whole * 100). When whole is not positive
// the percentage is undefined.
func PercentOf(part, whole Money) Percentage {
	if !whole.IsPositive() {
		return Percentage{}
	}
	return Percentage{
		value: part.amount.Mul(hundred).DivRound(whole.amount, moneyPlaces),
		valid: true,
	}
}

// FullPercentage is a defined 100%.
func FullPercentage() Percentage {
	return Percentage{value: hundred, valid: true}
}

// ZeroPercentage is a defined 0%.
func ZeroPercentage() Percentage {
	return Percentage{value: decimal.Zero, valid: true}
}

// NewPercentage wraps a defined value.
func NewPercentage(d decimal.Decimal) Percentage {
	return Percentage{value: d, valid: true}
}

func (p Percentage) Valid() bool              { return p.valid }
func (p Percentage) Decimal() decimal.Decimal { return p.value }

// Equal reports whether both are undefined or both hold the same value.
func (p Percentage) Equal(o Percentage) bool {
	if p.valid != o.valid {
		return false
	}
	return !p.valid || p.value.Equal(o.value)
}

// String renders "" for an undefined percentage.
func (p Percentage) String() string {
	if !p.valid {
		return ""
	}
	return p.value.StringFixed(moneyPlaces)
}

func (p Percentage) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return []byte("null"), nil
	}
	return []byte(p.String()), nil
}

func (p *Percentage) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Percentage{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*p = Percentage{value: d, valid: true}
	return nil
}
