// Package money implements exact decimal arithmetic for rupee amounts.
//
// No decimal library is available anywhere in the retrieved dependency
// corpus, so amounts are represented as a fixed-point integer of minor
// units (paise) rather than binary floating point. This avoids the
// rounding drift that would otherwise accumulate across invoice line
// items, ledger entries, and daily summaries.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a signed decimal value stored as an integer count of paise
// (1 rupee = 100 paise). The zero value represents ₹0.00.
type Amount struct {
	paise int64
}

// Zero is the additive identity.
var Zero = Amount{}

// FromPaise constructs an Amount from an integer count of paise.
func FromPaise(paise int64) Amount {
	return Amount{paise: paise}
}

// FromRupees constructs an Amount from a float64 rupee value, rounding to
// the nearest paisa using banker's rounding (round-half-to-even).
//
// Callers that already have an exact paise count should use [FromPaise]
// instead — this constructor exists for parsing LLM-extracted numeric
// entities, which arrive as floats.
func FromRupees(rupees float64) Amount {
	return Amount{paise: roundHalfEven(rupees * 100)}
}

// ParseRupees parses a decimal rupee string such as "1234.50" or "-12".
func ParseRupees(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("money: empty amount string")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Zero, fmt.Errorf("money: parse %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero, fmt.Errorf("money: non-finite amount %q", s)
	}
	return FromRupees(f), nil
}

// Paise returns the exact underlying minor-unit count.
func (a Amount) Paise() int64 { return a.paise }

// Rupees returns the amount as a float64, for contexts that need
// approximate arithmetic only (e.g., feeding a template placeholder).
func (a Amount) Rupees() float64 { return float64(a.paise) / 100 }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return Amount{paise: a.paise + b.paise} }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return Amount{paise: a.paise - b.paise} }

// Neg returns -a.
func (a Amount) Neg() Amount { return Amount{paise: -a.paise} }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.paise == 0 }

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.paise > 0 }

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool { return a.paise < 0 }

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.paise < b.paise:
		return -1
	case a.paise > b.paise:
		return 1
	default:
		return 0
	}
}

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.paise > b.paise }

// String renders the amount to two decimal places with a leading minus
// sign for negative values, e.g. "1234.50" or "-12.00". It does not
// include a currency symbol; see [Amount.RupeeString] for TTS-facing text.
func (a Amount) String() string {
	neg := a.paise < 0
	p := a.paise
	if neg {
		p = -p
	}
	rupees := p / 100
	paise := p % 100
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%02d", sign, rupees, paise)
}

// RupeeString renders the amount with a leading rupee symbol, suitable for
// direct inclusion in a spoken response: "₹1234.50".
func (a Amount) RupeeString() string {
	return "₹" + a.String()
}

// roundHalfEven rounds a float64 to the nearest integer, breaking ties
// toward the nearest even integer (banker's rounding), matching the
// rounding rule Design Notes mandate for monetary display.
func roundHalfEven(v float64) int64 {
	floor := math.Floor(v)
	diff := v - floor
	switch {
	case diff < 0.5:
		return int64(floor)
	case diff > 0.5:
		return int64(floor) + 1
	default:
		if int64(floor)%2 == 0 {
			return int64(floor)
		}
		return int64(floor) + 1
	}
}
