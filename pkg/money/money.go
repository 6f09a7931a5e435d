package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Precision is the scale of every persisted monetary value.
const Precision = 2

// UnitCostPrecision is the scale unit costs may carry before totals round down to 2.
const UnitCostPrecision = 4

// Round rounds half-up to the standard monetary precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// RoundTo rounds half-up to the requested number of decimal places.
func RoundTo(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Equal reports whether two amounts agree within rounding tolerance.
func Equal(a, b decimal.Decimal) bool {
	return Round(a).Equal(Round(b))
}

// Zero is the canonical zero amount.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// FromFloat builds an amount from a float without premature rounding.
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// ParseAmount parses a localized numeric string, tolerating thousand separators
// and comma decimals ("1.110,50", "1,110.50", "1110.50").
func ParseAmount(value string) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, nil
	}

	lastComma := strings.LastIndex(v, ",")
	lastDot := strings.LastIndex(v, ".")
	switch {
	case lastComma > lastDot:
		// comma decimal: strip dots, swap the comma
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	default:
		v = strings.ReplaceAll(v, ",", "")
	}

	return decimal.NewFromString(v)
}
