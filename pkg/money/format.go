package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency carries the locale formatting metadata for a currency.
type Currency struct {
	Code              string
	Symbol            string
	Precision         int32
	ThousandSeparator string
	DecimalSeparator  string
	SwapSymbol        bool // symbol trails the amount (e.g. "1.000,00 €")
}

// EUR and USD cover the built-in defaults; everything else comes from company settings.
var (
	USD = Currency{Code: "USD", Symbol: "$", Precision: 2, ThousandSeparator: ",", DecimalSeparator: "."}
	EUR = Currency{Code: "EUR", Symbol: "€", Precision: 2, ThousandSeparator: ".", DecimalSeparator: ",", SwapSymbol: true}
)

// Format renders the value with the currency's separators and symbol placement.
func Format(value decimal.Decimal, currency Currency) string {
	formatted := group(value, currency)
	if currency.Symbol == "" {
		return formatted + " " + currency.Code
	}
	if currency.SwapSymbol {
		return formatted + " " + currency.Symbol
	}
	return currency.Symbol + formatted
}

// FormatValue renders the bare number without symbol or code.
func FormatValue(value decimal.Decimal, currency Currency) string {
	return group(value, currency)
}

// FormatValueNoTrailingZeroes renders the bare number with trailing decimal
// zeroes trimmed ("10.50" -> "10.5", "10.00" -> "10").
func FormatValueNoTrailingZeroes(value decimal.Decimal, currency Currency) string {
	formatted := group(value, currency)
	if currency.DecimalSeparator == "" || !strings.Contains(formatted, currency.DecimalSeparator) {
		return formatted
	}
	formatted = strings.TrimRight(formatted, "0")
	return strings.TrimSuffix(formatted, currency.DecimalSeparator)
}

func group(value decimal.Decimal, currency Currency) string {
	precision := currency.Precision
	if precision <= 0 {
		precision = Precision
	}
	fixed := value.Round(precision).StringFixed(precision)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(currency.ThousandSeparator)
		}
		b.WriteRune(r)
	}

	out := b.String()
	if frac != "" {
		sep := currency.DecimalSeparator
		if sep == "" {
			sep = "."
		}
		out += sep + frac
	}
	if negative {
		out = "-" + out
	}
	return out
}
