package sales

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used whenever a platform omits the currency. For
// catalog endpoints it doubles as the "unknown" placeholder repaired by the
// orchestrator's backfill pass.
const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"CAD": "CA$",
	"AUD": "A$",
	"INR": "₹",
}

// CentsToDecimal converts minor units into a decimal major-unit amount
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DecimalToCents converts a major-unit amount into minor units, rounding half away from zero
func DecimalToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FormatCents renders minor units with the currency symbol when one is known,
// otherwise with the ISO code, e.g. "$12.50" or "SEK 99.00".
func FormatCents(cents int64, currency string) string {
	code := NormalizeCurrency(currency)
	amount := CentsToDecimal(cents)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	if symbol, ok := currencySymbols[code]; ok {
		return sign + symbol + amount.StringFixed(2)
	}
	return sign + code + " " + amount.StringFixed(2)
}

// NormalizeCurrency upper-cases a currency code and falls back to DefaultCurrency
func NormalizeCurrency(currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return DefaultCurrency
	}
	return code
}
