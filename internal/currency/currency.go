// Package currency decides whether a spreadsheet cell holds a USD amount
// and extracts the numeric value. The accepted surface forms live in a
// single table of (pattern, extractor) pairs so new forms can be added
// without touching the match loop.
package currency

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type rule struct {
	re      *regexp.Regexp
	extract func(string) string
}

var digits = regexp.MustCompile(`[^0-9.]`)

// stripSymbols removes everything but digits and the decimal point.
func stripSymbols(s string) string {
	return digits.ReplaceAllString(s, "")
}

var usdRules = []rule{
	// Bare number, optionally $-prefixed: "10", "$10", "$ 10.50".
	{regexp.MustCompile(`^\$?\s*\d+(\.\d+)?$`), stripSymbols},
	// Trailing unit: "10 USD", "10.50usd".
	{regexp.MustCompile(`(?i)^\d+(\.\d+)?\s*USD$`), stripSymbols},
	// Leading unit: "USD 10", "usd10.50".
	{regexp.MustCompile(`(?i)^USD\s*\d+(\.\d+)?$`), stripSymbols},
	// Trailing dollar sign: "10$", "10.50 $".
	{regexp.MustCompile(`^\d+(\.\d+)?\s*\$$`), stripSymbols},
}

// ParseUSDCell reports whether cell holds a USD amount and returns its
// value. Empty cells, cells with letters other than the USD unit, and
// non-positive amounts are rejected.
func ParseUSDCell(cell string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return decimal.Zero, false
	}
	for _, r := range usdRules {
		if !r.re.MatchString(s) {
			continue
		}
		value, err := decimal.NewFromString(r.extract(s))
		if err != nil || !value.IsPositive() {
			return decimal.Zero, false
		}
		return value, true
	}
	return decimal.Zero, false
}
