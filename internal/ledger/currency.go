package ledger

// currency.go converts Brazilian formatted amounts ("R$ 1.234,56") to numbers
// and back.
//
// Amount cells never reject a row. Anything unreadable becomes 0.

import (
	"math"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	currencySymbol = regexp.MustCompile(`R\$\s*`)

	// numberPrefix matches the longest leading number after normalization, so
	// "12.5abc" reads as 12.5 the way a lenient float parser would.
	numberPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
)

// ParseCurrency reads a BRL formatted amount. It strips the R$ symbol and
// surrounding whitespace, drops every "." thousands separator, turns "," into
// the decimal point and parses the leading number. Empty or unparseable input
// returns 0. It never fails.
func ParseCurrency(s string) float64 {
	s = CleanCell(s)
	if s == "" {
		return 0
	}

	s = currencySymbol.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSpace(s)

	m := numberPrefix.FindString(s)
	if m == "" {
		return 0
	}

	d, err := decimal.NewFromString(m)
	if err != nil {
		return 0
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// FormatBRL renders v the way the finance team reads it, e.g. "R$1.234,56".
func FormatBRL(v float64) string {
	cents := decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
	return money.New(cents, money.BRL).Display()
}

// CleanCell removes common spreadsheet export artifacts from a cell: outer
// whitespace, the Excel text-formula wrapper (="value") and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
