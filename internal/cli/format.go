package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"EUR": "€",
	"GBP": "£",
}

// cryptoCurrencies are shown with eight decimal places.
var cryptoCurrencies = map[string]bool{
	"BTC": true,
	"ETH": true,
	"ICP": true,
}

// FormatMoney renders an amount with thousands separators. Fiat amounts get
// their symbol and two decimals; crypto amounts get eight decimals and the code.
func FormatMoney(amount float64, currency string) string {
	currency = strings.ToUpper(currency)
	if cryptoCurrencies[currency] {
		return groupThousands(decimal.NewFromFloat(amount).StringFixed(8)) + " " + currency
	}

	s := groupThousands(decimal.NewFromFloat(amount).StringFixed(2))
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	symbol, ok := currencySymbols[currency]
	if !ok && currency != "" {
		s = s + " " + currency
	} else {
		if !ok {
			symbol = "$"
		}
		s = symbol + s
	}
	if negative {
		s = "-" + s
	}
	return s
}

// FormatPoints renders a point count rounded to whole points.
func FormatPoints(points float64) string {
	return groupThousands(decimal.NewFromFloat(points).Round(0).String())
}

// FormatPercent renders a signed percentage with one decimal.
func FormatPercent(pct float64) string {
	s := decimal.NewFromFloat(pct).StringFixed(1) + "%"
	if pct > 0 {
		s = "+" + s
	}
	return s
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// Table writes aligned columns through a tabwriter.
type Table struct {
	w *tabwriter.Writer
}

// NewTable starts a table on w and writes the header row.
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{w: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	t.Row(toAny(headers)...)
	return t
}

// Row writes one row.
func (t *Table) Row(cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprint(c)
	}
	_, _ = fmt.Fprintln(t.w, strings.Join(parts, "\t"))
}

// Flush writes the buffered table.
func (t *Table) Flush() error {
	return t.w.Flush()
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
