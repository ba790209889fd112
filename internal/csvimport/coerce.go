package csvimport

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
)

// numericPrefix matches the leading number of a cleaned amount. Trailing
// text such as a currency code is ignored.
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// slashDate matches D/M/YYYY or M/D/YYYY with one or two digit fields.
var slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

// isoLayouts are tried before the slash formats.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	model.DateLayout,
	"2006-1-2",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// CoerceAmount converts a statement amount such as "$1,234.56" or "-12.00"
// into a non-negative number. Dollar signs and thousands separators are
// removed first. It reports false when no number can be read.
func CoerceAmount(value string) (float64, bool) {
	cleaned := strings.ReplaceAll(value, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	match := numericPrefix.FindString(cleaned)
	if match == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(match)
	if err != nil {
		f, ferr := strconv.ParseFloat(match, 64)
		if ferr != nil {
			return 0, false
		}
		d = decimal.NewFromFloat(f)
	}

	amount, _ := d.Abs().Float64()
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return 0, false
	}
	return amount, true
}

// CoerceDate normalizes a date string to YYYY-MM-DD. ISO dates are tried
// first, then MM/DD/YYYY, then DD/MM/YYYY when the first field cannot be a
// month.
func CoerceDate(value string) (string, bool) {
	t, ok := ParseDate(value)
	if !ok {
		return "", false
	}
	return t.Format(model.DateLayout), true
}

// ParseDate is CoerceDate returning the calendar day as a time in UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return model.Day(t), true
		}
	}

	m := slashDate.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, false
	}

	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if t, ok := calendarDate(year, first, second); ok {
		return t, true
	}
	if t, ok := calendarDate(year, second, first); ok {
		return t, true
	}
	return time.Time{}, false
}

// calendarDate builds a date, rejecting values time.Date would roll over.
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
