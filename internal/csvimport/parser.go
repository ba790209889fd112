// Package csvimport turns uploaded card statements in CSV form into transactions.
//
// Parsing is deliberately forgiving. Problems with individual rows are
// collected as warnings so the rest of the file can still be imported.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// ParseResult holds the header row, the well-formed data rows keyed by
// header, and any warnings raised along the way.
type ParseResult struct {
	Headers  []string            `json:"headers"`
	Rows     []map[string]string `json:"rows"`
	Warnings []string            `json:"warnings"`
}

// Values returns a row's values in header order.
func (r *ParseResult) Values(row map[string]string) []string {
	values := make([]string, 0, len(r.Headers))
	for _, h := range r.Headers {
		values = append(values, row[h])
	}
	return values
}

// ParseCSV parses CSV text. The delimiter (comma, semicolon, or tab) is
// sniffed from the header line. Blank lines are ignored and rows whose column
// count differs from the header are skipped with a warning.
func ParseCSV(text string) *ParseResult {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return &ParseResult{
			Headers:  []string{},
			Rows:     []map[string]string{},
			Warnings: []string{"CSV file is empty"},
		}
	}

	delimiter := DetectDelimiter(lines[0])
	result := &ParseResult{
		Headers:  splitLine(lines[0], delimiter),
		Rows:     make([]map[string]string, 0, len(lines)-1),
		Warnings: []string{},
	}

	for i := 1; i < len(lines); i++ {
		values := splitLine(lines[i], delimiter)
		if len(values) != len(result.Headers) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Row %d: Column count mismatch (expected %d, got %d)", i+1, len(result.Headers), len(values)))
			continue
		}

		row := make(map[string]string, len(values))
		for idx, header := range result.Headers {
			row[header] = values[idx]
		}
		result.Rows = append(result.Rows, row)
	}

	return result
}

// DetectDelimiter picks tab when it outnumbers both commas and semicolons,
// otherwise comma unless semicolons outnumber commas.
func DetectDelimiter(line string) rune {
	commas := strings.Count(line, ",")
	semicolons := strings.Count(line, ";")
	tabs := strings.Count(line, "\t")

	switch {
	case tabs > commas && tabs > semicolons:
		return '\t'
	case commas >= semicolons:
		return ','
	default:
		return ';'
	}
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitLine splits one line on delimiter. Quoted fields may contain the
// delimiter; a line the csv reader rejects falls back to a plain split.
func splitLine(line string, delimiter rune) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	fields, err := r.Read()
	if err != nil {
		fields = strings.Split(line, string(delimiter))
	}

	for i, f := range fields {
		fields[i] = cleanCell(f)
	}
	return fields
}

// cleanCell trims whitespace and a single pair of surrounding double quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return s
}
