package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{input: "12.50", want: 12.5, wantOK: true},
		{input: "$1,234.56", want: 1234.56, wantOK: true},
		{input: "-45.00", want: 45, wantOK: true},
		{input: "  $ 7 ", want: 7, wantOK: true},
		{input: "19.99 USD", want: 19.99, wantOK: true},
		{input: ".5", want: 0.5, wantOK: true},
		{input: "0", want: 0, wantOK: true},
		{input: "abc", wantOK: false},
		{input: "", wantOK: false},
		{input: "$", wantOK: false},
		{input: "USD 10", wantOK: false},
		{input: "1e400", wantOK: false},
		{input: "-1e999 USD", wantOK: false},
		{input: "1.5e2", want: 150, wantOK: true},
	}

	for _, tt := range tests {
		got, ok := CoerceAmount(tt.input)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.input)
		if tt.wantOK {
			assert.InDelta(t, tt.want, got, 1e-9, "input %q", tt.input)
		}
	}
}

func TestCoerceDate(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{input: "2024-01-15", want: "2024-01-15", wantOK: true},
		{input: "2024-01-15T18:30:00Z", want: "2024-01-15", wantOK: true},
		{input: "2024-01-15 09:00:00", want: "2024-01-15", wantOK: true},
		{input: "01/15/2024", want: "2024-01-15", wantOK: true},
		{input: "1/5/2024", want: "2024-01-05", wantOK: true},
		{input: "15/01/2024", want: "2024-01-15", wantOK: true},
		{input: "03/04/2024", want: "2024-03-04", wantOK: true},
		{input: "Jan 5, 2024", want: "2024-01-05", wantOK: true},
		{input: "02/30/2024", wantOK: false},
		{input: "13/13/2024", wantOK: false},
		{input: "yesterday", wantOK: false},
		{input: "", wantOK: false},
		{input: "2024-13-01", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := CoerceDate(tt.input)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}
