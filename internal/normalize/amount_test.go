package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"-45.30", "-45.30"},
		{"-45,30", "-45.30"},
		{"45.3", "45.30"},
		{"+12", "12.00"},
		{"(45.30)", "-45.30"},
		{"(1.234,56)", "-1234.56"},
		{"45,30-", "-45.30"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234.567,89", "1234567.89"},
		{"1,234,567", "1234567.00"},
		{"1 234,56 €", "1234.56"},
		{"$ -7.5", "-7.50"},
		{"1'234.50", "1234.50"},
		{".5", "0.50"},
		{"0,005", "0.01"},
		{"-0.004", "0.00"},
		{float64(-45.3), "-45.30"},
		{3, "3.00"},
		{int64(-2), "-2.00"},
		{decimal.RequireFromString("9.999"), "10.00"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, got.StringFixed(2), "input %v", tt.in)
	}
}

func TestParseAmount_ExactCents(t *testing.T) {
	a, err := ParseAmount("-45,30")
	require.NoError(t, err)
	b, err := ParseAmount(float64(-45.30))
	require.NoError(t, err)
	assert.True(t, a.Equal(b), "%s != %s", a, b)

	c, err := ParseAmount("-45.31")
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestParseAmount_Errors(t *testing.T) {
	bad := []any{
		nil,
		"",
		"  ",
		"abc",
		"12abc",
		"--5",
		"1.2.3,4,5",
		"()",
		"€",
		true,
	}
	for _, in := range bad {
		_, err := ParseAmount(in)
		assert.Error(t, err, "expected error for %v", in)
	}
}
