package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the canonical on-disk date layout.
const DateFormat = "2006-01-02"

// Transaction is a canonical bank card transaction.
type Transaction struct {
	ID          string // assigned by storage on insert
	Seq         int64  // insertion order, assigned by storage on insert
	Date        time.Time
	Description string
	Amount      decimal.Decimal // sign as given by the source
	BankID      string          // empty when the source has no stable identifier
	Source      string          // file or upload the record came from
	ImportedAt  time.Time
}

// HasBankID reports whether the source supplied a bank-assigned identifier.
func (t Transaction) HasBankID() bool {
	return t.BankID != ""
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the absolute number of calendar days between a and b.
func DaysBetween(a, b time.Time) int {
	diff := Day(a).Sub(Day(b))
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

// RawRow is one spreadsheet row as handed over by the extractor.
type RawRow struct {
	Line    int // 1-based line in the source sheet
	Columns []string
	Values  []any
}

// Get returns the value under column. Header names match exactly first,
// then ignoring case and surrounding whitespace.
func (r RawRow) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.value(i)
		}
	}
	want := strings.TrimSpace(column)
	for i, c := range r.Columns {
		if strings.EqualFold(strings.TrimSpace(c), want) {
			return r.value(i)
		}
	}
	return nil, false
}

func (r RawRow) value(i int) (any, bool) {
	if i >= len(r.Values) {
		return nil, true
	}
	return r.Values[i], true
}
