// Package normalize turns raw spreadsheet rows into canonical transactions.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// Logical field names used in errors.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
)

// Mapping names the spreadsheet column holding each logical field.
type Mapping struct {
	Date        string
	Description string
	Amount      string
	BankID      string // optional
}

// Required returns the columns every source must provide.
func (m Mapping) Required() []string {
	return []string{m.Date, m.Description, m.Amount}
}

// Essential returns the mapped columns, including the bank identifier when set.
func (m Mapping) Essential() []string {
	cols := m.Required()
	if m.BankID != "" {
		cols = append(cols, m.BankID)
	}
	return cols
}

// Missing returns the required columns absent from header.
func (m Mapping) Missing(header []string) []string {
	headerRow := model.RawRow{Columns: header}
	var missing []string
	for _, col := range m.Required() {
		if _, ok := headerRow.Get(col); !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// Normalize converts one raw row into a Transaction. It fails with
// *MalformedRowError when the date or amount does not parse or the
// description is blank.
func Normalize(row model.RawRow, m Mapping) (model.Transaction, error) {
	dateVal, _ := row.Get(m.Date)
	date, err := ParseDate(dateVal)
	if err != nil {
		return model.Transaction{}, &MalformedRowError{Row: row.Line, Field: FieldDate, Value: dateVal, Err: err}
	}

	descVal, _ := row.Get(m.Description)
	desc := CleanDescription(text(descVal))
	if desc == "" {
		return model.Transaction{}, &MalformedRowError{Row: row.Line, Field: FieldDescription, Err: ErrEmptyDescription}
	}

	amountVal, _ := row.Get(m.Amount)
	amount, err := ParseAmount(amountVal)
	if err != nil {
		return model.Transaction{}, &MalformedRowError{Row: row.Line, Field: FieldAmount, Value: amountVal, Err: err}
	}

	var bankID string
	if m.BankID != "" {
		v, _ := row.Get(m.BankID)
		bankID = strings.TrimSpace(text(v))
	}

	return model.Transaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		BankID:      bankID,
	}, nil
}

// CleanDescription trims s and collapses internal whitespace runs to one space.
// Case is preserved.
func CleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
