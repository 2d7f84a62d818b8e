package normalize

import (
	"errors"
	"fmt"
)

// Parse failure causes wrapped by MalformedRowError.
var (
	ErrMissingValue     = errors.New("missing value")
	ErrEmptyDescription = errors.New("description is empty")
	ErrBadDate          = errors.New("unrecognised date")
	ErrBadAmount        = errors.New("unrecognised amount")
)

// MalformedRowError reports a row that cannot become a Transaction.
// It is recoverable: callers skip the row and carry on with the batch.
type MalformedRowError struct {
	Row   int    // spreadsheet line, 0 if unknown
	Field string // logical field: date, description, amount
	Value any
	Err   error
}

func (e *MalformedRowError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Field, fmt.Sprint(e.Value), e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}
