package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// dateLayouts are tried in order. Day-first layouts accept one or two digit
// day and month.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/1/2",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2-1-2006 15:04:05",
}

// Excel serial day numbers accepted for numeric date cells
// (1900-01-01 through 9999-12-31).
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseDate converts a date cell into a UTC calendar date. It accepts
// time.Time values, Excel serial day numbers from numeric cells, and
// day/month/year text with slash, dash or dot separators, plus ISO dates.
// Digits-only text is not a serial: a CSV "15" is an error, not 1900-01-15.
func ParseDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, ErrMissingValue
	case time.Time:
		if x.IsZero() {
			return time.Time{}, ErrMissingValue
		}
		return model.Day(x), nil
	case float64:
		return fromSerial(x)
	case int:
		return fromSerial(float64(x))
	case int64:
		return fromSerial(float64(x))
	case string:
		return parseDateString(x)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrBadDate, v)
	}
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingValue
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, ErrBadDate
}

func fromSerial(f float64) (time.Time, error) {
	if f < minExcelSerial || f > maxExcelSerial {
		return time.Time{}, fmt.Errorf("%w: serial %v out of range", ErrBadDate, f)
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrBadDate, err)
	}
	return model.Day(t), nil
}
