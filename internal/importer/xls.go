package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// XLSReader reads legacy BIFF8 (Excel 97-2003) workbooks. Cells come back
// as the library formats them: dates in date-formatted cells as text, numbers
// as plain decimal text.
type XLSReader struct{}

// Extensions returns the handled extensions.
func (x *XLSReader) Extensions() []string { return []string{".xls"} }

// Read extracts the selected sheet.
func (x *XLSReader) Read(r io.Reader, opts Options) (sheet *Sheet, err error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading workbook: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	// The decoder panics on some truncated streams.
	defer func() {
		if p := recover(); p != nil {
			sheet, err = nil, fmt.Errorf("opening workbook: malformed file: %v", p)
		}
	}()

	wb, err := xls.OpenReader(rs, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	ws := wb.GetSheet(0)
	if opts.Sheet != "" {
		ws = nil
		var names []string
		for i := 0; i < wb.NumSheets(); i++ {
			s := wb.GetSheet(i)
			if s == nil {
				continue
			}
			names = append(names, s.Name)
			if s.Name == opts.Sheet {
				ws = s
				break
			}
		}
		if ws == nil {
			return nil, fmt.Errorf("sheet %q not found (have %v)", opts.Sheet, names)
		}
	}
	if ws == nil {
		return nil, errors.New("workbook has no readable sheet")
	}

	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return buildSheet(ws.Name, textGrid(rows), opts)
}
