package importer

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads Office Open XML workbooks.
type XLSXReader struct{}

// Extensions returns the handled extensions.
func (x *XLSXReader) Extensions() []string { return []string{".xlsx", ".xlsm"} }

// Read extracts the selected sheet. Cells are returned unformatted: numeric
// cells (dates included) arrive as float64 serials and amounts without
// display rounding, while text cells stay strings.
func (x *XLSXReader) Read(r io.Reader, opts Options) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	name := sheets[0]
	if opts.Sheet != "" {
		if !slices.Contains(sheets, opts.Sheet) {
			return nil, fmt.Errorf("sheet %q not found (have %v)", opts.Sheet, sheets)
		}
		name = opts.Sheet
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}

	grid := textGrid(rows)
	for i, cells := range rows {
		for j, c := range cells {
			if c == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, fmt.Errorf("reading sheet %q: %w", name, err)
			}
			typ, err := f.GetCellType(name, axis)
			if err != nil {
				return nil, fmt.Errorf("reading cell %s: %w", axis, err)
			}
			if !numericCell(typ) {
				continue
			}
			if n, err := strconv.ParseFloat(c, 64); err == nil {
				grid[i][j] = n
			}
		}
	}
	return buildSheet(name, grid, opts)
}

// numericCell reports whether a cell of type t stores a number. Cells
// without a type attribute are numbers.
func numericCell(t excelize.CellType) bool {
	switch t {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		return true
	default:
		return false
	}
}
