package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader reads delimited text exports. The delimiter is ';' when the
// header line holds more semicolons than commas, ',' otherwise.
type CSVReader struct{}

// Extensions returns the handled extensions.
func (c *CSVReader) Extensions() []string { return []string{".csv"} }

// Read extracts the rows of a CSV export. opts.Sheet is ignored.
func (c *CSVReader) Read(r io.Reader, opts Options) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data, opts.SkipRows)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	grid, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	return buildSheet("csv", textGrid(grid), opts)
}

func detectDelimiter(data []byte, skip int) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; sc.Scan(); i++ {
		if i < skip {
			continue
		}
		line := sc.Bytes()
		if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
			return ';'
		}
		return ','
	}
	return ','
}
