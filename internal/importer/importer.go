// Package importer extracts raw rows from bank spreadsheet exports.
package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/normalize"
)

var (
	// ErrUnsupportedFormat is returned for files no registered reader handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMissingColumns is returned when the header lacks a mapped column.
	ErrMissingColumns = errors.New("missing required columns")
)

// Options control how a sheet is located and split into rows.
type Options struct {
	Sheet    string // sheet name; first sheet when empty
	SkipRows int    // rows above the header row
	Mapping  normalize.Mapping
}

// Sheet is the extracted content of one spreadsheet.
type Sheet struct {
	Name   string
	Header []string
	Rows   []model.RawRow
}

// Reader extracts a Sheet from one file format.
type Reader interface {
	Read(r io.Reader, opts Options) (*Sheet, error)
	Extensions() []string
}

// Registry maps file extensions to readers.
type Registry struct {
	readers map[string]Reader
}

// FileInfo describes a spreadsheet in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register adds a reader for each of its extensions. Panics on duplicate extension.
func (r *Registry) Register(rd Reader) {
	for _, ext := range rd.Extensions() {
		key := strings.ToLower(ext)
		if _, ok := r.readers[key]; ok {
			panic("duplicate reader extension: " + key)
		}
		r.readers[key] = rd
	}
}

// Get returns the reader for ext (".xlsx"), or nil.
func (r *Registry) Get(ext string) Reader {
	return r.readers[strings.ToLower(ext)]
}

// Supports reports whether a reader is registered for name's extension.
func (r *Registry) Supports(name string) bool {
	return r.Get(filepath.Ext(name)) != nil
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Read extracts the sheet from src using the reader registered for name's extension.
func (r *Registry) Read(name string, src io.Reader, opts Options) (*Sheet, error) {
	rd, err := r.readerFor(name)
	if err != nil {
		return nil, err
	}
	return rd.Read(src, opts)
}

// ReadFile opens path and extracts its sheet.
func (r *Registry) ReadFile(path string, opts Options) (*Sheet, error) {
	rd, err := r.readerFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return rd.Read(f, opts)
}

func (r *Registry) readerFor(name string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if rd := r.Get(ext); rd != nil {
		return rd, nil
	}
	return nil, fmt.Errorf("%w: %q (accepted: %s)", ErrUnsupportedFormat, ext, strings.Join(r.Extensions(), ", "))
}

// DefaultRegistry returns a registry with all built-in readers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&XLSXReader{})
	r.Register(&XLSReader{})
	r.Register(&CSVReader{})
	return r
}

// CheckColumns fails with ErrMissingColumns when header lacks a required mapped column.
func CheckColumns(header []string, m normalize.Mapping) error {
	if missing := m.Missing(header); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// buildSheet turns grid cells into a Sheet. Rows above opts.SkipRows are
// ignored, the next row is the header, and data rows whose mapped cells are
// all blank are dropped.
func buildSheet(name string, grid [][]any, opts Options) (*Sheet, error) {
	if opts.SkipRows < 0 {
		return nil, fmt.Errorf("negative skip rows %d", opts.SkipRows)
	}
	if len(grid) <= opts.SkipRows {
		return nil, fmt.Errorf("sheet %q has no header row after skipping %d rows", name, opts.SkipRows)
	}

	header := make([]string, len(grid[opts.SkipRows]))
	for i, h := range grid[opts.SkipRows] {
		header[i] = strings.TrimSpace(fmt.Sprint(h))
	}

	if opts.Mapping != (normalize.Mapping{}) {
		if err := CheckColumns(header, opts.Mapping); err != nil {
			return nil, err
		}
	}

	sheet := &Sheet{Name: name, Header: header}
	for i, cells := range grid[opts.SkipRows+1:] {
		row := model.RawRow{
			Line:    opts.SkipRows + i + 2,
			Columns: header,
			Values:  cells,
		}
		if blank(row, opts.Mapping) {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

// textGrid wraps string cells for buildSheet.
func textGrid(rows [][]string) [][]any {
	grid := make([][]any, len(rows))
	for i, cells := range rows {
		grid[i] = make([]any, len(cells))
		for j, c := range cells {
			grid[i][j] = c
		}
	}
	return grid
}

func blank(row model.RawRow, m normalize.Mapping) bool {
	cols := row.Columns
	if m != (normalize.Mapping{}) {
		cols = m.Essential()
	}
	for _, col := range cols {
		switch v, _ := row.Get(col); x := v.(type) {
		case nil:
		case string:
			if strings.TrimSpace(x) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// importDir is the subdirectory for spreadsheets waiting to be imported.
const importDir = "import"

// processedDir is the subdirectory for imported spreadsheets.
const processedDir = "import/processed"

// Scan returns importable spreadsheets in <repoRoot>/import/, sorted by name.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	reg := DefaultRegistry()
	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "~$") || !reg.Supports(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
