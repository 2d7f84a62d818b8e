// Package importlog keeps an append-only CSV audit trail of processed batches.
package importlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// RelPath is the log location inside a workspace.
var RelPath = filepath.Join("logs", "import-log.csv")

// Columns is the CSV header of the log.
var Columns = []string{"timestamp", "source", "processed", "accepted", "duplicates", "malformed", "dry_run"}

// Entry is the outcome of one batch.
type Entry struct {
	Timestamp  time.Time
	Source     string
	Processed  int
	Accepted   int
	Duplicates int
	Malformed  int
	DryRun     bool
}

// Record encodes e in Columns order.
func (e Entry) Record() []string {
	return []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Source,
		strconv.Itoa(e.Processed),
		strconv.Itoa(e.Accepted),
		strconv.Itoa(e.Duplicates),
		strconv.Itoa(e.Malformed),
		strconv.FormatBool(e.DryRun),
	}
}

// ParseRecord decodes a CSV record written by Entry.Record.
func ParseRecord(rec []string) (Entry, error) {
	if len(rec) != len(Columns) {
		return Entry{}, fmt.Errorf("got %d fields, want %d", len(rec), len(Columns))
	}

	var e Entry
	var err error
	if e.Timestamp, err = time.Parse(time.RFC3339, rec[0]); err != nil {
		return Entry{}, fmt.Errorf("timestamp: %w", err)
	}
	e.Source = rec[1]
	for i, dst := range []*int{&e.Processed, &e.Accepted, &e.Duplicates, &e.Malformed} {
		if *dst, err = strconv.Atoi(rec[i+2]); err != nil {
			return Entry{}, fmt.Errorf("%s: %w", Columns[i+2], err)
		}
	}
	if e.DryRun, err = strconv.ParseBool(rec[6]); err != nil {
		return Entry{}, fmt.Errorf("dry_run: %w", err)
	}
	return e, nil
}

// Log is the import log of one workspace.
type Log struct {
	path string
}

// Open returns the log of the workspace at root. The file is created on
// first append.
func Open(root string) *Log {
	return &Log{path: filepath.Join(root, RelPath)}
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Append adds entries at the end of the log, writing the header into a new
// or empty file.
func (l *Log) Append(entries ...Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat import log: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(Columns); err != nil {
			return fmt.Errorf("writing import log header: %w", err)
		}
	}
	for _, e := range entries {
		if err := cw.Write(e.Record()); err != nil {
			return fmt.Errorf("writing import log entry for %s: %w", e.Source, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Entries returns every entry in file order. A missing log has no entries.
func (l *Log) Entries() ([]Entry, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(Columns)
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import log header: %w", err)
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading import log: %w", err)
		}
		e, err := ParseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("import log line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
}
