// Package journal stores transactions as plain CSV files, one per month:
// <root>/YYYY/MM/transactions.csv.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// FileName is the per-month transaction file.
const FileName = "transactions.csv"

// Service reads and appends month files under a root directory.
type Service struct {
	root string
	now  func() time.Time

	mu      sync.Mutex
	lastSeq int64
	loaded  bool
}

// NewService creates a journal Service rooted at root.
func NewService(root string) *Service {
	return &Service{root: root, now: time.Now}
}

// Insert validates txn together with its month, assigns ID, Seq and
// ImportedAt, and appends it to the month's file.
func (s *Service) Insert(ctx context.Context, txn model.Transaction) (model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return model.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.nextSeq()
	if err != nil {
		return model.Transaction{}, err
	}
	now := s.now().UTC()

	txn.ID = uuid.NewString()
	txn.Seq = seq
	txn.Date = model.Day(txn.Date)
	txn.ImportedAt = now

	year, month := txn.Date.Year(), int(txn.Date.Month())

	// Read existing records for validation.
	existing, err := s.ReadMonth(year, month)
	if err != nil {
		return model.Transaction{}, err
	}

	// Validate the whole month with the new record appended.
	all := append(existing, txn)
	if verrs := ValidateTransactions(all, year, month); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return model.Transaction{}, fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}

	// Append to month file (create dir + header if new).
	path := s.monthPath(year, month)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return model.Transaction{}, fmt.Errorf("creating journal dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	write := AppendTransactions
	if isNew {
		write = WriteTransactions
	}
	if err := write(f, []model.Transaction{txn}); err != nil {
		return model.Transaction{}, fmt.Errorf("appending transaction: %w", err)
	}

	s.lastSeq = seq
	return txn, nil
}

// FindByBankID returns the earliest inserted record with the given bank identifier.
func (s *Service) FindByBankID(ctx context.Context, id string) (model.Transaction, bool, error) {
	if id == "" {
		return model.Transaction{}, false, nil
	}
	all, err := s.readAll(ctx)
	if err != nil {
		return model.Transaction{}, false, err
	}
	for _, txn := range all {
		if txn.BankID == id {
			return txn, true, nil
		}
	}
	return model.Transaction{}, false, nil
}

// FindInDateWindow returns records dated within days of date, in insertion order.
func (s *Service) FindInDateWindow(ctx context.Context, date time.Time, days int) ([]model.Transaction, error) {
	if days < 0 {
		return nil, fmt.Errorf("negative date window %d", days)
	}
	day := model.Day(date)
	from, to := day.AddDate(0, 0, -days), day.AddDate(0, 0, days)

	var out []model.Transaction
	for m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(to); m = m.AddDate(0, 1, 0) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txns, err := s.ReadMonth(m.Year(), int(m.Month()))
		if err != nil {
			return nil, err
		}
		for _, txn := range txns {
			if model.DaysBetween(txn.Date, day) <= days {
				out = append(out, txn)
			}
		}
	}
	sortBySeq(out)
	return out, nil
}

// Recent returns up to n records, newest date first and, within a date,
// latest inserted first.
func (s *Service) Recent(ctx context.Context, n int) ([]model.Transaction, error) {
	all, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].Seq > all[j].Seq
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Count returns the number of stored records.
func (s *Service) Count(ctx context.Context) (int, error) {
	all, err := s.readAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// Checkpoint is a no-op; every append is flushed on return.
func (s *Service) Checkpoint(_ context.Context) error {
	return nil
}

// Ping checks that the root directory is usable.
func (s *Service) Ping(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("checking journal root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("journal root %s is not a directory", s.root)
	}
	return nil
}

// Close is a no-op; files are opened per call.
func (s *Service) Close() error {
	return nil
}

// ReadMonth reads all records for a given year/month.
func (s *Service) ReadMonth(year, month int) ([]model.Transaction, error) {
	path := s.monthPath(year, month)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}
	return txns, nil
}

// Months lists the month files present, oldest first.
func (s *Service) Months() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, "[0-9][0-9][0-9][0-9]", "[0-9][0-9]", FileName))
	if err != nil {
		return nil, fmt.Errorf("listing journal months: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (s *Service) readAll(ctx context.Context) ([]model.Transaction, error) {
	paths, err := s.Months()
	if err != nil {
		return nil, err
	}
	var all []model.Transaction
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening journal %s: %w", path, err)
		}
		txns, err := ReadTransactions(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading journal %s: %w", path, err)
		}
		all = append(all, txns...)
	}
	sortBySeq(all)
	return all, nil
}

// nextSeq returns a clock-derived sequence number strictly greater than any
// already written. The caller holds s.mu.
func (s *Service) nextSeq() (int64, error) {
	if !s.loaded {
		all, err := s.readAll(context.Background())
		if err != nil {
			return 0, err
		}
		for _, txn := range all {
			if txn.Seq > s.lastSeq {
				s.lastSeq = txn.Seq
			}
		}
		s.loaded = true
	}
	seq := s.now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	return seq, nil
}

func (s *Service) monthPath(year, month int) string {
	return filepath.Join(s.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), FileName)
}

func sortBySeq(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Seq < txns[j].Seq })
}
