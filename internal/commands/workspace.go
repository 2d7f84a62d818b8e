package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cleared-dev/bankfeed/internal/batch"
	"github.com/cleared-dev/bankfeed/internal/config"
	"github.com/cleared-dev/bankfeed/internal/gitops"
	"github.com/cleared-dev/bankfeed/internal/journal"
	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/notify"
	"github.com/cleared-dev/bankfeed/internal/storage"
)

// store is what the commands need from either storage driver.
type store interface {
	batch.Store
	Recent(ctx context.Context, n int) ([]model.Transaction, error)
	Count(ctx context.Context) (int, error)
	Checkpoint(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ store = (*storage.SQLiteStorage)(nil)
	_ store = (*journal.Service)(nil)
)

// workspace is a loaded bankfeed directory.
type workspace struct {
	root string
	cfg  *config.Config

	mu sync.Mutex // serialises import log appends and commits from uploads
}

// load resolves the workspace root and reads, overrides and validates its
// configuration.
func (o *globalOptions) load() (*workspace, error) {
	root, err := filepath.Abs(o.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := o.configPath
	if path == "" {
		path = filepath.Join(root, config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s not found; run 'bankfeed init' first: %w", path, err)
		}
		return nil, err
	}
	if err := cfg.ApplyOverrides(o.v); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &workspace{root: root, cfg: cfg}, nil
}

// path resolves p against the workspace root unless it is absolute.
func (w *workspace) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.root, p)
}

// openStore opens the configured storage driver.
func (w *workspace) openStore(ctx context.Context) (store, error) {
	path := w.path(w.cfg.Storage.Path)
	switch w.cfg.Storage.Driver {
	case config.DriverSQLite:
		return storage.NewSQLiteStorage(ctx, path)
	case config.DriverCSV:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal dir: %w", err)
		}
		return journal.NewService(path), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", w.cfg.Storage.Driver)
	}
}

// notifier logs new transactions and, when enabled, emails them.
func (w *workspace) notifier() batch.Notifier {
	n := notify.Multi{notify.Log{}}
	if w.cfg.Notify.Enabled {
		n = append(n, notify.NewSMTP(w.cfg.SMTP()))
	}
	return n
}

// coordinator wires a batch coordinator over s.
func (w *workspace) coordinator(s batch.Store) *batch.Coordinator {
	return batch.NewCoordinator(s, w.notifier(), w.cfg.Mapping(), w.cfg.Dedup())
}

// processor wraps the coordinator over s in the workspace file lock.
func (w *workspace) processor(s batch.Store) *lockedProcessor {
	return newLockedProcessor(filepath.Join(w.root, LockFile), w.coordinator(s))
}

func (w *workspace) author() gitops.Author {
	return gitops.Author{Name: w.cfg.Git.AuthorName, Email: w.cfg.Git.AuthorEmail}
}

// commit records workspace changes when auto commit is enabled. It returns
// the short hash, or "" when nothing was committed.
func (w *workspace) commit(message string) (string, error) {
	if !w.cfg.Git.AutoCommit || !gitops.IsRepo(w.root) {
		return "", nil
	}
	return gitops.CommitIfChanged(w.root, message, w.author())
}
