// Package batch runs uploads through normalization, duplicate resolution
// and storage, one row at a time in input order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/bankfeed/internal/dedup"
	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/normalize"
)

// Store is the storage collaborator.
type Store interface {
	FindByBankID(ctx context.Context, id string) (model.Transaction, bool, error)
	// FindInDateWindow returns records dated within days of date, in
	// insertion order.
	FindInDateWindow(ctx context.Context, date time.Time, days int) ([]model.Transaction, error)
	// Insert commits txn and returns it with ID, Seq and ImportedAt set.
	Insert(ctx context.Context, txn model.Transaction) (model.Transaction, error)
}

// Notifier receives the records accepted in a batch.
type Notifier interface {
	Notify(ctx context.Context, source string, txns []model.Transaction) error
}

// Options tune a single Process call.
type Options struct {
	// DryRun resolves every row but never inserts or notifies.
	DryRun bool
}

// Coordinator processes batches against one store. Calls to Process are
// serialised.
type Coordinator struct {
	mu       sync.Mutex
	store    Store
	notifier Notifier
	mapping  normalize.Mapping
	cfg      dedup.Config
}

// NewCoordinator creates a Coordinator. notifier may be nil.
func NewCoordinator(store Store, notifier Notifier, mapping normalize.Mapping, cfg dedup.Config) *Coordinator {
	return &Coordinator{
		store:    store,
		notifier: notifier,
		mapping:  mapping,
		cfg:      cfg,
	}
}

// Process normalizes, resolves and commits rows in order. Malformed rows are
// reported and skipped. A storage error stops the batch; rows committed
// before it stay committed and the partial report is returned with the error.
func (c *Coordinator) Process(ctx context.Context, source string, rows []model.RawRow, opts Options) (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := zerolog.Ctx(ctx).With().Str("source", source).Bool("dry_run", opts.DryRun).Logger()
	report := &Report{DryRun: opts.DryRun}
	var pending []model.Transaction

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++

		txn, err := normalize.Normalize(row, c.mapping)
		if err != nil {
			var mre *normalize.MalformedRowError
			if !errors.As(err, &mre) {
				mre = &normalize.MalformedRowError{Row: row.Line, Err: err}
			}
			log.Warn().Err(mre).Int("row", row.Line).Msg("skipping malformed row")
			report.Malformed = append(report.Malformed, mre)
			continue
		}
		txn.Source = source

		known, err := c.known(ctx, txn, pending)
		if err != nil {
			return report, fmt.Errorf("row %d: %w", row.Line, err)
		}

		decision := dedup.Resolve(txn, known, c.cfg)
		report.Results = append(report.Results, RowResult{Row: row.Line, Transaction: txn, Decision: decision})

		if decision.IsDuplicate() {
			report.Duplicates++
			log.Debug().
				Int("row", row.Line).
				Str("basis", string(decision.Basis)).
				Str("match", decision.Match.ID).
				Float64("score", decision.Score).
				Int("candidates", known.Len()).
				Msg("duplicate")
			continue
		}

		if !opts.DryRun {
			txn, err = c.store.Insert(ctx, txn)
			if err != nil {
				return report, fmt.Errorf("inserting row %d: %w", row.Line, err)
			}
		}
		pending = append(pending, txn)
		report.Accepted++
		report.New = append(report.New, txn)
		log.Debug().Int("row", row.Line).Str("id", txn.ID).Msg("new")
	}

	log.Info().
		Int("processed", report.Processed).
		Int("accepted", report.Accepted).
		Int("duplicates", report.Duplicates).
		Int("malformed", len(report.Malformed)).
		Msg("batch processed")

	if !opts.DryRun && c.notifier != nil && len(report.New) > 0 {
		if err := c.notifier.Notify(ctx, source, report.New); err != nil {
			log.Error().Err(err).Msg("notifying new transactions")
		}
	}
	return report, nil
}

// known gathers every record the resolver needs for txn: stored records
// inside the date window, the stored record sharing its bank identifier, and
// records accepted earlier in this batch.
func (c *Coordinator) known(ctx context.Context, txn model.Transaction, pending []model.Transaction) (*dedup.KnownSet, error) {
	window, err := c.store.FindInDateWindow(ctx, txn.Date, c.cfg.DateWindowDays)
	if err != nil {
		return nil, fmt.Errorf("loading date window: %w", err)
	}
	known := dedup.NewKnownSet(window...)
	if txn.HasBankID() {
		match, ok, err := c.store.FindByBankID(ctx, txn.BankID)
		if err != nil {
			return nil, fmt.Errorf("looking up bank id: %w", err)
		}
		if ok {
			known.Add(match)
		}
	}
	for _, t := range pending {
		known.Add(t)
	}
	return known, nil
}
