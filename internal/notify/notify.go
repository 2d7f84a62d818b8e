// Package notify delivers newly accepted transactions to people.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// Notifier delivers the records accepted from one source.
type Notifier interface {
	Notify(ctx context.Context, source string, txns []model.Transaction) error
}

// Log writes one log line per transaction to the context logger.
type Log struct{}

// Notify logs txns.
func (Log) Notify(ctx context.Context, source string, txns []model.Transaction) error {
	log := zerolog.Ctx(ctx)
	for _, t := range txns {
		log.Info().
			Str("source", source).
			Str("id", t.ID).
			Str("date", t.Date.Format(model.DateFormat)).
			Str("description", t.Description).
			Str("amount", t.Amount.StringFixed(2)).
			Msg("new transaction")
	}
	return nil
}

// Multi fans out to every notifier, attempting all of them.
type Multi []Notifier

// Notify calls each notifier in order and joins their errors.
func (m Multi) Notify(ctx context.Context, source string, txns []model.Transaction) error {
	var errs []error
	for i, n := range m {
		if err := n.Notify(ctx, source, txns); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
