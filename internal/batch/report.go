package batch

import (
	"fmt"

	"github.com/cleared-dev/bankfeed/internal/dedup"
	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/normalize"
)

// Status summarises a batch for callers that present partial success.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning" // some rows were malformed, or the file was empty
)

// RowResult is the decision taken for one normalized row.
type RowResult struct {
	Row         int
	Transaction model.Transaction
	Decision    dedup.Decision
}

// Report is the outcome of one batch.
type Report struct {
	Processed  int
	Accepted   int
	Duplicates int
	Malformed  []*normalize.MalformedRowError
	New        []model.Transaction
	Results    []RowResult
	DryRun     bool
}

// Status classifies the batch.
func (r *Report) Status() Status {
	switch {
	case r.Processed == 0, len(r.Malformed) > 0:
		return StatusWarning
	default:
		return StatusSuccess
	}
}

// Message is a one-line human summary for source.
func (r *Report) Message(source string) string {
	if r.Processed == 0 {
		return fmt.Sprintf("%s: empty file, no rows to process", source)
	}
	verb := "added"
	if r.DryRun {
		verb = "would be added"
	}
	if r.Accepted == 0 && len(r.Malformed) == 0 {
		return fmt.Sprintf("%s: no new transactions (%d already recorded)", source, r.Duplicates)
	}
	msg := fmt.Sprintf("%s: %d new transactions %s, %d duplicates", source, r.Accepted, verb, r.Duplicates)
	if n := len(r.Malformed); n > 0 {
		msg += fmt.Sprintf(", %d malformed rows skipped", n)
	}
	return msg
}
