package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// Rules checked by ValidateTransactions.
const (
	RuleDescription = "description"
	RuleDate        = "date"
	RuleAmount      = "amount"
	RuleUniqueID    = "unique_id"
	RuleSeqOrder    = "seq_order"
)

// ValidationError describes a single rule violation.
type ValidationError struct {
	Rule        string
	ID          string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.ID, e.Description)
}

// ValidateTransactions checks the records of one month file.
func ValidateTransactions(txns []model.Transaction, year, month int) []ValidationError {
	var errs []ValidationError
	hundred := decimal.NewFromInt(100)
	ids := make(map[string]bool)
	var lastSeq int64

	for _, txn := range txns {
		if txn.Description == "" {
			errs = append(errs, ValidationError{
				Rule:        RuleDescription,
				ID:          txn.ID,
				Description: "description is empty",
			})
		}

		switch {
		case txn.Date.IsZero():
			errs = append(errs, ValidationError{
				Rule:        RuleDate,
				ID:          txn.ID,
				Description: "date is missing",
			})
		case txn.Date.Year() != year || int(txn.Date.Month()) != month:
			errs = append(errs, ValidationError{
				Rule:        RuleDate,
				ID:          txn.ID,
				Description: fmt.Sprintf("date %s not in %04d-%02d", txn.Date.Format(model.DateFormat), year, month),
			})
		}

		// No more than 2 decimal places.
		if !txn.Amount.Mul(hundred).Equal(txn.Amount.Mul(hundred).Floor()) {
			errs = append(errs, ValidationError{
				Rule:        RuleAmount,
				ID:          txn.ID,
				Description: fmt.Sprintf("amount %s has more than 2 decimal places", txn.Amount),
			})
		}

		if txn.ID != "" {
			if ids[txn.ID] {
				errs = append(errs, ValidationError{
					Rule:        RuleUniqueID,
					ID:          txn.ID,
					Description: "duplicate id",
				})
			}
			ids[txn.ID] = true
		}

		if txn.Seq <= lastSeq {
			errs = append(errs, ValidationError{
				Rule:        RuleSeqOrder,
				ID:          txn.ID,
				Description: fmt.Sprintf("seq %d does not follow %d", txn.Seq, lastSeq),
			})
		}
		lastSeq = txn.Seq
	}

	return errs
}
