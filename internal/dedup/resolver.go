// Package dedup decides whether a normalized transaction is already known.
package dedup

import (
	"github.com/cleared-dev/bankfeed/internal/model"
)

// Outcome is the verdict for one candidate.
type Outcome string

const (
	OutcomeNew       Outcome = "new"
	OutcomeDuplicate Outcome = "duplicate"
)

// MatchBasis says which rule produced a duplicate verdict.
type MatchBasis string

const (
	BasisNone       MatchBasis = ""
	BasisID         MatchBasis = "by_id"
	BasisSimilarity MatchBasis = "by_similarity"
)

// Decision is the result of resolving one candidate.
type Decision struct {
	Outcome Outcome
	Basis   MatchBasis
	Match   *model.Transaction // the existing record, for duplicates
	Score   float64            // description similarity, for by_similarity
}

// IsDuplicate reports whether the candidate matched an existing record.
func (d Decision) IsDuplicate() bool {
	return d.Outcome == OutcomeDuplicate
}

// Resolve decides whether candidate is new or duplicates one of records.
//
// A shared bank identifier is authoritative. Otherwise records dated within
// cfg.DateWindowDays with exactly the same amount are scored by description
// similarity; the best score wins, ties going to the earliest date and then
// to the earliest inserted record. A best score at or above
// cfg.SimilarityThreshold is a duplicate.
//
// Resolve performs no I/O and returns the same decision for the same inputs.
func Resolve(candidate model.Transaction, records Records, cfg Config) Decision {
	if candidate.HasBankID() {
		if match, ok := records.ByBankID(candidate.BankID); ok {
			return Decision{Outcome: OutcomeDuplicate, Basis: BasisID, Match: &match, Score: 1}
		}
	}

	var (
		best      model.Transaction
		bestScore = -1.0
		found     bool
	)
	for _, r := range records.InDateWindow(candidate.Date, cfg.DateWindowDays) {
		if model.DaysBetween(r.Date, candidate.Date) > cfg.DateWindowDays {
			continue
		}
		if !r.Amount.Equal(candidate.Amount) {
			continue
		}
		score := Similarity(candidate.Description, r.Description)
		// Records arrive in insertion order, so on an equal score and date
		// the record already held wins.
		if score > bestScore || (score == bestScore && model.Day(r.Date).Before(model.Day(best.Date))) {
			best, bestScore, found = r, score, true
		}
	}

	if found && bestScore >= cfg.SimilarityThreshold {
		return Decision{Outcome: OutcomeDuplicate, Basis: BasisSimilarity, Match: &best, Score: bestScore}
	}
	return Decision{Outcome: OutcomeNew}
}
