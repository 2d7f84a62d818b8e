package dedup

import (
	"time"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// Records is the read side of the known-record set consulted by Resolve.
type Records interface {
	// ByBankID returns the record carrying the bank identifier id.
	ByBankID(id string) (model.Transaction, bool)
	// InDateWindow returns, in insertion order, the records dated within
	// days of date (inclusive).
	InDateWindow(date time.Time, days int) []model.Transaction
}

// KnownSet is an in-memory, insertion-ordered Records implementation.
// Callers fill it with the slice of storage relevant to one candidate plus
// the records already accepted in the current batch.
type KnownSet struct {
	records []model.Transaction
	seen    map[string]struct{}
	byBank  map[string]int
}

// NewKnownSet returns a set holding txns in the given order.
func NewKnownSet(txns ...model.Transaction) *KnownSet {
	k := &KnownSet{
		seen:   make(map[string]struct{}),
		byBank: make(map[string]int),
	}
	for _, t := range txns {
		k.Add(t)
	}
	return k
}

// Add appends t unless a record with the same non-empty ID is already held.
// It reports whether t was added.
func (k *KnownSet) Add(t model.Transaction) bool {
	if t.ID != "" {
		if _, ok := k.seen[t.ID]; ok {
			return false
		}
		k.seen[t.ID] = struct{}{}
	}
	if t.HasBankID() {
		if _, ok := k.byBank[t.BankID]; !ok {
			k.byBank[t.BankID] = len(k.records)
		}
	}
	k.records = append(k.records, t)
	return true
}

// Len returns the number of records held.
func (k *KnownSet) Len() int {
	return len(k.records)
}

// ByBankID returns the earliest-added record with the given bank identifier.
func (k *KnownSet) ByBankID(id string) (model.Transaction, bool) {
	if id == "" {
		return model.Transaction{}, false
	}
	i, ok := k.byBank[id]
	if !ok {
		return model.Transaction{}, false
	}
	return k.records[i], true
}

// InDateWindow returns the records dated within days of date, in the order
// they were added.
func (k *KnownSet) InDateWindow(date time.Time, days int) []model.Transaction {
	var out []model.Transaction
	for _, t := range k.records {
		if model.DaysBetween(t.Date, date) <= days {
			out = append(out, t)
		}
	}
	return out
}
