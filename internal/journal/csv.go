package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// Header is the CSV header for transactions.csv.
const Header = "seq,id,date,description,amount,bank_id,source,imported_at"

const (
	numFields     = 8
	colSeq        = 0
	colID         = 1
	colDate       = 2
	colDesc       = 3
	colAmount     = 4
	colBankID     = 5
	colSource     = 6
	colImportedAt = 7
)

// ReadTransactions reads all records from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes txns to a transactions.csv writer (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendTransactions appends txns to an existing transactions.csv writer (no header).
func AppendTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(txn model.Transaction) []string {
	row := make([]string, numFields)
	row[colSeq] = strconv.FormatInt(txn.Seq, 10)
	row[colID] = txn.ID
	row[colDate] = txn.Date.Format(model.DateFormat)
	row[colDesc] = txn.Description
	row[colAmount] = txn.Amount.StringFixed(2)
	row[colBankID] = txn.BankID
	row[colSource] = txn.Source
	if !txn.ImportedAt.IsZero() {
		row[colImportedAt] = txn.ImportedAt.UTC().Format(time.RFC3339Nano)
	}
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	seq, err := strconv.ParseInt(record[colSeq], 10, 64)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing seq %q: %w", record[colSeq], err)
	}

	date, err := time.Parse(model.DateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var importedAt time.Time
	if record[colImportedAt] != "" {
		importedAt, err = time.Parse(time.RFC3339Nano, record[colImportedAt])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing imported_at %q: %w", record[colImportedAt], err)
		}
	}

	return model.Transaction{
		ID:          record[colID],
		Seq:         seq,
		Date:        date,
		Description: record[colDesc],
		Amount:      amount,
		BankID:      record[colBankID],
		Source:      record[colSource],
		ImportedAt:  importedAt,
	}, nil
}
