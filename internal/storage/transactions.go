package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankfeed/internal/model"
)

const selectColumns = `SELECT seq, id, txn_date, description, amount, bank_id, source, imported_at FROM transactions`

// Insert stores txn, assigning its ID, Seq and ImportedAt.
func (s *SQLiteStorage) Insert(ctx context.Context, txn model.Transaction) (model.Transaction, error) {
	txn.ID = uuid.NewString()
	txn.Date = model.Day(txn.Date)
	txn.ImportedAt = time.Now().UTC()

	var bankID sql.NullString
	if txn.HasBankID() {
		bankID = sql.NullString{String: txn.BankID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, txn_date, description, amount, bank_id, source, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.Date.Format(model.DateFormat),
		txn.Description,
		txn.Amount.StringFixed(2),
		bankID,
		txn.Source,
		txn.ImportedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("inserting transaction: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return model.Transaction{}, fmt.Errorf("reading insert id: %w", err)
	}
	txn.Seq = seq
	return txn, nil
}

// FindByBankID returns the earliest stored record with the given bank identifier.
func (s *SQLiteStorage) FindByBankID(ctx context.Context, id string) (model.Transaction, bool, error) {
	if id == "" {
		return model.Transaction{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE bank_id = ? ORDER BY seq LIMIT 1`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, false, nil
	}
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("finding bank id %q: %w", id, err)
	}
	return txn, true, nil
}

// FindInDateWindow returns records dated within days of date, in insertion order.
func (s *SQLiteStorage) FindInDateWindow(ctx context.Context, date time.Time, days int) ([]model.Transaction, error) {
	if days < 0 {
		return nil, fmt.Errorf("negative date window %d", days)
	}
	day := model.Day(date)
	from := day.AddDate(0, 0, -days).Format(model.DateFormat)
	to := day.AddDate(0, 0, days).Format(model.DateFormat)

	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE txn_date BETWEEN ? AND ? ORDER BY seq`, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying date window: %w", err)
	}
	return collect(rows)
}

// Recent returns up to n records, newest date first and, within a date,
// latest inserted first.
func (s *SQLiteStorage) Recent(ctx context.Context, n int) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY txn_date DESC, seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent transactions: %w", err)
	}
	return collect(rows)
}

// Count returns the number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (model.Transaction, error) {
	var (
		txn                      model.Transaction
		date, amount, importedAt string
		bankID                   sql.NullString
	)
	if err := sc.Scan(&txn.Seq, &txn.ID, &date, &txn.Description, &amount, &bankID, &txn.Source, &importedAt); err != nil {
		return model.Transaction{}, err
	}

	var err error
	if txn.Date, err = time.Parse(model.DateFormat, date); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if txn.ImportedAt, err = time.Parse(time.RFC3339Nano, importedAt); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing imported_at %q: %w", importedAt, err)
	}
	txn.BankID = bankID.String
	return txn, nil
}

func collect(rows *sql.Rows) ([]model.Transaction, error) {
	defer rows.Close()
	var out []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return out, nil
}
