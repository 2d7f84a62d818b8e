package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankfeed/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(context.Background(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func txn(d int, desc, amount, bankID string) model.Transaction {
	return model.Transaction{
		Date:        day(d),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		BankID:      bankID,
		Source:      "march.xlsx",
	}
}

func TestNewSQLiteStorage_Migrates(t *testing.T) {
	s := newTestStorage(t)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestNewSQLiteStorage_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "bankfeed.db")

	s, err := NewSQLiteStorage(ctx, path)
	require.NoError(t, err)
	_, err = s.Insert(ctx, txn(1, "COFFEE", "-3.50", ""))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening keeps data and does not re-run migrations.
	s, err = NewSQLiteStorage(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCheckpoint_DatabaseFileStandsAlone(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "bankfeed.db")

	s, err := NewSQLiteStorage(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Insert(ctx, txn(1, "COFFEE", "-3.50", ""))
	require.NoError(t, err)
	_, err = s.Insert(ctx, txn(2, "RENT", "-800", ""))
	require.NoError(t, err)

	require.NoError(t, s.Checkpoint(ctx))

	// Only the .db file is copied, as a git commit would see it.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	copyPath := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, os.WriteFile(copyPath, data, 0o600))

	c, err := NewSQLiteStorage(ctx, copyPath)
	require.NoError(t, err)
	defer c.Close()
	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCheckpoint_Memory(t *testing.T) {
	s := newTestStorage(t)
	assert.NoError(t, s.Checkpoint(context.Background()))
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage(context.Background(), "")
	assert.Error(t, err)
}

func TestInsert(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first, err := s.Insert(ctx, txn(1, "SUPERMARKET XYZ 123", "-45.30", "TX-1"))
	require.NoError(t, err)
	second, err := s.Insert(ctx, txn(2, "COFFEE", "-3.5", ""))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Less(t, first.Seq, second.Seq)
	assert.False(t, first.ImportedAt.IsZero())

	got, ok, err := s.FindByBankID(ctx, "TX-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, day(1), got.Date)
	assert.Equal(t, "SUPERMARKET XYZ 123", got.Description)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("-45.30")))
	assert.Equal(t, "march.xlsx", got.Source)
	assert.True(t, first.ImportedAt.Equal(got.ImportedAt))
}

func TestFindByBankID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, txn(1, "NO ID", "-1.00", ""))
	require.NoError(t, err)

	_, ok, err := s.FindByBankID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.FindByBankID(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok, "records without a bank id are never matched")
}

func TestFindInDateWindow(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, tt := range []struct {
		d    int
		desc string
	}{
		{10, "centre"},
		{4, "before window"},
		{5, "low edge"},
		{15, "high edge"},
		{16, "after window"},
		{12, "inside"},
	} {
		_, err := s.Insert(ctx, txn(tt.d, tt.desc, "-1.00", ""))
		require.NoError(t, err)
	}

	got, err := s.FindInDateWindow(ctx, day(10), 5)
	require.NoError(t, err)

	var descs []string
	for _, r := range got {
		descs = append(descs, r.Description)
	}
	assert.Equal(t, []string{"centre", "low edge", "high edge", "inside"}, descs, "insertion order")

	got, err = s.FindInDateWindow(ctx, day(10), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = s.FindInDateWindow(ctx, day(10), -1)
	assert.Error(t, err)
}

func TestFindInDateWindow_AcrossMonths(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, model.Transaction{
		Date:        time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC),
		Description: "LEAP",
		Amount:      decimal.RequireFromString("-1.00"),
	})
	require.NoError(t, err)

	got, err := s.FindInDateWindow(ctx, day(2), 3)
	require.NoError(t, err)
	assert.Len(t, got, 1, "2024-02-28 is three days before 2024-03-02")
}

func TestRecent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, r := range []model.Transaction{
		txn(3, "third", "-1.00", ""),
		txn(1, "first", "-1.00", ""),
		txn(3, "third again", "-1.00", ""),
		txn(2, "second", "-1.00", ""),
	} {
		_, err := s.Insert(ctx, r)
		require.NoError(t, err)
	}

	got, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "third again", got[0].Description)
	assert.Equal(t, "third", got[1].Description)
	assert.Equal(t, "second", got[2].Description)
}

func TestPing(t *testing.T) {
	s := newTestStorage(t)
	assert.NoError(t, s.Ping(context.Background()))
}
