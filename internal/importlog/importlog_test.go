package importlog

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 25, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:  testTime,
		Source:     "march.xlsx",
		Processed:  12,
		Accepted:   9,
		Duplicates: 2,
		Malformed:  1,
	}
}

func TestAppend_NewFile(t *testing.T) {
	l := Open(t.TempDir())
	require.NoError(t, l.Append(testEntry()))

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), strings.Join(Columns, ",")+"\n"))
	assert.Contains(t, string(data), "2024-03-25T10:30:00Z,march.xlsx,12,9,2,1,false")

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Open(dir).Append(testEntry()))

	e2 := testEntry()
	e2.Source = "april, final.csv"
	e2.DryRun = true
	require.NoError(t, Open(dir).Append(e2))

	entries, err := Open(dir).Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "march.xlsx", entries[0].Source)
	assert.Equal(t, "april, final.csv", entries[1].Source)
	assert.True(t, entries[1].DryRun)

	data, err := os.ReadFile(Open(dir).Path())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "timestamp,"), "header written once")
}

func TestAppend_LocalTimeStoredUTC(t *testing.T) {
	l := Open(t.TempDir())
	e := testEntry()
	e.Timestamp = testTime.In(time.FixedZone("CET", 3600))
	require.NoError(t, l.Append(e))

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, testTime.Equal(entries[0].Timestamp))
}

func TestEntries_NoFile(t *testing.T) {
	entries, err := Open(t.TempDir()).Entries()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestEntries_Corrupt(t *testing.T) {
	l := Open(t.TempDir())
	require.NoError(t, l.Append(testEntry()))

	f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("2024-03-26T00:00:00Z,b.csv,x,1,0,0,false\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = l.Entries()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestParseRecord_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record []string
	}{
		{"field count", []string{"2024-03-25T10:30:00Z", "a"}},
		{"timestamp", []string{"yesterday", "a", "1", "1", "0", "0", "false"}},
		{"count", []string{"2024-03-25T10:30:00Z", "a", "x", "1", "0", "0", "false"}},
		{"dry run", []string{"2024-03-25T10:30:00Z", "a", "1", "1", "0", "0", "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.record)
			assert.Error(t, err)
		})
	}
}
