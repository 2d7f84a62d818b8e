package commands

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankfeed/internal/batch"
	"github.com/cleared-dev/bankfeed/internal/config"
	"github.com/cleared-dev/bankfeed/internal/importer"
	"github.com/cleared-dev/bankfeed/internal/storage"
)

func TestAfterUpload_CommitsCompleteDatabase(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, runInit(ctx, io.Discard, dir, config.DriverSQLite, true))

	ws, err := (&globalOptions{repo: dir, v: config.NewViper()}).load()
	require.NoError(t, err)
	s, err := ws.openStore(ctx)
	require.NoError(t, err)
	defer s.Close()

	sheet, err := (&importer.CSVReader{}).Read(strings.NewReader(
		"Fecha;Descripción;Importe\n"+
			"01/03/2024;MERCADONA VALENCIA;-45,20\n"+
			"02/03/2024;REPSOL GASOLINERA;-60,00\n"), ws.cfg.ImportOptions())
	require.NoError(t, err)
	report, err := ws.processor(s).Process(ctx, "march.csv", sheet.Rows, batch.Options{})
	require.NoError(t, err)
	require.Len(t, report.New, 2)

	// The store stays open, as it does under serve.
	require.NoError(t, ws.afterUpload(s)(ctx, "march.csv", report))

	subject, err := exec.Command("git", "-C", dir, "log", "-1", "--format=%s").Output()
	require.NoError(t, err)
	assert.Equal(t, "upload: march.csv", strings.TrimSpace(string(subject)))

	blob, err := exec.Command("git", "-C", dir, "show", "HEAD:data/bankfeed.db").Output()
	require.NoError(t, err)
	committed := filepath.Join(t.TempDir(), "committed.db")
	require.NoError(t, os.WriteFile(committed, blob, 0o600))

	c, err := storage.NewSQLiteStorage(ctx, committed)
	require.NoError(t, err)
	defer c.Close()
	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
