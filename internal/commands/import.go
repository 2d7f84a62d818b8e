package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankfeed/internal/batch"
	"github.com/cleared-dev/bankfeed/internal/importer"
	"github.com/cleared-dev/bankfeed/internal/importlog"
)

func newImportCommand(g *globalOptions) *cobra.Command {
	var dryRun bool
	var keep bool

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import bank exports, skipping transactions already recorded",
		Long: `Import processes the given spreadsheets, or every spreadsheet waiting in
<repo>/import/ when none are given. Files taken from import/ are moved to
import/processed/ afterwards unless --keep or --dry-run is set.

Each file is resolved while holding <repo>/.bankfeed.lock, so an import can
run next to 'bankfeed serve' on the same workspace.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := g.load()
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), cmd.OutOrStdout(), ws, args, dryRun, keep)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be imported without storing anything")
	cmd.Flags().BoolVar(&keep, "keep", false, "leave imported files in import/")

	return cmd
}

// importFile is one spreadsheet to process.
type importFile struct {
	name    string
	path    string
	archive bool // lives in import/ and may be moved to import/processed/
}

func runImport(ctx context.Context, out io.Writer, ws *workspace, args []string, dryRun, keep bool) error {
	files, err := importFiles(ws.root, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No files to import.")
		return nil
	}

	s, err := ws.openStore(ctx)
	if err != nil {
		return err
	}

	proc := ws.processor(s)
	reg := importer.DefaultRegistry()
	opts := ws.cfg.ImportOptions()

	var entries []importlog.Entry
	var imported []string
	var failed []error
	for _, f := range files {
		sheet, err := reg.ReadFile(f.path, opts)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", f.name, err)
			failed = append(failed, fmt.Errorf("%s: %w", f.name, err))
			continue
		}

		report, err := proc.Process(ctx, f.name, sheet.Rows, batch.Options{DryRun: dryRun})
		if report != nil {
			printReport(out, f.name, report)
			entries = append(entries, logEntry(f.name, report))
		}
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", f.name, err))
			break
		}
		imported = append(imported, f.name)

		if f.archive && !keep && !dryRun {
			if err := importer.MarkProcessed(ws.root, f.name); err != nil {
				failed = append(failed, err)
			}
		}
	}

	if err := s.Close(); err != nil {
		failed = append(failed, fmt.Errorf("closing storage: %w", err))
	}

	if len(entries) > 0 {
		if err := importlog.Open(ws.root).Append(entries...); err != nil {
			failed = append(failed, fmt.Errorf("writing import log: %w", err))
		}
	}

	if !dryRun && len(imported) > 0 {
		hash, err := ws.commit("import: " + strings.Join(imported, ", "))
		if err != nil {
			failed = append(failed, fmt.Errorf("committing workspace: %w", err))
		} else if hash != "" {
			fmt.Fprintf(out, "Committed %s\n", hash)
		}
	}

	return errors.Join(failed...)
}

// importFiles returns the explicit files, or the contents of import/ when
// none were given.
func importFiles(root string, args []string) ([]importFile, error) {
	importDir := filepath.Join(root, "import")
	if len(args) > 0 {
		files := make([]importFile, 0, len(args))
		for _, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				return nil, fmt.Errorf("resolving %s: %w", a, err)
			}
			files = append(files, importFile{
				name:    filepath.Base(abs),
				path:    abs,
				archive: filepath.Dir(abs) == importDir,
			})
		}
		return files, nil
	}

	found, err := importer.Scan(root)
	if err != nil {
		return nil, err
	}
	files := make([]importFile, 0, len(found))
	for _, f := range found {
		files = append(files, importFile{name: f.Name, path: f.Path, archive: true})
	}
	return files, nil
}

func printReport(out io.Writer, name string, r *batch.Report) {
	fmt.Fprintln(out, r.Message(name))
	for _, m := range r.Malformed {
		fmt.Fprintf(out, "  skipped %v\n", m)
	}
}

func logEntry(source string, r *batch.Report) importlog.Entry {
	return importlog.Entry{
		Timestamp:  time.Now().UTC(),
		Source:     source,
		Processed:  r.Processed,
		Accepted:   r.Accepted,
		Duplicates: r.Duplicates,
		Malformed:  len(r.Malformed),
		DryRun:     r.DryRun,
	}
}
