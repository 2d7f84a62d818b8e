package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankfeed/internal/config"
	"github.com/cleared-dev/bankfeed/internal/gitops"
)

// journalPath is the default storage path for the csv driver.
const journalPath = "journal"

func newInitCommand() *cobra.Command {
	var driver string
	var git bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new bankfeed workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, driver, git)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", config.DriverSQLite, "storage driver (sqlite, csv)")
	cmd.Flags().BoolVar(&git, "git", false, "version the workspace with git and commit after each import")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, driver string, git bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	cfg.Storage.Driver = driver
	if driver == config.DriverCSV {
		cfg.Storage.Path = journalPath
	}
	cfg.Git.AutoCommit = git
	if err := cfg.Validate(); err != nil {
		return err
	}

	dirs := []string{
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}
	gitignore := "*.db-wal\n*.db-shm\n" + LockFile + "\nimport/~$*\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	ws := &workspace{root: dir, cfg: cfg}
	s, err := ws.openStore(ctx)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("closing storage: %w", err)
	}

	if git {
		if !gitops.IsRepo(dir) {
			if err := gitops.Init(dir); err != nil {
				return err
			}
		}
		hash, err := gitops.CommitAll(dir, "init: bankfeed workspace", ws.author())
		if err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
		fmt.Fprintf(out, "Initialized bankfeed workspace at %s (%s)\n", dir, hash)
		return nil
	}

	fmt.Fprintf(out, "Initialized bankfeed workspace at %s\n", dir)
	return nil
}
