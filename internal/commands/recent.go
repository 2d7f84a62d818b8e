package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/server"
)

func newRecentCommand(g *globalOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the latest stored transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 || count > server.MaxRecentCount {
				return fmt.Errorf("--count must be between 1 and %d", server.MaxRecentCount)
			}
			ws, err := g.load()
			if err != nil {
				return err
			}
			return runRecent(cmd.Context(), cmd.OutOrStdout(), ws, count)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", server.DefaultRecentCount, "number of transactions")

	return cmd
}

func runRecent(ctx context.Context, out io.Writer, ws *workspace, count int) error {
	s, err := ws.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	txns, err := s.Recent(ctx, count)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Fprintln(out, "No transactions recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tAMOUNT")
	for _, t := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Date.Format(model.DateFormat), t.Description, t.Amount.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	total, err := s.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d transactions\n", len(txns), total)
	return nil
}
