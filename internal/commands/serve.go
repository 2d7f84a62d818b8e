package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankfeed/internal/batch"
	"github.com/cleared-dev/bankfeed/internal/importlog"
	"github.com/cleared-dev/bankfeed/internal/logger"
	"github.com/cleared-dev/bankfeed/internal/server"
)

func newServeCommand(g *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload server",
		Long: `Serve accepts spreadsheet uploads over HTTP and stores their new
transactions. Batches take <repo>/.bankfeed.lock, shared with 'bankfeed import'.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				ws.cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), ws)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, ws *workspace) error {
	s, err := ws.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := server.New(server.Config{
		Processor:      ws.processor(s),
		Store:          s,
		ImportOptions:  ws.cfg.ImportOptions(),
		MaxUploadBytes: ws.cfg.MaxUploadBytes(),
		AfterBatch:     ws.afterUpload(s),
		Logger:         *logger.FromContext(ctx),
	})
	return srv.ListenAndServe(ctx, ws.cfg.Server.Addr)
}

// afterUpload returns the hook that records an uploaded batch in the import
// log and commits the workspace, checkpointing s first so the committed
// database file holds the batch.
func (w *workspace) afterUpload(s store) server.AfterBatch {
	return func(ctx context.Context, source string, r *batch.Report) error {
		w.mu.Lock()
		defer w.mu.Unlock()

		if err := importlog.Open(w.root).Append(logEntry(source, r)); err != nil {
			return err
		}
		if err := s.Checkpoint(ctx); err != nil {
			return err
		}
		hash, err := w.commit("upload: " + source)
		if err != nil {
			return err
		}
		if hash != "" {
			logger.FromContext(ctx).Info().Str("commit", hash).Str("source", source).Msg("workspace committed")
		}
		return nil
	}
}
