// Package server exposes batch processing over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/bankfeed/internal/batch"
	"github.com/cleared-dev/bankfeed/internal/importer"
	"github.com/cleared-dev/bankfeed/internal/model"
)

// Processor runs one batch of rows.
type Processor interface {
	Process(ctx context.Context, source string, rows []model.RawRow, opts batch.Options) (*batch.Report, error)
}

// Store is the read side of storage used by the transport.
type Store interface {
	Recent(ctx context.Context, n int) ([]model.Transaction, error)
	Ping(ctx context.Context) error
}

// AfterBatch runs once a batch completes without error.
type AfterBatch func(ctx context.Context, source string, report *batch.Report) error

// Config wires a Server.
type Config struct {
	Processor      Processor
	Store          Store
	Registry       *importer.Registry // importer.DefaultRegistry when nil
	ImportOptions  importer.Options
	MaxUploadBytes int64
	AfterBatch     AfterBatch // may be nil
	Logger         zerolog.Logger
}

// Server is the HTTP transport.
type Server struct {
	proc       Processor
	store      Store
	registry   *importer.Registry
	opts       importer.Options
	maxUpload  int64
	afterBatch AfterBatch
	log        zerolog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	reg := cfg.Registry
	if reg == nil {
		reg = importer.DefaultRegistry()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 16 << 20
	}
	return &Server{
		proc:       cfg.Processor,
		store:      cfg.Store,
		registry:   reg,
		opts:       cfg.ImportOptions,
		maxUpload:  maxUpload,
		afterBatch: cfg.AfterBatch,
		log:        cfg.Logger,
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http: %w", err)
	}
	return nil
}
