package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmbvcxd/socionics-harvester/internal/api"
	"github.com/jmbvcxd/socionics-harvester/internal/telemetry"
)

// newServeCmd creates the 'serve' subcommand, which exposes the
// pipeline over HTTP alongside health and metrics endpoints.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the harvester HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			h, err := newHarness(ctx)
			if err != nil {
				return err
			}
			defer h.Close()

			tp, err := telemetry.InitTracerProvider(ctx, "socionics-harvester")
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					h.logger.Warn("tracer shutdown failed", zap.Error(err))
				}
			}()

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", h.cfg.Server.Port),
				Handler:           api.NewServer(h.pipe, h.logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				h.logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				h.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve: %w", err)
			}
		},
	}
	return cmd
}
