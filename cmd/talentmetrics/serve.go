package main

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/talentmetrics/internal/pipeline"
	"github.com/JonMunkholm/talentmetrics/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the run-control API and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			runner, closeStore, err := a.newRunner(ctx, false, pipeline.NewInstruments(nil))
			if err != nil {
				return err
			}
			defer closeStore()

			server := web.NewServer(runner, a.cfg.Server, nil, nil)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if status := runner.Limiter().Status(); status.Active > 0 {
				slog.Info("waiting for run to complete", "active", status.Active)
			}
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
}
