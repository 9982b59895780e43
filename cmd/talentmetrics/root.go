package main

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/talentmetrics/internal/config"
	"github.com/JonMunkholm/talentmetrics/internal/core"
	"github.com/JonMunkholm/talentmetrics/internal/logging"
	"github.com/JonMunkholm/talentmetrics/internal/metrics"
	"github.com/JonMunkholm/talentmetrics/internal/notify"
	"github.com/JonMunkholm/talentmetrics/internal/pipeline"
	"github.com/JonMunkholm/talentmetrics/internal/report"
	"github.com/JonMunkholm/talentmetrics/internal/storage"
	"github.com/spf13/cobra"
)

// app carries state shared by subcommands once the root command has run.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "talentmetrics",
		Short:         "Clean platform exports, compute engagement metrics and publish reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("failed to load configuration", "error", err)
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			slog.Debug("configuration loaded", "config", cfg.String())
			slog.Info("entities registered", "count", core.EntityCount())

			a.cfg = cfg
			return nil
		},
	}

	cmd.AddCommand(newRunCmd(a), newServeCmd(a))
	return cmd
}

// newRunner opens the store unless skipStore is set and wires a runner.
// The returned close function releases the store.
func (a *app) newRunner(ctx context.Context, skipStore bool, inst *pipeline.Instruments) (*pipeline.Runner, func(), error) {
	cfg := a.cfg
	opts := pipeline.Options{
		Loader:      core.NewLoader(cfg.Ingest.DataDir),
		Engine:      metrics.NewEngine(),
		Renderer:    report.NewRenderer(cfg.Report),
		Notifier:    notify.New(cfg.Notify),
		Receivers:   cfg.Notify.Receivers,
		TemplateID:  cfg.Notify.TemplateID,
		Instruments: inst,
	}

	closeStore := func() {}
	if !skipStore {
		store, err := storage.Open(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to open store", "error", err)
			return nil, nil, err
		}
		opts.Store = store
		closeStore = func() {
			if err := store.Close(); err != nil {
				slog.Warn("failed to close store", "error", err)
			}
		}
	}

	return pipeline.New(opts), closeStore, nil
}
