package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"odd-hq/decisioning/pkg/cli"
	"odd-hq/decisioning/pkg/config"
	"odd-hq/decisioning/pkg/decisioning"
	"odd-hq/decisioning/pkg/history"
	"odd-hq/decisioning/pkg/telemetry/logging"
	"odd-hq/decisioning/pkg/telemetry/metrics"
	"odd-hq/decisioning/pkg/telemetry/tracing"
)

// loadConfig reads --config with ODD_* and command flag overrides applied.
func loadConfig(overrides ...config.Override) (*config.Config, error) {
	if verbose {
		overrides = append(overrides, func(cfg *config.Config) {
			cfg.Telemetry.Logging.Level = "debug"
		})
	}
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile, overrides...)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// app holds the collaborators shared by the decide and serve commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracer  *tracing.Tracer
	metrics *metrics.Collector
	history history.Store
	pruner  *history.Pruner
	client  *decisioning.Client
}

// newApp wires logging, tracing, metrics and history into a decisioning
// client.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.New(cfg.Telemetry.Logging, logOut)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}

	a := &app{cfg: cfg, logger: logger}

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}
	a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	if cfg.History.Enabled {
		if a.history, err = history.Open(cfg.History, logger); err != nil {
			a.Close()
			return nil, err
		}
		if cfg.History.Retention > 0 {
			a.pruner = history.NewPruner(a.history, cfg.History.Retention, cfg.History.PruneSchedule, logger)
		}
	}

	opts := decisioning.OptionsFromConfig(cfg)
	opts.Logger = logger
	opts.Metrics = a.metrics
	opts.Tracer = a.tracer.Tracer()
	opts.History = a.history

	if a.client, err = decisioning.NewClient(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases everything newApp created.
func (a *app) Close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.pruner != nil {
		a.pruner.Stop()
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(context.Background()))
	}
	return errors.Join(errs...)
}
