package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"odd-hq/decisioning/pkg/cli"
	"odd-hq/decisioning/pkg/config"
	"odd-hq/decisioning/pkg/server"
	"odd-hq/decisioning/pkg/telemetry/health"
)

var serveFlags struct {
	listenAddress string
	originURL     string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the decide server",
	Long: `Start the decide server with the specified configuration.

The server answers page events on /decide and, when an origin is configured,
proxies "/" to the origin and rewrites its pages with the matched content.

Examples:
  # Start with defaults and ODD_* environment variables
  odd serve

  # Personalize a site on a custom port
  odd serve --config odd.yaml --listen :9090 --origin https://luma.com

  # Validate the configuration without starting the server
  odd serve --config odd.yaml --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.originURL, "origin", "", "override the origin site to personalize")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting server")
}

// serveOverrides maps the serve flags onto the configuration.
func serveOverrides() config.Override {
	return func(cfg *config.Config) {
		if serveFlags.listenAddress != "" {
			cfg.Server.ListenAddress = serveFlags.listenAddress
		}
		if serveFlags.originURL != "" {
			cfg.Server.OriginURL = serveFlags.originURL
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(serveOverrides())
	if err != nil {
		return err
	}
	if serveFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
		return nil
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer a.Close()

	if a.pruner != nil {
		if err := a.pruner.Start(ctx); err != nil {
			a.logger.Warn("failed to start history pruner", "error", err)
		}
	}

	opts := []server.Option{
		server.WithHealth(a.checker()),
		server.WithVersion(Version, GitCommit),
		server.WithLogger(a.logger),
	}
	if cfg.Telemetry.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(cfg.Telemetry.Metrics.Path, a.metrics.Handler()))
	}

	srv := server.New(cfg.Server, a.client, opts...)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// checker reports the server ready once rules are loaded and the history
// store answers.
func (a *app) checker() *health.Checker {
	checker := health.New(health.DefaultCheckTimeout, a.logger)
	if a.client.ODDEnabled() {
		checker.RegisterCheck("rules", func(ctx context.Context) error {
			if a.client.Engine().Ruleset() == nil {
				return errors.New("no ruleset loaded")
			}
			return nil
		})
	}
	if a.history != nil {
		checker.RegisterCheck("history", a.history.Ping)
	}
	return checker
}
