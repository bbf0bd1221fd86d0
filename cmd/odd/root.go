package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"odd-hq/decisioning/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "odd",
	Short: "On-device personalization decisioning",
	Long: `odd evaluates personalization rulesets locally and answers with the same
response envelope as the edge network: an identity result and the matched
propositions.

Rulesets are fetched from the rules artifact CDN or read from a file, refreshed
on a schedule, and evaluated against page events with deterministic traffic
allocation.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching its error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and ODD_* environment variables when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
