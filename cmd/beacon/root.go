package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/beacon/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Beacon - in-process observability core",
	Long: `Beacon is an observability core for web applications.

It provides:
  - Span tracing with trace context propagation and OTLP export
  - Counters, gauges, histograms and summaries with Prometheus text output
  - Web vitals thresholds, bundle budgets and build regression alerts
  - Health, readiness and version probes`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (built-in defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
