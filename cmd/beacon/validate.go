package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/beacon/pkg/cli"
)

var validateFlags struct {
	show   bool
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply BEACON_* environment overrides and
validate the result.

Every invalid field is reported. The command exits with status 2 when the
configuration is invalid.

Examples:
  # Validate a configuration file
  beacon validate --config beacon.yaml

  # Print the effective configuration after defaults and overrides
  beacon validate --config beacon.yaml --show --format yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.show, "show", false, "print the effective configuration")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "yaml", "output format for --show: json, yaml")
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := cfgFile
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Fprintf(out, "✓ Configuration valid (%s)\n", source)
	if verbose {
		fmt.Fprintf(out, "  budgets: %d, trace table: %d, exporter: %s, report schedule: %s\n",
			len(cfg.Performance.Budgets),
			cfg.Telemetry.Tracing.MaxTraces,
			cfg.Telemetry.Tracing.Exporter,
			cfg.Performance.ReportSchedule,
		)
	}

	if validateFlags.show {
		if format == cli.FormatText {
			format = cli.FormatYAML
		}
		return cli.NewFormatter(format).FormatTo(out, cfg)
	}
	return nil
}
