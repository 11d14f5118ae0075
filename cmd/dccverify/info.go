package main

import (
	"github.com/spf13/cobra"
	"github.com/tonylturner/dccverify/internal/app"
)

func newGroupsCmd() *cobra.Command {
	var suiteFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List the test groups",
		Example: `  dccverify groups
  dccverify groups --suite extra.yaml --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.ListGroups(cmd.OutOrStdout(), suiteFile, verbose)
		},
	}
	cmd.Flags().StringVar(&suiteFile, "suite", "", "YAML file with extra or replacement groups")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every case")
	return cmd
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.ListPorts(cmd.OutOrStdout())
		},
	}
}

func newCaptureDumpCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:     "capture-dump",
		Short:   "Print a wire capture recorded with --capture",
		Example: `  dccverify capture-dump --input run.pcap`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if input == "" {
				return missingFlagError(cmd, "--input")
			}
			return app.DumpCapture(cmd.OutOrStdout(), input)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Capture file")
	return cmd
}

func newMetricsSummaryCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:     "metrics-summary",
		Short:   "Summarize a metrics CSV written by run --metrics-csv",
		Example: `  dccverify metrics-summary --input rtt.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if input == "" {
				return missingFlagError(cmd, "--input")
			}
			return app.SummarizeMetrics(cmd.OutOrStdout(), input)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Metrics CSV file")
	return cmd
}

func newInitConfigCmd() *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a starter config file",
		Example: `  dccverify init-config
  dccverify init-config --output bench.yaml --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.InitConfig(cmd.OutOrStdout(), output, force)
		},
	}
	cmd.Flags().StringVar(&output, "output", "dccverify.yaml", "Where to write the config")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
