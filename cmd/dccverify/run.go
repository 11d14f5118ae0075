package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tonylturner/dccverify/internal/app"
	"github.com/tonylturner/dccverify/internal/progress"
)

type runFlags struct {
	common      commonFlags
	groups      []string
	suiteFile   string
	failExit    bool
	pick        bool
	tui         bool
	quiet       bool
	noColor     bool
	metricsCSV  string
	metricsJSON string
	reportJSON  string
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run test groups against a command station",
		Long: `Run the built-in test catalog (or the groups you name) against a command
station. Every group runs twice: first with verbose feedback ("V C ON"), then
quiet ("V C OFF"). Verbose answers are matched by prefix and the echo must be
"OK"; quiet answers must match exactly. The station is switched back to
verbose feedback at the end of the run.

Groups from --suite are appended to the catalog; a group with the same name
replaces the built-in one.`,
		Example: `  # Run the whole catalog on the first Arduino port
  dccverify run --port /dev/ttyACM0

  # Run two groups and fail the exit status on any failed case
  dccverify run --port COM3 --group track --group cv --fail-exit

  # Pick groups interactively and watch the dashboard
  dccverify run --port /dev/ttyACM0 --pick --tui

  # Try the harness against the built-in simulator
  dccverify run --port sim:// --metrics-csv rtt.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if err := flags.common.needsPort(cmd); err != nil {
				return err
			}
			if flags.tui && flags.quiet {
				return fmt.Errorf("--tui and --quiet cannot be combined")
			}
			_, err := app.RunSuite(app.RunOptions{
				CommonOptions: flags.common.options(cmd),
				Groups:        flags.groups,
				SuiteFile:     flags.suiteFile,
				FailExit:      flags.failExit,
				Pick:          flags.pick,
				TUI:           flags.tui,
				Quiet:         flags.quiet,
				Color:         !flags.noColor && progress.IsTerminal(cmd.OutOrStdout()),
				MetricsCSV:    flags.metricsCSV,
				MetricsJSON:   flags.metricsJSON,
				ReportJSON:    flags.reportJSON,
			})
			return err
		},
	}

	addCommonFlags(cmd, &flags.common)
	cmd.Flags().StringArrayVar(&flags.groups, "group", nil, "Run only this group (repeatable)")
	cmd.Flags().StringVar(&flags.suiteFile, "suite", "", "YAML file with extra or replacement groups")
	cmd.Flags().BoolVar(&flags.failExit, "fail-exit", false, "Exit with status 1 when any case fails")
	cmd.Flags().BoolVar(&flags.pick, "pick", false, "Choose groups interactively")
	cmd.Flags().BoolVar(&flags.tui, "tui", false, "Show a live dashboard")
	cmd.Flags().BoolVar(&flags.quiet, "quiet", false, "Print only a case counter and the summary")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&flags.metricsCSV, "metrics-csv", "", "Write one CSV row per exchange")
	cmd.Flags().StringVar(&flags.metricsJSON, "metrics-json", "", "Write exchanges as JSON lines")
	cmd.Flags().StringVar(&flags.reportJSON, "report-json", "", "Write the run report as JSON")
	_ = cmd.RegisterFlagCompletionFunc("group", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return app.GroupNames(flags.suiteFile), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
