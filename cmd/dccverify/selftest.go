package main

import (
	"github.com/spf13/cobra"
	"github.com/tonylturner/dccverify/internal/app"
	"github.com/tonylturner/dccverify/internal/sim"
)

type selfTestFlags struct {
	logLevel string
	faults   sim.Faults
	quiet    bool
}

func newSelfTestCmd() *cobra.Command {
	flags := &selfTestFlags{}

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the catalog against an emulated station over loopback TCP",
		Long: `Start an emulated command station on a localhost TCP port and run the whole
catalog and a RailCom read against it. Every case must pass.

The fault flags make the emulated station misbehave every Nth line so the
resync path can be exercised.`,
		Example: `  # Plain loopback validation
  dccverify selftest

  # Inject a stray line every 7 commands and a boot banner
  dccverify selftest --stray 7 --banner`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.RunSelfTest(app.SelfTestOptions{
				CommonOptions: app.CommonOptions{
					LogLevel: flags.logLevel,
					Stdout:   cmd.OutOrStdout(),
					Stderr:   cmd.ErrOrStderr(),
					Build:    buildInfo(),
				},
				Faults: flags.faults,
				Quiet:  flags.quiet,
			})
		},
	}

	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: silent, error, info, verbose or debug")
	cmd.Flags().IntVar(&flags.faults.StrayEvery, "stray", 0, "Emit an unsolicited line every N commands")
	cmd.Flags().IntVar(&flags.faults.DropResponseEvery, "drop", 0, "Drop the answer every N commands")
	cmd.Flags().IntVar(&flags.faults.CorruptEchoEvery, "corrupt-echo", 0, "Corrupt the verbose echo every N commands")
	cmd.Flags().BoolVar(&flags.faults.Banner, "banner", false, "Print a boot banner on connect")
	cmd.Flags().BoolVar(&flags.quiet, "quiet", false, "Print only the summary")

	return cmd
}
