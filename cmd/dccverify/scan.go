package main

import (
	"github.com/spf13/cobra"
	"github.com/tonylturner/dccverify/internal/app"
)

type scanFlags struct {
	common      commonFlags
	railcomOnly bool
	noProgress  bool
	reportJSON  string
}

func newScanCmd() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read and dump the decoder's configuration variables",
		Long: `Read CV 1-256 and CV 257-512 on the default page, then select the RailCom
page (CV31=0, CV32=255) and read CV 257-512 again. CV 257-272 on that page
are decoded as the RailCom identification block. The page selectors are
restored to the default page (CV31=16, CV32=0) afterwards.

With --railcom only CV 257-272 on the RailCom page are read.`,
		Example: `  # Full dump with progress
  dccverify scan --port /dev/ttyACM0

  # Just the RailCom block, saved as JSON
  dccverify scan --port /dev/ttyACM0 --railcom --report-json railcom.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if err := flags.common.needsPort(cmd); err != nil {
				return err
			}
			_, err := app.RunScan(app.ScanOptions{
				CommonOptions: flags.common.options(cmd),
				RailcomOnly:   flags.railcomOnly,
				NoProgress:    flags.noProgress,
				ReportJSON:    flags.reportJSON,
			})
			return err
		},
	}

	addCommonFlags(cmd, &flags.common)
	cmd.Flags().BoolVar(&flags.railcomOnly, "railcom", false, "Read only the RailCom identification block")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Hide the progress bar")
	cmd.Flags().StringVar(&flags.reportJSON, "report-json", "", "Write the scan as JSON")

	return cmd
}
