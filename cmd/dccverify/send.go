package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tonylturner/dccverify/internal/app"
)

type sendFlags struct {
	common commonFlags
	expect string
	copy   bool
}

func newSendCmd() *cobra.Command {
	flags := &sendFlags{}

	cmd := &cobra.Command{
		Use:   "send <line> [line...]",
		Short: "Send command lines and show the echo and answer",
		Long: `Probe the station's feedback mode, then send each line, wait for the echo
and the answer, and print both with the round-trip time. With --expect the
answer is checked the same way "run" checks a case.`,
		Example: `  # Ask for the track state
  dccverify send --port /dev/ttyACM0 "T ?"

  # Read CV 8 and require the NMRA manufacturer ID
  dccverify send --port /dev/ttyACM0 --expect 151 "C 8 ?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				_ = cmd.Help()
				return fmt.Errorf("at least one command line is required")
			}
			if err := flags.common.needsPort(cmd); err != nil {
				return err
			}
			_, err := app.RunSend(app.SendOptions{
				CommonOptions: flags.common.options(cmd),
				Lines:         args,
				Expect:        flags.expect,
				Copy:          flags.copy,
			})
			return err
		},
	}

	addCommonFlags(cmd, &flags.common)
	cmd.Flags().StringVar(&flags.expect, "expect", "", "Expected answer (empty accepts any)")
	cmd.Flags().BoolVar(&flags.copy, "copy", false, "Copy the transcript to the clipboard")

	return cmd
}
