package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tonylturner/dccverify/internal/report"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dccverify version %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "date: %s\n", date)
		},
	}
}

func buildInfo() report.Build {
	return report.Build{Version: version, Commit: commit, Date: date}
}
