package cmd

import (
	"github.com/spf13/cobra"
	x402 "github.com/vitwit/x402pay"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, x402.GetVersion())
		},
	}
}
