package cmd

import (
	"github.com/spf13/cobra"
)

func parseCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse a 402 Payment Required body and print the normalized requirements",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			engine, err := newEngine(cmd, cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			body, err := readBody(cmd, args)
			if err != nil {
				return err
			}
			req, err := engine.ParseRequirements(body)
			if err != nil {
				return err
			}
			return printJSON(cmd, req)
		},
	}
}
