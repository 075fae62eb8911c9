package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitwit/x402pay/rails"
)

func railsCmd(load configLoader) *cobra.Command {
	var preferred string
	var noFallback bool

	cmd := &cobra.Command{
		Use:   "rails [file|-]",
		Short: "Show which payment rails can pay a 402 body",
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

			pref, fallback := engine.Preference()
			if preferred != "" {
				p, ok := rails.ParseRailID(preferred)
				if !ok {
					return fmt.Errorf("unknown rail %q", preferred)
				}
				pref = p
			}
			if noFallback {
				fallback = false
			}

			body, err := readBody(cmd, args)
			if err != nil {
				return err
			}
			req, err := engine.ParseRequirements(body)
			if err != nil {
				return err
			}
			return printJSON(cmd, engine.EvaluateRails(req, pref, fallback))
		},
	}
	cmd.Flags().StringVar(&preferred, "prefer", "", "preferred rail (prepaid|crypto), overrides config")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "do not fall back to another available rail")
	return cmd
}
