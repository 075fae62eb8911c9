package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitwit/x402pay/types"
)

func signCmd(load configLoader) *cobra.Command {
	var index int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sign [file|-]",
		Short: "Sign an on-chain option of a 402 body with X402PAY_WALLET_PRIVATE_KEY",
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

			// the engine reports prepaid-only and empty option lists itself
			var option *types.PaymentOption
			if options := req.X402Options(); len(options) > 0 {
				if index < 0 || index >= len(options) {
					return fmt.Errorf("option index %d out of range, %d on-chain options", index, len(options))
				}
				option = &options[index]
			}

			signed, err := engine.SignPayment(cmd.Context(), req, option)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd, signed)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", signed.HeaderName, signed.HeaderValue)
			return err
		},
	}
	cmd.Flags().IntVar(&index, "option", 0, "index of the on-chain option to sign")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the signed payment as JSON instead of a header line")
	return cmd
}
