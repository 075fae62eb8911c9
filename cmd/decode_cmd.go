package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vitwit/x402pay/signing"
)

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [header-value|-]",
		Short: "Decode an X-PAYMENT or PAYMENT-SIGNATURE header value into its JSON payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 1 && args[0] != "-" {
				value = args[0]
			} else {
				b, err := readBody(cmd, nil)
				if err != nil {
					return err
				}
				value = string(b)
			}

			// accept a whole "Name: value" line as printed by sign
			if _, v, ok := strings.Cut(value, ": "); ok {
				value = v
			}

			var payload json.RawMessage
			if err := signing.DecodeHeaderValue(strings.TrimSpace(value), &payload); err != nil {
				return err
			}
			return printJSON(cmd, payload)
		},
	}
}
