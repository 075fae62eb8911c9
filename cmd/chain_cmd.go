package cmd

import (
	"github.com/spf13/cobra"
	"github.com/vitwit/x402pay/types"
)

type chainInfo struct {
	Network     string `json:"network"`
	ChainID     string `json:"chainId"`
	DisplayName string `json:"displayName"`
	Testnet     bool   `json:"testnet"`
}

func chainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain <network>",
		Short: "Resolve a network identifier to its EVM chain id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			network := types.Network(args[0])
			chainID, err := network.ChainID()
			if err != nil {
				return err
			}
			return printJSON(cmd, chainInfo{
				Network:     network.String(),
				ChainID:     chainID.String(),
				DisplayName: network.DisplayName(),
				Testnet:     network.IsTestnet(),
			})
		},
	}
}
