// Package cmd implements the x402pay command line tool.
package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	x402 "github.com/vitwit/x402pay"
	"github.com/vitwit/x402pay/clients"
	"github.com/vitwit/x402pay/config"
	"github.com/vitwit/x402pay/logger"
)

// RootCommand will setup and return the root command
func RootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "x402pay",
		Short:         "Inspect and pay x402 Payment Required responses",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "the env file to load")

	load := func() (*config.Config, error) {
		return config.Load(configFile)
	}

	rootCmd.AddCommand(
		parseCmd(load),
		chainCmd(),
		railsCmd(load),
		signCmd(load),
		decodeCmd(),
		versionCmd(),
	)
	return rootCmd
}

type configLoader func() (*config.Config, error)

// newEngine builds an engine from config. The wallet and prepaid balance are
// only wired when configured.
func newEngine(cmd *cobra.Command, cfg *config.Config) (*x402.X402, error) {
	l, err := logger.NewZapLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	opts := []x402.Option{x402.WithLogger(l)}

	if cfg.WalletPrivateKey != "" {
		wallet, err := clients.NewPrivateKeyWallet(cfg.WalletPrivateKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, x402.WithSigner(wallet))
	}

	balances := clients.UnknownBalance()
	if b, ok := cfg.Balance(); ok {
		balances.Set(b)
	}
	opts = append(opts, x402.WithBalanceReader(balances))

	return x402.New(cfg, opts...)
}

// readBody reads the 402 body from the named file, or stdin for "-" or no argument.
func readBody(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
