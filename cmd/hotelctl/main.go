// cmd/hotelctl is the operator CLI for a running hotelledger node.
package main

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

const defaultServer = "http://localhost:5000"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err)
		os.Exit(1)
	}
}

type cliOptions struct {
	cfgFile string
	server  string
	format  string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	v := viper.New()

	root := &cobra.Command{
		Use:   "hotelctl",
		Short: "Hotel booking ledger CLI",
		Long: `hotelctl talks to a hotelledger node: submit bookings, mine the
pending queue into a block, browse the chain and audit its integrity.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfgFile != "" {
				v.SetConfigFile(opts.cfgFile)
			} else {
				home, _ := os.UserHomeDir()
				v.AddConfigPath(home + "/.hotelctl")
				v.SetConfigName("config")
				v.SetConfigType("yaml")
			}
			v.SetEnvPrefix("hotelctl")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			_ = v.ReadInConfig()

			if opts.server == "" {
				opts.server = v.GetString("server")
			}
			if opts.server == "" {
				opts.server = defaultServer
			}
			return validateFormat(opts.format)
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default ~/.hotelctl/config.yaml)")
	root.PersistentFlags().StringVar(&opts.server, "server", "", "hotelledger node URL (default "+defaultServer+")")
	root.PersistentFlags().StringVarP(&opts.format, "format", "o", "text", "Output format: text, json or yaml")

	root.AddCommand(
		newBookCmd(opts),
		newMineCmd(opts),
		newChainCmd(opts),
		newPendingCmd(opts),
		newVerifyCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}
