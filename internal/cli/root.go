// Package cli wires the daemon's commands: run, check and version.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/k4bek4be/unrealircd/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	log *logging.Logger
)

const defaultConfigPath = "unrealircd.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unrealircd",
		Short: "unrealircd — modular IRC daemon",
		Long:  "A modular IRC daemon whose message tags, capabilities, channel modes and other protocol extensions are provided by hot-reloadable modules.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				cfgFile = defaultConfigPath
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default unrealircd.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCheckCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
