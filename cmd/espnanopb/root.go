package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kitextech/ESPNanopb/internal/config"
	"github.com/kitextech/ESPNanopb/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the root command.
func Execute(ctx context.Context) error {
	root, err := newRootCmd()
	if err != nil {
		return err
	}
	return root.ExecuteContext(ctx)
}

func newRootCmd() (*cobra.Command, error) {
	var debug bool
	rootCmd := &cobra.Command{
		Use:           "espnanopb",
		Short:         "espnanopb regenerates the nanopb bridge, copies it into the firmware library and tags a release",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(debug)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("dir", "C", "", "run as if started in this directory")
	flags.String("config", config.DefaultPath, "config file path")
	flags.String("env-file", ".env", "dotenv file with ESPNANOPB_* overrides")
	flags.String("mode", "", "failure mode override: strict or best-effort")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	for _, name := range []string{"dir", "config", "env-file", "mode"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind %s flag: %w", name, err)
		}
	}

	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(distributeCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(initCmd())
	return rootCmd, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
