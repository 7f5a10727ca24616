package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags
	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "ghoststation",
		Short:         "Ghost Station anomaly correlation daemon and CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadDotEnv(flags.config)
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&flags.addr, "addr", "", "Daemon API address (defaults to paths.api_bind)")
	rootCmd.PersistentFlags().StringVar(&flags.token, "token", "", "API bearer token (defaults to paths.api_token)")
	rootCmd.PersistentFlags().BoolVar(&flags.json, "json", false, "Emit JSON instead of tables")

	rootCmd.AddCommand(newDaemonCommand(ctx))
	rootCmd.AddCommand(newTriggerCommand(ctx))
	rootCmd.AddCommand(newEVPCommand(ctx))
	rootCmd.AddCommand(newSessionCommand(ctx))
	rootCmd.AddCommand(newEventsCommand(ctx))
	rootCmd.AddCommand(newEventCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
