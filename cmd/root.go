package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "relay",
		Short:         "Stars relay: watch buyer chats and deliver paid orders",
		Long:          "relay monitors active chat threads, asks buyers who confirmed a payment for a recipient username, buys the stars and reports the transaction back in the thread.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "settings file (default ./settings.toml or ~/.stars-relay/settings.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file loaded before settings (default ./.env when present)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(flags),
		newRunCmd(flags),
		newStateCmd(flags),
	)

	return rootCmd
}
