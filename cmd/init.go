package cmd

import (
	"fmt"

	"github.com/bnema/stars-relay/internal/config"
	"github.com/spf13/cobra"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := flags.settingsPath()
			if err != nil {
				return err
			}

			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nfill purchase.seed and purchase.fragment_cookies, then export session cookies to chat.cookies_file\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing settings file")

	return cmd
}
