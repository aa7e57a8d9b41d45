package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rahul4469/gitgrade/internal/config"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change saved settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the saved settings (the API key is masked)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				settings, path, err := root.loadSettings()
				if err != nil {
					return err
				}
				shown := *settings
				shown.APIKey = settings.MaskedAPIKey()
				out, err := yaml.Marshal(&shown)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, out)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change one setting (" + strings.Join(config.UserSettingKeys(), ", ") + ")",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				settings, path, err := root.loadSettings()
				if err != nil {
					return err
				}
				if err := settings.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := settings.Save(path); err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), fmt.Sprintf("Saved %s to %s", args[0], path))
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the settings file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := root.settingsPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)

	return cmd
}
