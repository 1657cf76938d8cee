package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-sidecar-shell/internal/orchestrator"
	"github.com/randomizedcoder/go-sidecar-shell/internal/settings"
)

func newServerURLCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server-url",
		Short: "Show or change the stored default server URL",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the default server URL",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore(cmd, *cfgFile)
				if err != nil {
					return err
				}
				if url := store.GetDefaultServerURL(); url != nil {
					fmt.Fprintln(cmd.OutOrStdout(), *url)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "(not set, a local sidecar is used)")
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <url>",
			Short: "Store the default server URL",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore(cmd, *cfgFile)
				if err != nil {
					return err
				}
				url := args[0]
				if err := store.SetDefaultServerURL(&url); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "default server url set to %s\n", url)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the default server URL",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore(cmd, *cfgFile)
				if err != nil {
					return err
				}
				if err := store.SetDefaultServerURL(nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "default server url cleared")
				return nil
			},
		},
	)
	return cmd
}

func openStore(cmd *cobra.Command, cfgFile string) (*settings.Store, error) {
	cfg, err := loadConfig(cmd, cfgFile)
	if err != nil {
		return nil, err
	}
	return orchestrator.OpenSettings(cfg.SettingsPath)
}
