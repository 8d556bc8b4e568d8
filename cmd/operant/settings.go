package main

import (
	"github.com/aretw0/operant/internal/cli"
	"github.com/spf13/cobra"
)

var validateSettingsCmd = &cobra.Command{
	Use:   "validate-settings [file]",
	Short: "Check every row of the subject settings sheet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.Settings
		if len(args) > 0 {
			path = args[0]
		}
		return cli.ValidateSettings(cmd.OutOrStdout(), path)
	},
}

func init() {
	rootCmd.AddCommand(validateSettingsCmd)
}
