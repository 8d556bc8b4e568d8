package main

import (
	"github.com/aretw0/operant/internal/cli"
	"github.com/spf13/cobra"
)

var recoverCmd = &cobra.Command{
	Use:   "recover [session-id]",
	Short: "Rewrite the data file of an interrupted session from its journal",
	Long: `Rebuilds the CSV data file of a session that did not reach teardown.
The file gets the name the session itself would have written, so it replaces
any partial flush. Without an argument, lists the journaled sessions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return cli.ListSessions(cmd.Context(), cmd.OutOrStdout(), cfg)
		}
		return cli.RecoverSession(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
	recoverCmd.Flags().String("experiment", "", "Experiment code for journals that predate session metadata")
	bindOnRun(recoverCmd, map[string]string{"experiment": "experiment"})
}
