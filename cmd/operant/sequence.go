package main

import (
	"github.com/aretw0/operant/internal/cli"
	"github.com/spf13/cobra"
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Print the trial sequence for a phase and seed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		phase, err := cfg.PhaseValue()
		if err != nil {
			return err
		}
		seed, _ := cmd.Flags().GetUint64("seed")
		return cli.PrintSequence(cmd.OutOrStdout(), phase, seed)
	},
}

func init() {
	rootCmd.AddCommand(sequenceCmd)
	sequenceCmd.Flags().IntP("phase", "p", 0, "Phase: 0 pre-training, 1 choice training")
	sequenceCmd.Flags().Uint64("seed", 1, "Sequence seed")
	bindOnRun(sequenceCmd, map[string]string{"phase": "phase"})
}
