package main

import (
	"os"

	"github.com/aretw0/operant"
	"github.com/aretw0/operant/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one session",
	Long: `Runs a full session for one subject: acclimation, the generated trial
sequence and teardown. Press q (console display) or Ctrl+C to abort; the
completed trials are still written.`,
	Example: `  operant run --subject Zappa --phase 1
  operant run --subject TEST --display http --addr :8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		debug, _ := cmd.Flags().GetBool("debug")
		yes, _ := cmd.Flags().GetBool("yes")

		return cli.RunSession(cli.RunOptions{
			Config:      cfg,
			Debug:       debug,
			Interactive: !yes && cli.IsTerminal(os.Stdin),
			Version:     operant.Version,
			In:          cmd.InOrStdin(),
			Out:         cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.StringP("subject", "s", "", "Subject ID (row of the settings sheet)")
	flags.IntP("phase", "p", 0, "Phase: 0 pre-training, 1 choice training")
	flags.String("mode", "", "hardware or simulated")
	flags.Uint64("seed", 0, "Sequence seed (0 picks one at random)")
	flags.String("experiment", "", "Experiment code used in the data file name")
	flags.String("display", "", "Display adapter: console or http")
	flags.String("addr", "", "Listen address of the http display and /metrics")
	flags.Bool("metrics", false, "Serve Prometheus metrics")
	flags.Bool("debug", false, "Log every stage, touch and feeder pulse")
	flags.BoolP("yes", "y", false, "Start without the confirmation screen")

	bindOnRun(runCmd, map[string]string{
		"subject":    "subject",
		"phase":      "phase",
		"mode":       "mode",
		"seed":       "seed",
		"experiment": "experiment",
		"display":    "display.kind",
		"addr":       "display.addr",
		"metrics":    "display.metrics",
	})
}
