package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/operant/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "operant",
	Short: "Operant runs suboptimal-choice sessions in a pigeon touchscreen chamber",
	Long: `Operant drives the stimulus display and food hopper of an operant chamber,
runs the pre-training and choice-training phases, and writes one CSV data
file per session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return readConfigFile(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./"+config.DefaultFilename+" when present)")
	flags.String("settings", "", "Subject settings sheet")
	flags.String("data-dir", "", "Directory the session data files are written to")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("redis-addr", "", "Journal completed trials to this Redis server")

	bind(flags.Lookup("settings"), "settings")
	bind(flags.Lookup("data-dir"), "data_dir")
	bind(flags.Lookup("log-level"), "log_level")
	bind(flags.Lookup("redis-addr"), "journal.redis_addr")
}

// readConfigFile merges the YAML config into v. A missing default file is fine;
// a missing explicit one is not.
func readConfigFile(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = config.DefaultFilename
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(v)
}
