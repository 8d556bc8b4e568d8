package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func bind(f *pflag.Flag, key string) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// bindOnRun binds command-local flags to config keys when cmd runs, so commands
// sharing a flag name do not steal each other's binding.
func bindOnRun(cmd *cobra.Command, keys map[string]string) {
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		for name, key := range keys {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return err
			}
		}
		return nil
	}
}
