package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/operant"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of operant",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "operant version %s\n", strings.TrimSpace(operant.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
