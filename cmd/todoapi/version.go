package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"todoapi/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the todoapi version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
