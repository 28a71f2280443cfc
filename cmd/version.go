/*
Copyright © 2025 Fulmen HQ <info@fulmenhq.dev>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/quench/pkg/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		extended, _ := cmd.Flags().GetBool("extended")
		fmt.Printf("quench %s\n", buildinfo.BinaryVersion)
		if extended {
			fmt.Printf("  commit: %s\n", buildinfo.GitCommit)
			fmt.Printf("  built:  %s\n", buildinfo.BuildTime)
			if mv := buildinfo.ModuleVersion(); mv != "" {
				fmt.Printf("  module: %s\n", mv)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("extended", false, "Show build metadata")
}
