/*
Copyright © 2025 Fulmen HQ <info@fulmenhq.dev>
*/
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fulmenhq/quench/pkg/exitcode"
	"github.com/fulmenhq/quench/pkg/logger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quench",
	Short: "Structural quality checks for multi-language source trees",
	Long: `Quench walks a project, measures structural quality signals (file size,
test/source ratio, escape-hatch usage, suppression discipline, documentation
structure), and reports machine-readable results. It is built for automated
agents and CI: fast enough to run on every tool turn, deterministic enough
to gate merges.

Examples:
   quench check            # Run the enabled checks on the current directory
   quench check --ci       # Include git-backed checks, no early termination
   quench check --format json
   quench version          # Show version`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initializeLogger(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitcode.InternalError)
	}
}

func init() {
	// Accept snake_case spellings of flags; agents generate both forms.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

// initializeLogger wires the persistent flags into the default logger.
func initializeLogger(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logger.Initialize(logger.Config{
		Level:    logger.ParseLevel(level),
		UseColor: !noColor,
		JSON:     jsonOut,
	})
}
