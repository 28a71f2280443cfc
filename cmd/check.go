/*
Copyright © 2025 Fulmen HQ <info@fulmenhq.dev>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/quench/internal/checks"
	"github.com/fulmenhq/quench/internal/engine"
	"github.com/fulmenhq/quench/pkg/config"
	"github.com/fulmenhq/quench/pkg/exitcode"
	"github.com/fulmenhq/quench/pkg/logger"
	"github.com/fulmenhq/quench/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Run the enabled checks over a project tree",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCheck(cmd, args))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Bool("ci", false, "CI mode: include git-backed checks, disable early termination")
	checkCmd.Flags().Bool("fix", false, "Apply fixes for fixable checks")
	checkCmd.Flags().Bool("dry-run", false, "Print intended fixes without writing (requires --fix)")
	checkCmd.Flags().String("format", "text", "Output format (text|json)")
	checkCmd.Flags().Int("jobs", 0, "Bound per-file parallelism (0 = auto)")
	checkCmd.Flags().Bool("no-cache", false, "Disable the file cache for this run")
}

func runCheck(cmd *cobra.Command, args []string) int {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	ci, _ := cmd.Flags().GetBool("ci")
	fix, _ := cmd.Flags().GetBool("fix")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	format, _ := cmd.Flags().GetString("format")
	jobs, _ := cmd.Flags().GetInt("jobs")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	if dryRun && !fix {
		fmt.Fprintln(os.Stderr, "quench: --dry-run requires --fix")
		return exitcode.ConfigError
	}
	if format != "text" && format != "json" {
		fmt.Fprintf(os.Stderr, "quench: unknown format %q\n", format)
		return exitcode.ConfigError
	}

	mode := checks.ModeFast
	if ci {
		mode = checks.ModeCI
	}
	fixMode := checks.FixNone
	switch {
	case dryRun:
		fixMode = checks.FixDryRun
	case fix:
		fixMode = checks.FixApply
	}

	cfg, err := config.Load(root)
	if err != nil {
		logger.Error("Configuration rejected", logger.Err(err))
		if errors.Is(err, config.ErrInvalid) {
			return exitcode.ConfigError
		}
		return exitcode.InternalError
	}

	report, join, err := engine.Run(cmd.Context(), engine.Options{
		Root:    root,
		Config:  cfg,
		Mode:    mode,
		Fix:     fixMode,
		Jobs:    jobs,
		NoCache: noCache,
	})
	if err != nil {
		logger.Error("Run failed", logger.Err(err))
		switch {
		case errors.Is(err, config.ErrInvalid):
			return exitcode.ConfigError
		case engine.IsDiscoveryError(err):
			return exitcode.DiscoveryError
		default:
			return exitcode.InternalError
		}
	}

	output.Finalize(report)
	if format == "json" {
		if err := output.WriteJSON(os.Stdout, report); err != nil {
			logger.Error("Writing report failed", logger.Err(err))
			return exitcode.InternalError
		}
	} else {
		noColor, _ := cmd.Flags().GetBool("no-color")
		output.WriteText(os.Stdout, report, !noColor && output.UseColor(os.Stdout))
	}

	// Cache persistence runs in the background; block for durability.
	join()

	if !report.Passed {
		return exitcode.ViolationsFound
	}
	return exitcode.Success
}
