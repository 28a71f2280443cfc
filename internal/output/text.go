package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fulmenhq/quench/internal/engine"
)

// agentMarkers are environment variables whose presence indicates a
// non-interactive agent harness; color is suppressed when any is set.
var agentMarkers = []string{"NO_COLOR", "CI", "CLAUDE_CODE", "AGENT"}

// UseColor decides whether text output carries ANSI color: only on a real
// TTY with no agent environment marker set.
func UseColor(f *os.File) bool {
	for _, marker := range agentMarkers {
		if os.Getenv(marker) != "" {
			return false
		}
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// WriteText renders the per-check pass/fail summary. Passing checks are
// collapsed into a single PASS line; each failing check lists its
// violations as <path>:<line>: <kind>[: <pattern>] / <advice>.
func WriteText(w io.Writer, report *engine.Report, useColor bool) {
	pass := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	dim := color.New(color.Faint)
	if !useColor {
		pass.DisableColor()
		fail.DisableColor()
		dim.DisableColor()
	}

	var passed []string
	maxName := 0
	for _, result := range report.Checks {
		if result.Passed {
			passed = append(passed, result.Name)
		} else if w := runewidth.StringWidth(result.Name); w > maxName {
			maxName = w
		}
	}

	if len(passed) > 0 {
		fmt.Fprintf(w, "%s %s\n", pass.Sprint("PASS:"), strings.Join(passed, ", "))
	}

	for _, result := range report.Checks {
		if result.Passed {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", runewidth.FillRight(result.Name+":", maxName+1), fail.Sprint("FAIL"))
		for _, v := range result.Violations {
			loc := v.Path
			if loc == "" {
				loc = "(project)"
			}
			if v.Line > 0 {
				loc = fmt.Sprintf("%s:%d", loc, v.Line)
			}
			line := fmt.Sprintf("  %s: %s", loc, v.Kind)
			if v.Pattern != "" {
				line += ": " + v.Pattern
			}
			if v.Advice != "" {
				line += dim.Sprintf(" / %s", v.Advice)
			}
			fmt.Fprintln(w, line)
		}
	}

	caser := cases.Title(language.Und)
	verdict := "passed"
	if !report.Passed {
		verdict = "failed"
	}
	fmt.Fprintf(w, "%s: %d of %d checks passed\n",
		caser.String(verdict), len(passed), len(report.Checks))
}
