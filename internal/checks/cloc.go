package checks

import (
	"strings"

	"github.com/fulmenhq/quench/internal/lang"
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
)

// Carrier kinds produced by the cloc per-file pass. Aggregate folds them
// into metrics and never reports them.
const (
	kindSourceLines  = "source_lines"
	kindTestLines    = "test_lines"
	kindSourceTokens = "source_tokens"
	kindTestTokens   = "test_tokens"
)

// clocCheck measures file sizes and the test/source ratio.
type clocCheck struct {
	cfg config.ClocConfig
}

func newClocCheck(cfg *config.Config) *clocCheck {
	return &clocCheck{cfg: cfg.Cloc}
}

func (c *clocCheck) Name() string { return "cloc" }

func (c *clocCheck) Cacheable() bool { return true }

func (c *clocCheck) RequiredFileClasses() []walker.ClassKind {
	return []walker.ClassKind{walker.KindSource, walker.KindTest}
}

func (c *clocCheck) RunFile(file *walker.WalkedFile, content string, ctx *Context) []Violation {
	lines := splitLines(content)
	nonBlank := countNonBlank(lines)
	tokens := countTokens(lines)

	sourceLines, testLines := nonBlank, 0
	sourceTokens, testTokens := tokens, 0
	isTest := file.Class.Kind == walker.KindTest
	if isTest {
		sourceLines, testLines = 0, nonBlank
		sourceTokens, testTokens = 0, tokens
	}

	var out []Violation

	// Rust in-file cfg(test) blocks either shift lines from source to test
	// or are themselves the violation, depending on the adapter mode.
	if !isTest && file.Class.Lang == "rust" {
		if adapter := ctx.Adapters.ForClass(file.Class); adapter != nil && adapter.CfgTest != lang.CfgTestOff {
			spans := lang.ParseCfgTestSpans(content)
			switch adapter.CfgTest {
			case lang.CfgTestCount:
				inline, inlineTokens := spanTally(lines, spans)
				sourceLines -= inline
				testLines += inline
				sourceTokens -= inlineTokens
				testTokens += inlineTokens
			case lang.CfgTestRequire:
				if len(spans) > 0 {
					out = append(out, Violation{
						Check:      c.Name(),
						Path:       file.RelPath,
						Line:       spans[0].Start,
						Kind:       "inline_cfg_test",
						Value:      len(spans),
						TargetPath: siblingTestsFile(file.RelPath),
						Advice:     "move inline tests to a sibling _tests.rs file",
					})
				}
			}
		}
	}

	limit := c.cfg.MaxLines
	if isTest {
		limit = c.cfg.MaxTestLines
	}
	if limit > 0 && nonBlank > limit {
		out = append(out, Violation{
			Check:     c.Name(),
			Path:      file.RelPath,
			Kind:      "file_too_large",
			Value:     nonBlank,
			Threshold: limit,
			Advice:    "split the file; {{value}} non-blank lines exceeds the {{threshold}} limit",
		})
	}

	out = append(out,
		Violation{Check: c.Name(), Path: file.RelPath, Kind: kindSourceLines, Value: sourceLines},
		Violation{Check: c.Name(), Path: file.RelPath, Kind: kindTestLines, Value: testLines},
		Violation{Check: c.Name(), Path: file.RelPath, Kind: kindSourceTokens, Value: sourceTokens},
		Violation{Check: c.Name(), Path: file.RelPath, Kind: kindTestTokens, Value: testTokens},
	)
	return out
}

// spanTally counts non-blank lines and tokens falling inside cfg(test) spans.
func spanTally(lines []string, spans []lang.Span) (int, int) {
	nLines, nTokens := 0, 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, span := range spans {
			if span.Contains(i + 1) {
				nLines++
				nTokens += len(strings.Fields(line))
				break
			}
		}
	}
	return nLines, nTokens
}

// siblingTestsFile maps foo/bar.rs to foo/bar_tests.rs.
func siblingTestsFile(rel string) string {
	if strings.HasSuffix(rel, ".rs") {
		return strings.TrimSuffix(rel, ".rs") + "_tests.rs"
	}
	return rel
}

type packageTally struct {
	sourceFiles, sourceLines, sourceTokens int
	testFiles, testLines, testTokens       int
}

func (c *clocCheck) Aggregate(ctx *Context, perFile []Violation) ([]Violation, Metrics) {
	var out []Violation
	total := packageTally{}
	byPackage := make(map[string]*packageTally)
	seenSource := make(map[string]bool)
	seenTest := make(map[string]bool)

	for _, v := range perFile {
		switch v.Kind {
		case kindSourceLines, kindTestLines, kindSourceTokens, kindTestTokens:
		default:
			out = append(out, v)
			continue
		}
		pkg := topPackage(v.Path)
		tally := byPackage[pkg]
		if tally == nil {
			tally = &packageTally{}
			byPackage[pkg] = tally
		}
		switch v.Kind {
		case kindSourceLines:
			total.sourceLines += v.Value
			tally.sourceLines += v.Value
			if !seenSource[v.Path] && v.Value > 0 {
				seenSource[v.Path] = true
				total.sourceFiles++
				tally.sourceFiles++
			}
		case kindTestLines:
			total.testLines += v.Value
			tally.testLines += v.Value
			if !seenTest[v.Path] && v.Value > 0 {
				seenTest[v.Path] = true
				total.testFiles++
				tally.testFiles++
			}
		case kindSourceTokens:
			total.sourceTokens += v.Value
			tally.sourceTokens += v.Value
		case kindTestTokens:
			total.testTokens += v.Value
			tally.testTokens += v.Value
		}
	}

	ratio := 0.0
	if total.sourceLines > 0 {
		ratio = float64(total.testLines) / float64(total.sourceLines)
	}
	if c.cfg.MinRatio > 0 && ratio < c.cfg.MinRatio {
		out = append(out, Violation{
			Check:     c.Name(),
			Kind:      "ratio_below_minimum",
			Value:     int(ratio * 100),
			Threshold: int(c.cfg.MinRatio * 100),
			Advice:    "test to source line ratio is below the configured minimum",
		})
	}

	metrics := tallyMetrics(total, ratio)
	if c.cfg.ByPackage && len(byPackage) > 0 {
		pkgs := make(map[string]interface{}, len(byPackage))
		for pkg, tally := range byPackage {
			r := 0.0
			if tally.sourceLines > 0 {
				r = float64(tally.testLines) / float64(tally.sourceLines)
			}
			pkgs[pkg] = tallyMetrics(*tally, r)
		}
		metrics["by_package"] = pkgs
	}
	return out, metrics
}

func tallyMetrics(t packageTally, ratio float64) Metrics {
	return Metrics{
		"source_files":  t.sourceFiles,
		"source_lines":  t.sourceLines,
		"source_tokens": t.sourceTokens,
		"test_files":    t.testFiles,
		"test_lines":    t.testLines,
		"test_tokens":   t.testTokens,
		"ratio":         ratioValue(ratio),
	}
}

// ratioValue keeps the JSON stable at two decimal places.
func ratioValue(r float64) float64 {
	return float64(int(r*100+0.5)) / 100
}

// topPackage keys the per-package rollup by the first path component.
func topPackage(rel string) string {
	if idx := strings.IndexByte(rel, '/'); idx >= 0 {
		return rel[:idx]
	}
	return "."
}
