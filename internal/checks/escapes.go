package checks

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/quench/internal/lang"
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
	"github.com/fulmenhq/quench/pkg/pattern"
)

// kindEscapeCount is the internal carrier kind for Count-action tallies.
const kindEscapeCount = "escape_count"

// defaultLintConfigFiles are recognized lint configurations for the
// "lint config must change alone" policy.
var defaultLintConfigFiles = []string{
	"clippy.toml", ".golangci.yml", ".golangci.yaml", ".eslintrc*",
	".rubocop.yml", "ruff.toml", ".shellcheckrc", "biome.json",
}

// escapesCheck applies escape-hatch patterns and suppression-directive
// policy per file, then Count thresholds and the lint-config policy during
// aggregation.
type escapesCheck struct {
	cfg    config.EscapesConfig
	global []*pattern.Compiled
}

func newEscapesCheck(cfg *config.Config, adapters *lang.Set) (*escapesCheck, error) {
	c := &escapesCheck{cfg: cfg.Escapes}
	for _, pc := range cfg.Escapes.Patterns {
		compiled, err := pattern.Compile(lang.SpecFromConfig(pc))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
		c.global = append(c.global, compiled)
	}
	return c, nil
}

func (c *escapesCheck) Name() string { return "escapes" }

func (c *escapesCheck) Cacheable() bool { return true }

func (c *escapesCheck) RequiredFileClasses() []walker.ClassKind {
	return []walker.ClassKind{walker.KindSource, walker.KindTest}
}

// admits applies the pattern's in-tests policy to the file class.
func admits(p *pattern.Compiled, kind walker.ClassKind) bool {
	switch p.InTests {
	case pattern.InTestsOnly:
		return kind == walker.KindTest
	case pattern.InTestsDeny:
		return true
	default: // InTestsAllow
		return kind == walker.KindSource
	}
}

func (c *escapesCheck) RunFile(file *walker.WalkedFile, content string, ctx *Context) []Violation {
	adapter := ctx.Adapters.ForClass(file.Class)
	lines := splitLines(content)

	var patterns []*pattern.Compiled
	if adapter != nil {
		patterns = append(patterns, adapter.EscapePatterns()...)
	}
	patterns = append(patterns, c.global...)

	var out []Violation
	for _, p := range patterns {
		if !admits(p, file.Class.Kind) {
			continue
		}
		matches := p.Probe(content)
		switch p.Action {
		case pattern.Forbid:
			for _, m := range matches {
				out = append(out, Violation{
					Check:   c.Name(),
					Path:    file.RelPath,
					Line:    m.Line,
					Kind:    "forbidden",
					Pattern: p.DisplayName(),
					Advice:  p.Advice,
				})
			}
		case pattern.RequireComment:
			for _, m := range matches {
				if hasRequiredComment(lines, m.Line, p.RequiredComment) {
					continue
				}
				out = append(out, Violation{
					Check:   c.Name(),
					Path:    file.RelPath,
					Line:    m.Line,
					Kind:    "missing_comment",
					Pattern: p.DisplayName(),
					Advice:  p.Advice,
				})
			}
		case pattern.Count:
			if len(matches) > 0 {
				out = append(out, Violation{
					Check:     c.Name(),
					Path:      file.RelPath,
					Kind:      kindEscapeCount,
					Pattern:   p.DisplayName(),
					Value:     len(matches),
					Threshold: p.Threshold,
				})
			}
		}
	}

	if adapter != nil {
		out = append(out, c.runSuppressions(file, lines, adapter)...)
	}
	return out
}

// runSuppressions checks every recognized disable directive against the
// language's allow/deny/required-comment policy. Matches are deduplicated
// per line.
func (c *escapesCheck) runSuppressions(file *walker.WalkedFile, lines []string, adapter *lang.Adapter) []Violation {
	rules := adapter.Suppress()
	var out []Violation
	for i, line := range lines {
		lineNo := i + 1
		seen := make(map[string]bool)
		for _, d := range adapter.Directives() {
			m := d.Re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			ids := []string{""}
			if len(m) > 1 && strings.TrimSpace(m[1]) != "" {
				ids = splitLintIDs(m[1])
			}
			for _, id := range ids {
				if seen[id] {
					continue
				}
				seen[id] = true
				if v := c.judgeDirective(file, lineNo, lines, d.Tool, id, rules); v != nil {
					out = append(out, *v)
				}
			}
		}
	}
	return out
}

func (c *escapesCheck) judgeDirective(file *walker.WalkedFile, lineNo int, lines []string, tool, id string, rules lang.SuppressRules) *Violation {
	if rules.Deny[id] {
		return &Violation{
			Check:   c.Name(),
			Path:    file.RelPath,
			Line:    lineNo,
			Kind:    "forbidden_suppression",
			Pattern: directiveName(tool, id),
			Advice:  "this lint may not be suppressed",
		}
	}
	if rules.Allow[id] {
		return nil
	}
	required := rules.RequiredComment
	if perLint, ok := rules.PerLint[id]; ok {
		required = perLint
	}
	if hasRequiredComment(lines, lineNo, required) {
		return nil
	}
	return &Violation{
		Check:   c.Name(),
		Path:    file.RelPath,
		Line:    lineNo,
		Kind:    "undocumented_suppression",
		Pattern: directiveName(tool, id),
		Advice:  "add a justification comment for the suppression",
	}
}

func directiveName(tool, id string) string {
	if id == "" {
		return tool
	}
	return tool + ":" + id
}

func splitLintIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = append(out, "")
	}
	return out
}

func (c *escapesCheck) Aggregate(ctx *Context, perFile []Violation) ([]Violation, Metrics) {
	var out []Violation
	type tally struct {
		total     int
		threshold int
	}
	counts := make(map[string]*tally)
	sourceCounts := make(map[string]int)
	testCounts := make(map[string]int)

	for _, v := range perFile {
		if v.Kind != kindEscapeCount {
			out = append(out, v)
			continue
		}
		t := counts[v.Pattern]
		if t == nil {
			t = &tally{threshold: v.Threshold}
			counts[v.Pattern] = t
		}
		t.total += v.Value
		if ctx.Adapters.Classify(v.Path).Kind == walker.KindTest {
			testCounts[v.Pattern] += v.Value
		} else {
			sourceCounts[v.Pattern] += v.Value
		}
	}

	for name, t := range counts {
		if t.threshold > 0 && t.total > t.threshold {
			out = append(out, Violation{
				Check:     c.Name(),
				Kind:      "count_exceeded",
				Pattern:   name,
				Value:     t.total,
				Threshold: t.threshold,
				Advice:    "{{pattern}} appears {{value}} times, over the {{threshold}} budget",
			})
		}
	}

	if c.cfg.LintConfigStandalone && ctx.Mode == ModeCI && ctx.Git != nil {
		out = append(out, c.lintConfigPolicy(ctx)...)
	}

	metrics := Metrics{
		"source": toCountTree(sourceCounts),
		"test":   toCountTree(testCounts),
	}
	return out, metrics
}

// lintConfigPolicy enforces that lint configuration files change in
// standalone commits: a change set mixing a lint config with other files is
// a violation on the config path.
func (c *escapesCheck) lintConfigPolicy(ctx *Context) []Violation {
	changed, err := ctx.Git.CommittedChanges(ctx.Config.Git.Base)
	if err != nil || len(changed) < 2 {
		return nil
	}
	globs := append([]string{}, defaultLintConfigFiles...)
	globs = append(globs, c.cfg.LintConfigFiles...)

	var out []Violation
	for _, file := range changed {
		for _, glob := range globs {
			ok, err := doublestar.Match(glob, path.Base(file))
			if err != nil || !ok {
				continue
			}
			out = append(out, Violation{
				Check:  c.Name(),
				Path:   file,
				Kind:   "lint_config_not_standalone",
				Advice: "change lint configuration in its own commit",
			})
			break
		}
	}
	return out
}

func toCountTree(m map[string]int) map[string]interface{} {
	tree := make(map[string]interface{}, len(m))
	for k, v := range m {
		tree[k] = v
	}
	return tree
}
