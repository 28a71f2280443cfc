// Package checks defines the check contract and the closed set of checks
// the engine knows about. A check exposes three operations: the file
// classes it wants, a pure per-file pass, and a whole-project aggregate.
// The engine never introspects a check's interior.
package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fulmenhq/quench/internal/gitctx"
	"github.com/fulmenhq/quench/internal/lang"
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
)

// Violation is a single finding. Violations without a path are
// project-scoped. Optional typed fields are omitted from serialized output
// when not applicable.
type Violation struct {
	Check        string `json:"check"`
	Path         string `json:"path,omitempty"`
	Line         int    `json:"line,omitempty"`
	Kind         string `json:"kind"`
	Value        int    `json:"value,omitempty"`
	Threshold    int    `json:"threshold,omitempty"`
	Advice       string `json:"advice,omitempty"`
	Pattern      string `json:"pattern,omitempty"`
	ExpectedDocs string `json:"expected_docs,omitempty"`
	Area         string `json:"area,omitempty"`
	AreaMatch    string `json:"area_match,omitempty"`
	TargetPath   string `json:"target_path,omitempty"`
}

// Metrics is a check's aggregated, JSON-compatible result tree.
type Metrics map[string]interface{}

// Mode selects the run profile.
type Mode int

const (
	// ModeFast runs cheap per-invocation checks with early termination.
	ModeFast Mode = iota
	// ModeCI adds git-backed checks and disables early termination.
	ModeCI
)

// FixMode controls whether fixable checks may write.
type FixMode int

const (
	FixNone FixMode = iota
	FixApply
	FixDryRun
)

// Context is the read-only view checks receive. The runner owns the walked
// file collection and the cache; checks borrow through this context.
type Context struct {
	Root     string
	Config   *config.Config
	Mode     Mode
	Fix      FixMode
	Adapters *lang.Set
	// Files is the full discovered list, for aggregate steps that need
	// project shape (specs reachability, package rollups).
	Files []*walker.WalkedFile
	// Git is nil when the target has no repository or the run is not CI.
	Git *gitctx.Context
	// DryRunEdits holds intended edits for FixDryRun. Nothing in the engine
	// appends to it.
	DryRunEdits []string
}

// Check is a named analysis over the project.
type Check interface {
	// Name returns the check's stable report name.
	Name() string
	// RequiredFileClasses lists the classes whose files the check wants;
	// the runner skips everything else.
	RequiredFileClasses() []walker.ClassKind
	// Cacheable reports whether RunFile depends only on file content (and
	// so may be served from the file cache). Checks that consult the
	// surrounding tree must return false.
	Cacheable() bool
	// RunFile is the pure per-file pass. It may emit internal carrier
	// violations that Aggregate folds into metrics.
	RunFile(file *walker.WalkedFile, content string, ctx *Context) []Violation
	// Aggregate finalizes whole-project effects from the union of cached
	// and fresh per-file violations and returns the reported violations
	// plus the check's metrics tree.
	Aggregate(ctx *Context, perFile []Violation) ([]Violation, Metrics)
}

// Fixable is the interface for checks whose violations can be rewritten in
// place. No check implements it and the engine never calls FixFile; Fix mode
// is not rejected for checks that lack it.
type Fixable interface {
	Check
	// FixFile returns the rewritten content and whether anything changed.
	FixFile(file *walker.WalkedFile, content string, ctx *Context) (string, bool)
}

// Registry holds the enabled checks in stable lexical order for reporting.
// It is the only place that knows which checks exist.
type Registry struct {
	checks []Check
}

// NewRegistry builds the enabled check set. Pattern compilation happens
// here, once per run; failures are configuration errors.
func NewRegistry(cfg *config.Config, adapters *lang.Set, mode Mode) (*Registry, error) {
	enabled := cfg.EnabledChecks()
	if mode == ModeCI {
		enabled = append(enabled, "git")
	}

	seen := make(map[string]bool, len(enabled))
	var checks []Check
	for _, name := range enabled {
		if seen[name] {
			continue
		}
		seen[name] = true
		check, err := build(name, cfg, adapters)
		if err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name() < checks[j].Name() })
	return &Registry{checks: checks}, nil
}

func build(name string, cfg *config.Config, adapters *lang.Set) (Check, error) {
	switch name {
	case "cloc":
		return newClocCheck(cfg), nil
	case "escapes":
		return newEscapesCheck(cfg, adapters)
	case "agents":
		return newAgentsCheck(cfg), nil
	case "docs":
		return newDocsCheck(cfg), nil
	case "tests":
		return newTestsCheck(cfg), nil
	case "git":
		return newGitCheck(cfg), nil
	case "license":
		return newLicenseCheck(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown check %q", config.ErrInvalid, name)
	}
}

// Checks returns the enabled checks in lexical order.
func (r *Registry) Checks() []Check { return r.checks }

// Names returns the enabled check names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.Name()
	}
	return names
}

// Wants reports whether the check operates on the given class.
func Wants(c Check, kind walker.ClassKind) bool {
	for _, k := range c.RequiredFileClasses() {
		if k == kind {
			return true
		}
	}
	return false
}

// SortViolations orders violations stably by (path, line, check, kind) so
// output is independent of scheduling.
func SortViolations(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Check != b.Check {
			return a.Check < b.Check
		}
		return a.Kind < b.Kind
	})
}

// commentLeaders mark lines treated as comments when hunting for a required
// comment near an escape match.
var commentLeaders = []string{"//", "#", "/*", "*", "--", "<!--"}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, leader := range commentLeaders {
		if strings.HasPrefix(trimmed, leader) {
			return true
		}
	}
	return false
}

// hasRequiredComment reports whether one of the required literals appears in
// the contiguous comment block immediately preceding matchLine, or in a
// trailing comment on the match line itself. Literals match case-sensitively.
func hasRequiredComment(lines []string, matchLine int, literals []string) bool {
	if len(literals) == 0 {
		return true
	}
	contains := func(line string) bool {
		for _, lit := range literals {
			if strings.Contains(line, lit) {
				return true
			}
		}
		return false
	}

	// Same-line trailing comment.
	if matchLine-1 < len(lines) && contains(lines[matchLine-1]) {
		return true
	}
	// Contiguous preceding comment lines; a blank or code line breaks the block.
	for i := matchLine - 2; i >= 0; i-- {
		if !isCommentLine(lines[i]) {
			return false
		}
		if contains(lines[i]) {
			return true
		}
	}
	return false
}

// splitLines splits content preserving 1-based indexing semantics used by
// the per-file passes.
func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

// countNonBlank returns the number of non-blank lines.
func countNonBlank(lines []string) int {
	n := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// countTokens estimates tokens as whitespace-separated fields.
func countTokens(lines []string) int {
	n := 0
	for _, line := range lines {
		n += len(strings.Fields(line))
	}
	return n
}
