// Package lang holds the closed set of language adapters. An adapter
// classifies paths into source/test/ignored, carries the language's escape
// patterns and suppression rules, and (for Rust) splits in-file cfg(test)
// spans. Adapters are built once per run and shared immutably.
package lang

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
	"github.com/fulmenhq/quench/pkg/pattern"
)

// CfgTestMode controls how Rust in-file #[cfg(test)] spans are treated.
type CfgTestMode int

const (
	// CfgTestCount counts span lines as test lines.
	CfgTestCount CfgTestMode = iota
	// CfgTestRequire reports inline spans as violations (tests belong in
	// sibling _tests.rs files).
	CfgTestRequire
	// CfgTestOff ignores the spans.
	CfgTestOff
)

// SuppressRules describes allow/deny and required-comment policy for a
// language's lint-suppression directives.
type SuppressRules struct {
	Allow           map[string]bool
	Deny            map[string]bool
	RequiredComment []string
	// PerLint overrides RequiredComment for specific lint ids.
	PerLint map[string][]string
}

// Directive recognizes one suppression syntax and captures its lint ids.
type Directive struct {
	Tool string
	Re   *regexp.Regexp
}

// Adapter is one language's classifier and rule bundle.
type Adapter struct {
	ID          string
	sourceGlobs []string
	testGlobs   []string
	ignoreGlobs []string
	escapes     []*pattern.Compiled
	suppress    SuppressRules
	directives  []Directive
	CfgTest     CfgTestMode
}

// EscapePatterns returns the compiled escape patterns for this language.
func (a *Adapter) EscapePatterns() []*pattern.Compiled { return a.escapes }

// Suppress returns the language's suppression policy.
func (a *Adapter) Suppress() SuppressRules { return a.suppress }

// Directives returns the suppression syntaxes this language recognizes.
func (a *Adapter) Directives() []Directive { return a.directives }

// classify applies this adapter's globs with the deterministic precedence
// ignore, then test, then source.
func (a *Adapter) classify(rel string) (walker.Class, bool) {
	if matchAny(a.ignoreGlobs, rel) {
		return walker.Class{Kind: walker.KindIgnored, Lang: a.ID}, true
	}
	if matchAny(a.testGlobs, rel) {
		return walker.Class{Kind: walker.KindTest, Lang: a.ID}, true
	}
	if matchAny(a.sourceGlobs, rel) {
		return walker.Class{Kind: walker.KindSource, Lang: a.ID}, true
	}
	return walker.Class{}, false
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Set is the ordered collection of adapters plus the generic fallback.
type Set struct {
	ordered []*Adapter
	byID    map[string]*Adapter
}

// adapterOrder fixes cross-adapter precedence so classification is
// deterministic when extensions overlap.
var adapterOrder = []string{"rust", "golang", "javascript", "shell", "python", "ruby"}

// configNames are root-level files classified as Config.
var configNames = map[string]bool{
	"quench.toml": true, "Cargo.toml": true, "go.mod": true, "go.sum": true,
	"package.json": true, "pyproject.toml": true, "Gemfile": true,
	".eslintrc.json": true, ".rubocop.yml": true, "clippy.toml": true,
	"Makefile": true, "justfile": true,
}

// NewSet builds the adapter set, applying quench.toml per-language overrides
// on top of the built-in defaults. Pattern compilation errors are config
// errors.
func NewSet(cfg *config.Config) (*Set, error) {
	s := &Set{byID: make(map[string]*Adapter, len(adapterOrder))}
	for _, id := range adapterOrder {
		a := builtin(id)
		if cfg != nil {
			if override, ok := cfg.Languages[id]; ok {
				if err := applyOverride(a, override); err != nil {
					return nil, err
				}
			}
		}
		s.ordered = append(s.ordered, a)
		s.byID[id] = a
	}
	return s, nil
}

// applyOverride merges a LanguageConfig into the built-in adapter.
func applyOverride(a *Adapter, lc config.LanguageConfig) error {
	if len(lc.Source) > 0 {
		a.sourceGlobs = lc.Source
	}
	if len(lc.Test) > 0 {
		a.testGlobs = lc.Test
	}
	if len(lc.Ignore) > 0 {
		a.ignoreGlobs = lc.Ignore
	}
	switch lc.CfgTest {
	case "count":
		a.CfgTest = CfgTestCount
	case "require":
		a.CfgTest = CfgTestRequire
	case "off":
		a.CfgTest = CfgTestOff
	}
	for _, pc := range lc.Patterns {
		compiled, err := pattern.Compile(SpecFromConfig(pc))
		if err != nil {
			return fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
		a.escapes = append(a.escapes, compiled)
	}
	if len(lc.Suppress.Allow) > 0 {
		a.suppress.Allow = toSet(lc.Suppress.Allow)
	}
	if len(lc.Suppress.Deny) > 0 {
		a.suppress.Deny = toSet(lc.Suppress.Deny)
	}
	if len(lc.Suppress.RequiredComment) > 0 {
		a.suppress.RequiredComment = lc.Suppress.RequiredComment
	}
	if len(lc.Suppress.PerLint) > 0 {
		if a.suppress.PerLint == nil {
			a.suppress.PerLint = make(map[string][]string, len(lc.Suppress.PerLint))
		}
		for lint, comments := range lc.Suppress.PerLint {
			a.suppress.PerLint[lint] = comments
		}
	}
	return nil
}

// SpecFromConfig converts a config pattern into a matcher spec.
func SpecFromConfig(pc config.PatternConfig) pattern.Spec {
	spec := pattern.Spec{
		Name:            pc.Name,
		Source:          pc.Pattern,
		RequiredComment: pc.RequiredComment,
		Threshold:       pc.Threshold,
		Advice:          pc.Advice,
	}
	switch pc.Action {
	case "require_comment":
		spec.Action = pattern.RequireComment
	case "count":
		spec.Action = pattern.Count
	default:
		spec.Action = pattern.Forbid
	}
	switch pc.InTests {
	case "deny":
		spec.InTests = pattern.InTestsDeny
	case "only":
		spec.InTests = pattern.InTestsOnly
	default:
		spec.InTests = pattern.InTestsAllow
	}
	return spec
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}

// Classify maps a root-relative path to its class. Precedence: per-adapter
// ignore before test before source, adapters in their fixed order, then the
// docs/config/other fallback.
func (s *Set) Classify(rel string) walker.Class {
	rel = filepath.ToSlash(rel)
	for _, a := range s.ordered {
		if class, ok := a.classify(rel); ok {
			return class
		}
	}
	switch {
	case strings.HasSuffix(rel, ".md"), strings.HasSuffix(rel, ".markdown"):
		return walker.Class{Kind: walker.KindDocs}
	case configNames[filepath.Base(rel)]:
		return walker.Class{Kind: walker.KindConfig}
	case strings.HasSuffix(rel, ".toml"), strings.HasSuffix(rel, ".yaml"), strings.HasSuffix(rel, ".yml"), strings.HasSuffix(rel, ".json"):
		return walker.Class{Kind: walker.KindConfig}
	}
	return walker.Class{Kind: walker.KindOther}
}

// ByID returns the adapter for a language id, or nil.
func (s *Set) ByID(id string) *Adapter { return s.byID[id] }

// ForClass returns the adapter owning a classified file, or nil for files
// outside the language set.
func (s *Set) ForClass(class walker.Class) *Adapter {
	if class.Lang == "" {
		return nil
	}
	return s.byID[class.Lang]
}
