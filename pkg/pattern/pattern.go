// Package pattern compiles configured escape patterns into a tiered
// representation: plain literals use substring search, alternations of bare
// literals use an Aho-Corasick set, and everything else falls through to
// RE2. The regex engine never backtracks, so pathological inputs cannot
// blow up the hot loop.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Action determines what a pattern match means.
type Action int

const (
	// Forbid flags every match as a violation.
	Forbid Action = iota
	// RequireComment flags matches lacking a nearby required comment.
	RequireComment
	// Count sums matches across files and compares against a threshold
	// during aggregation.
	Count
)

// String returns the config-file spelling of the action.
func (a Action) String() string {
	switch a {
	case Forbid:
		return "forbid"
	case RequireComment:
		return "require_comment"
	case Count:
		return "count"
	default:
		return "unknown"
	}
}

// InTestsPolicy controls whether a pattern applies to test files.
type InTestsPolicy int

const (
	// InTestsAllow applies the pattern to source files only; matches in
	// tests are tolerated.
	InTestsAllow InTestsPolicy = iota
	// InTestsDeny applies the pattern to both source and test files.
	InTestsDeny
	// InTestsOnly applies the pattern to test files only.
	InTestsOnly
)

// Spec is an uncompiled pattern plus its metadata.
type Spec struct {
	Name            string
	Source          string
	Action          Action
	RequiredComment []string
	Threshold       int
	Advice          string
	InTests         InTestsPolicy
}

// DisplayName returns the configured name, falling back to the source text.
func (s Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Source
}

// Match is one occurrence of a pattern in probed text.
type Match struct {
	Line int    // 1-based line number
	Text string // matched substring
}

type tier int

const (
	tierLiteral tier = iota
	tierMultiLiteral
	tierRegex
)

// Compiled is a pattern ready to probe text. It carries its Spec so the
// escapes check can act on matches without a side lookup.
type Compiled struct {
	Spec

	tier     tier
	literal  string
	literals []string
	ac       *ahocorasick.Matcher
	re       *regexp.Regexp
}

// metaChars are the regex metacharacters. A source containing none of them
// (or only backslash-escaped ones) is a plain literal.
const metaChars = `.+*?()[]{}^$|`

// asLiteral decodes a source into the literal it denotes, if it denotes
// one: no unescaped metacharacters, and backslashes only escaping
// punctuation. Class shorthands like \b or \s disqualify it.
func asLiteral(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' {
			i++
			if i >= len(s) {
				return "", false
			}
			next := s[i]
			if (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') || (next >= '0' && next <= '9') {
				return "", false
			}
			b.WriteByte(next)
			continue
		}
		if strings.IndexByte(metaChars, ch) >= 0 {
			return "", false
		}
		b.WriteByte(ch)
	}
	return b.String(), true
}

// Compile inspects the source string and picks the cheapest tier that
// preserves its semantics. Compilation happens once per run.
func Compile(spec Spec) (*Compiled, error) {
	c := &Compiled{Spec: spec}

	if lit, ok := asLiteral(spec.Source); ok {
		c.tier = tierLiteral
		c.literal = lit
		return c, nil
	}

	if parts, ok := splitBareAlternation(spec.Source); ok {
		c.tier = tierMultiLiteral
		c.literals = parts
		c.ac = ahocorasick.NewStringMatcher(parts)
		return c, nil
	}

	re, err := regexp.Compile(spec.Source)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", spec.DisplayName(), err)
	}
	c.tier = tierRegex
	c.re = re
	return c, nil
}

// splitBareAlternation recognizes sources of the form "foo|bar|baz" where
// every branch decodes to a bare literal. The split only honors unescaped
// pipes.
func splitBareAlternation(s string) ([]string, bool) {
	var parts []string
	var cur strings.Builder
	escaped := false
	sawPipe := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			cur.WriteByte('\\')
			cur.WriteByte(ch)
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '|':
			sawPipe = true
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if escaped || !sawPipe {
		return nil, false
	}
	parts = append(parts, cur.String())

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		lit, ok := asLiteral(p)
		if !ok {
			return nil, false
		}
		out = append(out, lit)
	}
	return out, true
}

// MustCompile is Compile for built-in adapter patterns, which are validated
// by the adapter tests rather than at run time.
func MustCompile(spec Spec) *Compiled {
	c, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return c
}

// Probe returns every occurrence of the pattern in text, deduplicated by
// line. Line numbers are 1-based.
func (c *Compiled) Probe(text string) []Match {
	var matches []Match
	line := 0
	for len(text) > 0 {
		line++
		var cur string
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			cur, text = text[:idx], text[idx+1:]
		} else {
			cur, text = text, ""
		}
		if m, ok := c.probeLine(cur); ok {
			matches = append(matches, Match{Line: line, Text: m})
		}
	}
	return matches
}

// probeLine reports the first match on a single line. One match per line is
// enough: consumers deduplicate by line anyway.
func (c *Compiled) probeLine(line string) (string, bool) {
	switch c.tier {
	case tierLiteral:
		if strings.Contains(line, c.literal) {
			return c.literal, true
		}
	case tierMultiLiteral:
		hits := c.ac.Match([]byte(line))
		if len(hits) > 0 {
			best := -1
			text := ""
			for _, h := range hits {
				if pos := strings.Index(line, c.literals[h]); pos >= 0 && (best == -1 || pos < best) {
					best = pos
					text = c.literals[h]
				}
			}
			if best >= 0 {
				return text, true
			}
		}
	case tierRegex:
		if loc := c.re.FindStringIndex(line); loc != nil {
			return line[loc[0]:loc[1]], true
		}
	}
	return "", false
}
