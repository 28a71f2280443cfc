package checks

import (
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
	"github.com/fulmenhq/quench/pkg/pattern"
)

// kindPlaceholder is the internal carrier kind for placeholder tallies.
const kindPlaceholder = "placeholder"

// placeholderPatterns recognize skipped or stubbed tests per language.
var placeholderPatterns = map[string][]*pattern.Compiled{
	"rust": {
		pattern.MustCompile(pattern.Spec{Name: "ignore-attr", Source: `#\[ignore\]`, Action: pattern.Count}),
	},
	"golang": {
		pattern.MustCompile(pattern.Spec{Name: "skip", Source: `t\.Skip\(|t\.Skipf\(`, Action: pattern.Count}),
	},
	"javascript": {
		pattern.MustCompile(pattern.Spec{Name: "todo", Source: `it\.todo\(|test\.todo\(`, Action: pattern.Count}),
		pattern.MustCompile(pattern.Spec{Name: "skip", Source: `it\.skip\(|test\.skip\(|describe\.skip\(|xit\(`, Action: pattern.Count}),
	},
	"python": {
		pattern.MustCompile(pattern.Spec{Name: "skip", Source: `@pytest\.mark\.skip|@unittest\.skip`, Action: pattern.Count}),
	},
	"ruby": {
		pattern.MustCompile(pattern.Spec{Name: "skip", Source: `\bskip\b|\bpending\b`, Action: pattern.Count}),
	},
}

// testsCheck measures test hygiene: placeholder tests that never run.
type testsCheck struct {
	cfg config.TestsConfig
}

func newTestsCheck(cfg *config.Config) *testsCheck {
	return &testsCheck{cfg: cfg.Tests}
}

func (c *testsCheck) Name() string { return "tests" }

func (c *testsCheck) Cacheable() bool { return true }

func (c *testsCheck) RequiredFileClasses() []walker.ClassKind {
	return []walker.ClassKind{walker.KindTest}
}

func (c *testsCheck) RunFile(file *walker.WalkedFile, content string, ctx *Context) []Violation {
	if !c.cfg.Placeholders {
		return nil
	}
	patterns := placeholderPatterns[file.Class.Lang]
	var out []Violation
	for _, p := range patterns {
		matches := p.Probe(content)
		if len(matches) == 0 {
			continue
		}
		out = append(out, Violation{
			Check:   c.Name(),
			Path:    file.RelPath,
			Kind:    kindPlaceholder,
			Pattern: file.Class.Lang + "/" + p.DisplayName(),
			Value:   len(matches),
			Line:    matches[0].Line,
		})
	}
	return out
}

func (c *testsCheck) Aggregate(ctx *Context, perFile []Violation) ([]Violation, Metrics) {
	var out []Violation
	byLang := make(map[string]map[string]interface{})

	for _, v := range perFile {
		if v.Kind != kindPlaceholder {
			out = append(out, v)
			continue
		}
		lang, name := splitPlaceholderPattern(v.Pattern)
		tree := byLang[lang]
		if tree == nil {
			tree = make(map[string]interface{})
			byLang[lang] = tree
		}
		if cur, ok := tree[name].(int); ok {
			tree[name] = cur + v.Value
		} else {
			tree[name] = v.Value
		}
	}

	placeholders := make(map[string]interface{}, len(byLang))
	for lang, tree := range byLang {
		placeholders[lang] = tree
	}
	return out, Metrics{"placeholders": placeholders}
}

func splitPlaceholderPattern(p string) (string, string) {
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			return p[:i], p[i+1:]
		}
	}
	return "unknown", p
}
