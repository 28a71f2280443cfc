package lang

import (
	"regexp"

	"github.com/fulmenhq/quench/pkg/pattern"
)

// builtin returns the default adapter for a language id. The defaults are
// deliberately conservative; projects tune them through quench.toml.
func builtin(id string) *Adapter {
	switch id {
	case "rust":
		return &Adapter{
			ID:          "rust",
			sourceGlobs: []string{"**/*.rs"},
			testGlobs:   []string{"tests/**/*.rs", "**/tests/**/*.rs", "**/*_tests.rs", "**/*_test.rs", "benches/**/*.rs"},
			CfgTest:     CfgTestCount,
			escapes: []*pattern.Compiled{
				pattern.MustCompile(pattern.Spec{
					Name:    "todo-macro",
					Source:  `todo!\(|unimplemented!\(`,
					Action:  pattern.Forbid,
					Advice:  "finish the implementation or track it in an issue",
					InTests: pattern.InTestsAllow,
				}),
				pattern.MustCompile(pattern.Spec{
					Name:            "unsafe-block",
					Source:          `unsafe\s*\{`,
					Action:          pattern.RequireComment,
					RequiredComment: []string{"// SAFETY:"},
					Advice:          "document the invariants that make this sound",
					InTests:         pattern.InTestsDeny,
				}),
				pattern.MustCompile(pattern.Spec{
					Name:      "unwrap",
					Source:    `\.unwrap\(`,
					Action:    pattern.Count,
					Threshold: 25,
					Advice:    "prefer ? or expect with a message",
					InTests:   pattern.InTestsAllow,
				}),
			},
			suppress: SuppressRules{
				Allow:           map[string]bool{"dead_code": true},
				RequiredComment: []string{"// OK:", "// JUSTIFIED:"},
			},
			directives: []Directive{
				{Tool: "rustc", Re: regexp.MustCompile(`#\s*\[\s*(?:allow|expect)\s*\(\s*([A-Za-z0-9_:,\s]+?)\s*\)\s*\]`)},
			},
		}
	case "golang":
		return &Adapter{
			ID:          "golang",
			sourceGlobs: []string{"**/*.go"},
			testGlobs:   []string{"**/*_test.go"},
			CfgTest:     CfgTestOff,
			escapes: []*pattern.Compiled{
				pattern.MustCompile(pattern.Spec{
					Name:    "panic",
					Source:  `panic\(`,
					Action:  pattern.Forbid,
					Advice:  "return an error instead of panicking",
					InTests: pattern.InTestsAllow,
				}),
				pattern.MustCompile(pattern.Spec{
					Name:            "unsafe-pointer",
					Source:          `unsafe\.Pointer`,
					Action:          pattern.RequireComment,
					RequiredComment: []string{"// SAFETY:"},
					Advice:          "document why the pointer conversion is sound",
					InTests:         pattern.InTestsDeny,
				}),
			},
			suppress: SuppressRules{
				RequiredComment: []string{"// OK:", "// JUSTIFIED:"},
			},
			directives: []Directive{
				{Tool: "golangci-lint", Re: regexp.MustCompile(`//\s*nolint:([A-Za-z0-9_,-]+)`)},
			},
		}
	case "javascript":
		return &Adapter{
			ID:          "javascript",
			sourceGlobs: []string{"**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx", "**/*.mjs", "**/*.cjs"},
			testGlobs: []string{
				"**/*.test.js", "**/*.test.jsx", "**/*.test.ts", "**/*.test.tsx",
				"**/*.spec.js", "**/*.spec.ts", "**/__tests__/**",
			},
			ignoreGlobs: []string{"**/*.d.ts", "**/*.min.js"},
			CfgTest:     CfgTestOff,
			escapes: []*pattern.Compiled{
				pattern.MustCompile(pattern.Spec{
					Name:    "debugger",
					Source:  `debugger`,
					Action:  pattern.Forbid,
					Advice:  "remove the debugger statement",
					InTests: pattern.InTestsDeny,
				}),
				pattern.MustCompile(pattern.Spec{
					Name:      "any-type",
					Source:    `:\s*any\b`,
					Action:    pattern.Count,
					Threshold: 50,
					Advice:    "narrow the type",
					InTests:   pattern.InTestsAllow,
				}),
			},
			suppress: SuppressRules{
				RequiredComment: []string{"// OK:", "// JUSTIFIED:"},
			},
			directives: []Directive{
				{Tool: "eslint", Re: regexp.MustCompile(`eslint-disable(?:-next-line|-line)?\s+([@A-Za-z0-9/_,\s-]+)`)},
			},
		}
	case "shell":
		return &Adapter{
			ID:          "shell",
			sourceGlobs: []string{"**/*.sh", "**/*.bash"},
			testGlobs:   []string{"**/tests/**/*.sh", "**/*_test.sh"},
			CfgTest:     CfgTestOff,
			escapes: []*pattern.Compiled{
				pattern.MustCompile(pattern.Spec{
					Name:            "eval",
					Source:          `\beval\b`,
					Action:          pattern.RequireComment,
					RequiredComment: []string{"# SAFETY:"},
					Advice:          "explain why eval on this input is safe",
					InTests:         pattern.InTestsDeny,
				}),
			},
			suppress: SuppressRules{
				RequiredComment: []string{"# OK:", "# JUSTIFIED:"},
			},
			directives: []Directive{
				{Tool: "shellcheck", Re: regexp.MustCompile(`#\s*shellcheck\s+disable=([A-Za-z0-9,]+)`)},
			},
		}
	case "python":
		return &Adapter{
			ID:          "python",
			sourceGlobs: []string{"**/*.py"},
			testGlobs:   []string{"**/test_*.py", "**/*_test.py", "**/tests/**/*.py"},
			CfgTest:     CfgTestOff,
			escapes: []*pattern.Compiled{
				pattern.MustCompile(pattern.Spec{
					Name:    "breakpoint",
					Source:  `breakpoint\(`,
					Action:  pattern.Forbid,
					Advice:  "remove the debugging breakpoint",
					InTests: pattern.InTestsDeny,
				}),
				pattern.MustCompile(pattern.Spec{
					Name:      "type-ignore",
					Source:    `# type: ignore`,
					Action:    pattern.Count,
					Threshold: 20,
					Advice:    "fix the typing instead of ignoring it",
					InTests:   pattern.InTestsAllow,
				}),
			},
			suppress: SuppressRules{
				RequiredComment: []string{"# OK:", "# JUSTIFIED:"},
			},
			directives: []Directive{
				{Tool: "ruff", Re: regexp.MustCompile(`#\s*noqa(?::\s*([A-Z0-9,\s]+))?`)},
			},
		}
	case "ruby":
		return &Adapter{
			ID:          "ruby",
			sourceGlobs: []string{"**/*.rb"},
			testGlobs:   []string{"**/spec/**/*_spec.rb", "**/test/**/*_test.rb", "**/*_spec.rb"},
			CfgTest:     CfgTestOff,
			escapes: []*pattern.Compiled{
				pattern.MustCompile(pattern.Spec{
					Name:    "pry",
					Source:  `binding\.pry|binding\.irb`,
					Action:  pattern.Forbid,
					Advice:  "remove the debugging binding",
					InTests: pattern.InTestsDeny,
				}),
			},
			suppress: SuppressRules{
				RequiredComment: []string{"# OK:", "# JUSTIFIED:"},
			},
			directives: []Directive{
				{Tool: "rubocop", Re: regexp.MustCompile(`#\s*rubocop:disable\s+([A-Za-z0-9/,\s]+)`)},
			},
		}
	default:
		return &Adapter{ID: id, CfgTest: CfgTestOff}
	}
}
