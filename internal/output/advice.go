package output

import (
	"github.com/aymerick/raymond"

	"github.com/fulmenhq/quench/internal/checks"
	"github.com/fulmenhq/quench/internal/engine"
)

// renderAdvice expands {{value}}, {{threshold}}, and {{pattern}}
// placeholders in advice strings. A template that fails to render is left
// as written.
func renderAdvice(v checks.Violation) string {
	if v.Advice == "" {
		return ""
	}
	rendered, err := raymond.Render(v.Advice, map[string]interface{}{
		"value":     v.Value,
		"threshold": v.Threshold,
		"pattern":   v.Pattern,
		"path":      v.Path,
	})
	if err != nil {
		return v.Advice
	}
	return rendered
}

// Finalize renders advice templates in place. Call once before emitting a
// report in any format.
func Finalize(report *engine.Report) {
	for i := range report.Checks {
		for j := range report.Checks[i].Violations {
			v := &report.Checks[i].Violations[j]
			v.Advice = renderAdvice(*v)
		}
	}
}
