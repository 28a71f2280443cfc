package checks

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
)

// agentsCheck validates agent instruction files (CLAUDE.md, .cursorrules,
// .cursor/rules/*): required files exist, configured sync groups stay
// byte-identical, and required section headers are present. Content is not
// parsed beyond section header detection.
type agentsCheck struct {
	cfg config.AgentsConfig
}

func newAgentsCheck(cfg *config.Config) *agentsCheck {
	return &agentsCheck{cfg: cfg.Agents}
}

func (c *agentsCheck) Name() string { return "agents" }

// Cacheable is false: the check reads sibling files during aggregation.
func (c *agentsCheck) Cacheable() bool { return false }

// RequiredFileClasses is empty; the check is project-scoped.
func (c *agentsCheck) RequiredFileClasses() []walker.ClassKind { return nil }

func (c *agentsCheck) RunFile(file *walker.WalkedFile, content string, ctx *Context) []Violation {
	return nil
}

func (c *agentsCheck) Aggregate(ctx *Context, perFile []Violation) ([]Violation, Metrics) {
	out := append([]Violation{}, perFile...)
	present := 0

	for _, name := range c.cfg.Required {
		abs := filepath.Join(ctx.Root, filepath.FromSlash(name))
		if _, err := os.Stat(abs); err != nil {
			out = append(out, Violation{
				Check:  c.Name(),
				Kind:   "missing_agent_file",
				Path:   name,
				Advice: "create the agent instruction file",
			})
			continue
		}
		present++
		out = append(out, c.checkSections(ctx.Root, name)...)
	}

	for _, group := range c.cfg.Sync {
		out = append(out, c.checkSync(ctx.Root, group)...)
	}

	metrics := Metrics{
		"required": len(c.cfg.Required),
		"present":  present,
	}
	return out, metrics
}

// checkSections detects `#`-style headers and flags configured sections
// that are absent.
func (c *agentsCheck) checkSections(root, name string) []Violation {
	if len(c.cfg.Sections) == 0 {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name))) // #nosec G304 -- rooted
	if err != nil {
		return nil
	}
	headers := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			headers[strings.TrimSpace(strings.TrimLeft(trimmed, "#"))] = true
		}
	}
	var out []Violation
	for _, section := range c.cfg.Sections {
		if !headers[section] {
			out = append(out, Violation{
				Check:   c.Name(),
				Kind:    "missing_section",
				Path:    name,
				Pattern: section,
				Advice:  "add the required section header",
			})
		}
	}
	return out
}

// checkSync compares every member of a sync group against the first; any
// byte difference is a violation on the divergent file.
func (c *agentsCheck) checkSync(root string, group []string) []Violation {
	if len(group) < 2 {
		return nil
	}
	ref, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(group[0]))) // #nosec G304 -- rooted
	if err != nil {
		return nil
	}
	var out []Violation
	for _, name := range group[1:] {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name))) // #nosec G304 -- rooted
		if err != nil || !bytes.Equal(ref, data) {
			out = append(out, Violation{
				Check:      c.Name(),
				Kind:       "agents_out_of_sync",
				Path:       name,
				TargetPath: group[0],
				Advice:     "regenerate the file from its sync source",
			})
		}
	}
	return out
}
