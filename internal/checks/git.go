package checks

import (
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
)

// gitCheck runs in CI mode only: it validates the commit range between HEAD
// and the base branch. A missing repository is a setup failure on this
// check, never a fatal engine error.
type gitCheck struct {
	cfg config.GitConfig
}

func newGitCheck(cfg *config.Config) *gitCheck {
	return &gitCheck{cfg: cfg.Git}
}

func (c *gitCheck) Name() string { return "git" }

func (c *gitCheck) Cacheable() bool { return false }

func (c *gitCheck) RequiredFileClasses() []walker.ClassKind { return nil }

func (c *gitCheck) RunFile(file *walker.WalkedFile, content string, ctx *Context) []Violation {
	return nil
}

func (c *gitCheck) Aggregate(ctx *Context, perFile []Violation) ([]Violation, Metrics) {
	out := append([]Violation{}, perFile...)
	if ctx.Git == nil {
		out = append(out, Violation{
			Check:  c.Name(),
			Kind:   "check_setup_failed",
			Advice: "no git repository found at the project root",
		})
		return out, Metrics{}
	}

	commits, err := ctx.Git.CommitsSinceBase(c.cfg.Base)
	if err != nil {
		out = append(out, Violation{
			Check:  c.Name(),
			Kind:   "check_setup_failed",
			Advice: err.Error(),
		})
		return out, Metrics{}
	}

	changedFiles := make(map[string]struct{})
	for _, commit := range commits {
		for _, f := range commit.Files {
			changedFiles[f] = struct{}{}
		}
		if commit.Type == "" {
			out = append(out, Violation{
				Check:   c.Name(),
				Kind:    "invalid_commit_subject",
				Pattern: commit.SHA[:minInt(8, len(commit.SHA))],
				Advice:  "use a conventional commit subject: type(scope): summary",
			})
		}
	}

	metrics := Metrics{
		"commits":       len(commits),
		"changed_files": len(changedFiles),
	}
	if ctx.Git.BaseRef != "" {
		metrics["base"] = ctx.Git.BaseRef
	}
	return out, metrics
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
