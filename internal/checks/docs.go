package checks

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/quench/internal/docs"
	"github.com/fulmenhq/quench/internal/gitctx"
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
)

// docsCheck validates the documentation graph: links and TOC blocks per
// file, specs-index reachability and content rules across the tree, and
// commit/area coverage in CI mode.
type docsCheck struct {
	cfg config.DocsConfig
}

func newDocsCheck(cfg *config.Config) *docsCheck {
	return &docsCheck{cfg: cfg.Docs}
}

func (c *docsCheck) Name() string { return "docs" }

// Cacheable is false: link and TOC validation consult the surrounding tree,
// so a deleted target must surface without the markdown file changing.
func (c *docsCheck) Cacheable() bool { return false }

func (c *docsCheck) RequiredFileClasses() []walker.ClassKind {
	return []walker.ClassKind{walker.KindDocs}
}

// included applies the configured include/exclude glob set.
func (c *docsCheck) included(rel string) bool {
	inc := c.cfg.Include
	if len(inc) == 0 {
		inc = []string{"**/*.md"}
	}
	matched := false
	for _, g := range inc {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, g := range c.cfg.Exclude {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return false
		}
	}
	return true
}

func (c *docsCheck) RunFile(file *walker.WalkedFile, content string, ctx *Context) []Violation {
	if !c.included(file.RelPath) {
		return nil
	}
	resolver := &docs.Resolver{Root: ctx.Root}
	var out []Violation

	for _, broken := range docs.ValidateLinks(resolver, file.RelPath, content) {
		out = append(out, Violation{
			Check:      c.Name(),
			Path:       file.RelPath,
			Line:       broken.Line,
			Kind:       "broken_link",
			TargetPath: broken.Target,
			Advice:     "fix the link target or remove the link",
		})
	}
	for _, tv := range docs.ValidateTrees(resolver, file.RelPath, content) {
		out = append(out, Violation{
			Check:      c.Name(),
			Path:       file.RelPath,
			Line:       tv.Line,
			Kind:       tv.Kind,
			TargetPath: tv.Target,
			Advice:     "make the tree entry match the filesystem",
		})
	}

	if c.inSpecsDir(file.RelPath) {
		for _, sv := range docs.ValidateSpecContent(file.RelPath, content, c.specsConfig()) {
			out = append(out, specViolation(c.Name(), sv))
		}
	}
	return out
}

func (c *docsCheck) inSpecsDir(rel string) bool {
	if c.cfg.SpecsDir == "" {
		return false
	}
	prefix := strings.TrimSuffix(filepath.ToSlash(c.cfg.SpecsDir), "/") + "/"
	return strings.HasPrefix(rel, prefix)
}

func (c *docsCheck) specsConfig() docs.SpecsConfig {
	return docs.SpecsConfig{
		SpecsDir:          c.cfg.SpecsDir,
		Mode:              docs.IndexMode(c.cfg.IndexMode),
		IndexFile:         c.cfg.IndexFile,
		RequiredSections:  c.cfg.RequiredSections,
		ForbiddenSections: c.cfg.ForbiddenSections,
		MaxLines:          c.cfg.MaxLines,
		MaxTokens:         c.cfg.MaxTokens,
	}
}

func specViolation(check string, sv docs.SpecViolation) Violation {
	v := Violation{
		Check: check,
		Path:  sv.Path,
		Kind:  sv.Kind,
		Value: sv.Value,
	}
	switch sv.Kind {
	case "missing_section", "forbidden_section":
		v.Pattern = sv.Detail
	case "unreachable_spec":
		v.Advice = "link the spec from the index"
	case "missing_spec_index":
		v.Advice = "create an index file for " + sv.Detail
	}
	return v
}

func (c *docsCheck) Aggregate(ctx *Context, perFile []Violation) ([]Violation, Metrics) {
	out := append([]Violation{}, perFile...)
	metrics := Metrics{}

	var specFiles []string
	if c.cfg.SpecsDir != "" {
		for _, f := range ctx.Files {
			if f.Class.Kind == walker.KindDocs && c.inSpecsDir(f.RelPath) {
				specFiles = append(specFiles, f.RelPath)
			}
		}
		violations, index := docs.ValidateSpecs(ctx.Root, c.specsConfig(), specFiles)
		for _, sv := range violations {
			out = append(out, specViolation(c.Name(), sv))
		}
		if index != "" {
			metrics["index_file"] = index
		}
	}
	metrics["spec_files"] = len(specFiles)

	if ctx.Mode == ModeCI && len(c.cfg.Areas) > 0 && ctx.Git != nil {
		commits, err := ctx.Git.CommitsSinceBase(ctx.Config.Git.Base)
		if err == nil {
			out = append(out, c.validateAreas(commits)...)
		}
	}
	return out, metrics
}

// validateAreas requires docs changes for feature commits touching an
// area: a commit matches by conventional-commit scope or by source glob,
// and must then change a file under the area's docs glob.
func (c *docsCheck) validateAreas(commits []gitctx.Commit) []Violation {
	var out []Violation
	for _, commit := range commits {
		if !commit.IsFeature() {
			continue
		}
		for _, area := range c.cfg.Areas {
			matchType := ""
			if commit.Scope != "" && commit.Scope == area.Name {
				matchType = "scope"
			} else if matchAnyFile(commit.Files, area.SourceGlob) {
				matchType = "source"
			}
			if matchType == "" {
				continue
			}
			if matchAnyFile(commit.Files, area.DocsGlob) {
				continue
			}
			out = append(out, Violation{
				Check:        c.Name(),
				Kind:         "missing_docs",
				Pattern:      commit.SHA[:minInt(8, len(commit.SHA))],
				Area:         area.Name,
				AreaMatch:    matchType,
				ExpectedDocs: area.DocsGlob,
				Advice:       "update the area's documentation alongside the change",
			})
		}
	}
	return out
}

func matchAnyFile(files []string, glob string) bool {
	if glob == "" {
		return false
	}
	for _, f := range files {
		if ok, err := doublestar.Match(glob, filepath.ToSlash(f)); err == nil && ok {
			return true
		}
	}
	return false
}
