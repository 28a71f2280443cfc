package checks

import (
	"testing"

	"github.com/fulmenhq/quench/internal/gitctx"
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
)

func TestDocsBrokenLink(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	writeRootFile(t, ctx.Root, "docs/present.md", "x")
	check := newDocsCheck(cfg)

	file := &walker.WalkedFile{RelPath: "docs/index.md", Class: walker.Class{Kind: walker.KindDocs}}
	content := "[ok](present.md)\n[broken](gone.md)\n"
	vs := check.RunFile(file, content, ctx)
	if len(vs) != 1 || vs[0].Kind != "broken_link" || vs[0].Line != 2 || vs[0].TargetPath != "gone.md" {
		t.Errorf("vs = %+v", vs)
	}
}

func TestDocsExcludeGlob(t *testing.T) {
	cfg := config.Default()
	cfg.Docs.Exclude = []string{"CHANGELOG.md"}
	ctx := testContext(t, cfg)
	check := newDocsCheck(cfg)

	file := &walker.WalkedFile{RelPath: "CHANGELOG.md", Class: walker.Class{Kind: walker.KindDocs}}
	if vs := check.RunFile(file, "[broken](gone.md)\n", ctx); len(vs) != 0 {
		t.Errorf("excluded file validated: %+v", vs)
	}
}

func TestDocsSpecContentRules(t *testing.T) {
	cfg := config.Default()
	cfg.Docs.SpecsDir = "docs/specs"
	cfg.Docs.RequiredSections = []string{"Overview"}
	ctx := testContext(t, cfg)
	check := newDocsCheck(cfg)

	file := &walker.WalkedFile{RelPath: "docs/specs/engine.md", Class: walker.Class{Kind: walker.KindDocs}}
	vs := check.RunFile(file, "# Engine\nno overview section\n", ctx)
	found := false
	for _, v := range vs {
		if v.Kind == "missing_section" && v.Pattern == "Overview" {
			found = true
		}
	}
	if !found {
		t.Errorf("vs = %+v", vs)
	}
}

func TestDocsAggregateSpecsIndex(t *testing.T) {
	cfg := config.Default()
	cfg.Docs.SpecsDir = "docs/specs"
	ctx := testContext(t, cfg)
	writeRootFile(t, ctx.Root, "docs/specs/README.md", "[a](a.md)\n")
	writeRootFile(t, ctx.Root, "docs/specs/a.md", "x\n")
	writeRootFile(t, ctx.Root, "docs/specs/orphan.md", "x\n")
	ctx.Files = []*walker.WalkedFile{
		{RelPath: "docs/specs/README.md", Class: walker.Class{Kind: walker.KindDocs}},
		{RelPath: "docs/specs/a.md", Class: walker.Class{Kind: walker.KindDocs}},
		{RelPath: "docs/specs/orphan.md", Class: walker.Class{Kind: walker.KindDocs}},
	}
	check := newDocsCheck(cfg)

	out, metrics := check.Aggregate(ctx, nil)
	if len(out) != 1 || out[0].Kind != "unreachable_spec" || out[0].Path != "docs/specs/orphan.md" {
		t.Errorf("out = %+v", out)
	}
	if metrics["index_file"] != "docs/specs/README.md" {
		t.Errorf("metrics = %+v", metrics)
	}
	if metrics["spec_files"] != 3 {
		t.Errorf("spec_files = %v", metrics["spec_files"])
	}
}

func TestDocsAreaValidation(t *testing.T) {
	cfg := config.Default()
	cfg.Docs.Areas = []config.AreaConfig{
		{Name: "engine", SourceGlob: "internal/engine/**", DocsGlob: "docs/engine/**"},
	}
	check := newDocsCheck(cfg)

	commits := []gitctx.Commit{
		{SHA: "aaaaaaaaaaaa", Subject: "feat(engine): add runner", Type: "feat", Scope: "engine",
			Files: []string{"internal/engine/engine.go"}},
		{SHA: "bbbbbbbbbbbb", Subject: "feat: unrelated", Type: "feat",
			Files: []string{"cmd/root.go"}},
		{SHA: "cccccccccccc", Subject: "feat: touches engine source", Type: "feat",
			Files: []string{"internal/engine/cache.go", "docs/engine/cache.md"}},
		{SHA: "dddddddddddd", Subject: "chore(engine): tidy", Type: "chore",
			Files: []string{"internal/engine/engine.go"}},
	}
	out := check.validateAreas(commits)
	if len(out) != 1 {
		t.Fatalf("out = %+v", out)
	}
	v := out[0]
	if v.Kind != "missing_docs" || v.Area != "engine" || v.AreaMatch != "scope" || v.ExpectedDocs != "docs/engine/**" {
		t.Errorf("v = %+v", v)
	}
}

func TestDocsAreaSourceMatch(t *testing.T) {
	cfg := config.Default()
	cfg.Docs.Areas = []config.AreaConfig{
		{Name: "engine", SourceGlob: "internal/engine/**", DocsGlob: "docs/engine/**"},
	}
	check := newDocsCheck(cfg)

	commits := []gitctx.Commit{
		{SHA: "eeeeeeeeeeee", Subject: "feat: engine work without scope", Type: "feat",
			Files: []string{"internal/engine/engine.go"}},
	}
	out := check.validateAreas(commits)
	if len(out) != 1 || out[0].AreaMatch != "source" {
		t.Errorf("out = %+v", out)
	}
}
