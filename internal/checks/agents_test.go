package checks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/quench/pkg/config"
)

func writeRootFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAgentsMissingRequiredFile(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newAgentsCheck(cfg)

	out, _ := check.Aggregate(ctx, nil)
	if len(out) != 1 || out[0].Kind != "missing_agent_file" || out[0].Path != "CLAUDE.md" {
		t.Errorf("out = %+v", out)
	}
}

func TestAgentsPresentFilePasses(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	writeRootFile(t, ctx.Root, "CLAUDE.md", "# Project\ninstructions\n")
	check := newAgentsCheck(cfg)

	out, metrics := check.Aggregate(ctx, nil)
	if len(out) != 0 {
		t.Errorf("out = %+v", out)
	}
	if metrics["present"] != 1 {
		t.Errorf("metrics = %+v", metrics)
	}
}

func TestAgentsSyncDivergence(t *testing.T) {
	cfg := config.Default()
	cfg.Agents.Sync = [][]string{{"CLAUDE.md", ".cursorrules"}}
	ctx := testContext(t, cfg)
	writeRootFile(t, ctx.Root, "CLAUDE.md", "shared content\n")
	writeRootFile(t, ctx.Root, ".cursorrules", "diverged content\n")
	check := newAgentsCheck(cfg)

	out, _ := check.Aggregate(ctx, nil)
	found := false
	for _, v := range out {
		if v.Kind == "agents_out_of_sync" && v.Path == ".cursorrules" && v.TargetPath == "CLAUDE.md" {
			found = true
		}
	}
	if !found {
		t.Errorf("out = %+v", out)
	}
}

func TestAgentsSyncIdentical(t *testing.T) {
	cfg := config.Default()
	cfg.Agents.Sync = [][]string{{"CLAUDE.md", ".cursorrules"}}
	ctx := testContext(t, cfg)
	writeRootFile(t, ctx.Root, "CLAUDE.md", "shared content\n")
	writeRootFile(t, ctx.Root, ".cursorrules", "shared content\n")
	check := newAgentsCheck(cfg)

	out, _ := check.Aggregate(ctx, nil)
	for _, v := range out {
		if v.Kind == "agents_out_of_sync" {
			t.Errorf("identical files flagged: %+v", v)
		}
	}
}

func TestAgentsMissingSection(t *testing.T) {
	cfg := config.Default()
	cfg.Agents.Sections = []string{"Build", "Conventions"}
	ctx := testContext(t, cfg)
	writeRootFile(t, ctx.Root, "CLAUDE.md", "# Build\nmake test\n")
	check := newAgentsCheck(cfg)

	out, _ := check.Aggregate(ctx, nil)
	if len(out) != 1 || out[0].Kind != "missing_section" || out[0].Pattern != "Conventions" {
		t.Errorf("out = %+v", out)
	}
}
