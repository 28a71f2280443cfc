package checks

import (
	"testing"

	"github.com/fulmenhq/quench/pkg/config"
)

func TestGitCheckWithoutRepository(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	ctx.Mode = ModeCI
	check := newGitCheck(cfg)

	out, _ := check.Aggregate(ctx, nil)
	if len(out) != 1 || out[0].Kind != "check_setup_failed" {
		t.Errorf("out = %+v", out)
	}
}

func TestGitCheckWantsNoFiles(t *testing.T) {
	cfg := config.Default()
	check := newGitCheck(cfg)
	if len(check.RequiredFileClasses()) != 0 {
		t.Error("git check is project-scoped")
	}
	if check.Cacheable() {
		t.Error("git check must not be cached")
	}
}
