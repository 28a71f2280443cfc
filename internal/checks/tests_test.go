package checks

import (
	"testing"

	"github.com/fulmenhq/quench/pkg/config"
)

func TestPlaceholderDetection(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newTestsCheck(cfg)

	content := "func TestLater(t *testing.T) {\n\tt.Skip(\"flaky\")\n}\n"
	vs := check.RunFile(sourceFile(ctx, "pkg/a_test.go"), content, ctx)
	if len(vs) != 1 || vs[0].Kind != kindPlaceholder || vs[0].Value != 1 {
		t.Fatalf("vs = %+v", vs)
	}
	if vs[0].Pattern != "golang/skip" {
		t.Errorf("pattern = %q", vs[0].Pattern)
	}
}

func TestPlaceholderDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Tests.Placeholders = false
	ctx := testContext(t, cfg)
	check := newTestsCheck(cfg)

	content := "it.todo('later')\n"
	if vs := check.RunFile(sourceFile(ctx, "web/app.test.ts"), content, ctx); len(vs) != 0 {
		t.Errorf("vs = %+v", vs)
	}
}

func TestPlaceholderAggregateMetrics(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newTestsCheck(cfg)

	perFile := []Violation{
		{Check: "tests", Path: "a_test.go", Kind: kindPlaceholder, Pattern: "golang/skip", Value: 2},
		{Check: "tests", Path: "b_test.go", Kind: kindPlaceholder, Pattern: "golang/skip", Value: 1},
		{Check: "tests", Path: "c.test.ts", Kind: kindPlaceholder, Pattern: "javascript/todo", Value: 3},
	}
	out, metrics := check.Aggregate(ctx, perFile)
	if len(out) != 0 {
		t.Errorf("carriers leaked: %+v", out)
	}
	placeholders := metrics["placeholders"].(map[string]interface{})
	golang := placeholders["golang"].(map[string]interface{})
	if golang["skip"] != 3 {
		t.Errorf("golang skip = %v", golang["skip"])
	}
	js := placeholders["javascript"].(map[string]interface{})
	if js["todo"] != 3 {
		t.Errorf("javascript todo = %v", js["todo"])
	}
}
