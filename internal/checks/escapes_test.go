package checks

import (
	"strings"
	"testing"

	"github.com/fulmenhq/quench/pkg/config"
)

func newEscapes(t *testing.T, cfg *config.Config, ctx *Context) *escapesCheck {
	t.Helper()
	check, err := newEscapesCheck(cfg, ctx.Adapters)
	if err != nil {
		t.Fatalf("newEscapesCheck: %v", err)
	}
	return check
}

func TestEscapeRequireCommentSatisfied(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := `fn read(ptr: *const u8) -> u8 {
    // SAFETY: invariants hold because the caller pinned the buffer
    unsafe { *ptr }
}
`
	got := check.RunFile(sourceFile(ctx, "src/mem.rs"), content, ctx)
	for _, v := range got {
		if v.Kind == "missing_comment" {
			t.Errorf("safety comment should satisfy the pattern: %+v", v)
		}
	}
}

func TestEscapeRequireCommentMissing(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := `fn read(ptr: *const u8) -> u8 {
    unsafe { *ptr }
}
`
	var missing []Violation
	for _, v := range check.RunFile(sourceFile(ctx, "src/mem.rs"), content, ctx) {
		if v.Kind == "missing_comment" {
			missing = append(missing, v)
		}
	}
	if len(missing) != 1 {
		t.Fatalf("want exactly one missing_comment, got %+v", missing)
	}
	if missing[0].Line != 2 || missing[0].Pattern != "unsafe-block" {
		t.Errorf("violation = %+v", missing[0])
	}
}

func TestEscapeTrailingCommentCounts(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := "fn f(p: *const u8) -> u8 {\n    unsafe { *p } // SAFETY: p outlives f\n}\n"
	for _, v := range check.RunFile(sourceFile(ctx, "src/mem.rs"), content, ctx) {
		if v.Kind == "missing_comment" {
			t.Errorf("same-line trailing comment should count: %+v", v)
		}
	}
}

func TestEscapeBlankLineBreaksCommentBlock(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := "// SAFETY: too far away\n\nfn f(p: *const u8) -> u8 {\n    unsafe { *p }\n}\n"
	found := false
	for _, v := range check.RunFile(sourceFile(ctx, "src/mem.rs"), content, ctx) {
		if v.Kind == "missing_comment" {
			found = true
		}
	}
	if !found {
		t.Error("a blank line must break the comment window")
	}
}

func TestEscapeForbid(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := "fn later() {\n    todo!(\"soon\");\n}\n"
	var forbidden []Violation
	for _, v := range check.RunFile(sourceFile(ctx, "src/wip.rs"), content, ctx) {
		if v.Kind == "forbidden" {
			forbidden = append(forbidden, v)
		}
	}
	if len(forbidden) != 1 || forbidden[0].Line != 2 || forbidden[0].Pattern != "todo-macro" {
		t.Errorf("forbidden = %+v", forbidden)
	}
}

func TestEscapeForbidToleratedInTests(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	// todo-macro has in_tests = allow: matches in test files are tolerated.
	content := "#[test]\nfn later() {\n    todo!();\n}\n"
	for _, v := range check.RunFile(sourceFile(ctx, "tests/wip.rs"), content, ctx) {
		if v.Kind == "forbidden" && v.Pattern == "todo-macro" {
			t.Errorf("pattern should not apply to tests: %+v", v)
		}
	}
}

func TestEscapeCountThresholdAggregation(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	perFile := []Violation{
		{Check: "escapes", Path: "src/a.rs", Kind: kindEscapeCount, Pattern: "unwrap", Value: 20, Threshold: 25},
		{Check: "escapes", Path: "src/b.rs", Kind: kindEscapeCount, Pattern: "unwrap", Value: 10, Threshold: 25},
	}
	out, metrics := check.Aggregate(ctx, perFile)

	var exceeded []Violation
	for _, v := range out {
		if v.Kind == "count_exceeded" {
			exceeded = append(exceeded, v)
		}
	}
	if len(exceeded) != 1 || exceeded[0].Value != 30 || exceeded[0].Threshold != 25 {
		t.Errorf("count_exceeded = %+v", exceeded)
	}
	source := metrics["source"].(map[string]interface{})
	if source["unwrap"] != 30 {
		t.Errorf("source metrics = %+v", source)
	}
}

func TestEscapeCountUnderThresholdIsClean(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	perFile := []Violation{
		{Check: "escapes", Path: "src/a.rs", Kind: kindEscapeCount, Pattern: "unwrap", Value: 5, Threshold: 25},
	}
	out, _ := check.Aggregate(ctx, perFile)
	for _, v := range out {
		if v.Kind == "count_exceeded" {
			t.Errorf("threshold not exceeded: %+v", v)
		}
	}
}

func TestSuppressionAllowListed(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := "#[allow(dead_code)]\nfn unused() {}\n"
	for _, v := range check.RunFile(sourceFile(ctx, "src/lib.rs"), content, ctx) {
		if strings.Contains(v.Kind, "suppression") {
			t.Errorf("allow-listed lint flagged: %+v", v)
		}
	}
}

func TestSuppressionRequiresComment(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := "#[allow(unused_imports)]\nuse std::fmt;\n"
	var undocumented []Violation
	for _, v := range check.RunFile(sourceFile(ctx, "src/lib.rs"), content, ctx) {
		if v.Kind == "undocumented_suppression" {
			undocumented = append(undocumented, v)
		}
	}
	if len(undocumented) != 1 {
		t.Fatalf("want one undocumented_suppression, got %+v", undocumented)
	}
	if undocumented[0].Pattern != "rustc:unused_imports" {
		t.Errorf("pattern = %q", undocumented[0].Pattern)
	}
}

func TestSuppressionCommentSatisfies(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := "// OK: re-exported for the public API surface\n#[allow(unused_imports)]\nuse std::fmt;\n"
	for _, v := range check.RunFile(sourceFile(ctx, "src/lib.rs"), content, ctx) {
		if v.Kind == "undocumented_suppression" {
			t.Errorf("justified suppression flagged: %+v", v)
		}
	}
}

func TestSuppressionDenyList(t *testing.T) {
	cfg := config.Default()
	cfg.Languages = map[string]config.LanguageConfig{
		"golang": {Suppress: config.SuppressConfig{Deny: []string{"errcheck"}}},
	}
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := "func f() {\n\t_ = do() //nolint:errcheck\n}\n"
	var forbidden []Violation
	for _, v := range check.RunFile(sourceFile(ctx, "pkg/f.go"), content, ctx) {
		if v.Kind == "forbidden_suppression" {
			forbidden = append(forbidden, v)
		}
	}
	if len(forbidden) != 1 || forbidden[0].Line != 2 {
		t.Errorf("forbidden_suppression = %+v", forbidden)
	}
}

func TestSuppressionDedupPerLine(t *testing.T) {
	cfg := config.Default()
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := "#[allow(unused_imports, unused_imports)]\nuse std::fmt;\n"
	count := 0
	for _, v := range check.RunFile(sourceFile(ctx, "src/lib.rs"), content, ctx) {
		if v.Kind == "undocumented_suppression" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate lint ids on one line must dedup, got %d", count)
	}
}

func TestUserConfiguredPattern(t *testing.T) {
	cfg := config.Default()
	cfg.Escapes.Patterns = []config.PatternConfig{
		{Name: "xxx-marker", Pattern: "XXX", Action: "forbid", InTests: "deny"},
	}
	ctx := testContext(t, cfg)
	check := newEscapes(t, cfg, ctx)

	content := "fn f() {} // XXX fix this\n"
	found := false
	for _, v := range check.RunFile(sourceFile(ctx, "src/lib.rs"), content, ctx) {
		if v.Kind == "forbidden" && v.Pattern == "xxx-marker" {
			found = true
		}
	}
	if !found {
		t.Error("user-configured pattern did not fire")
	}
}
