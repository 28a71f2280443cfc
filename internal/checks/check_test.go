package checks

import (
	"testing"

	"github.com/fulmenhq/quench/internal/lang"
	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
)

func TestRegistryLexicalOrder(t *testing.T) {
	cfg := config.Default()
	adapters, err := lang.NewSet(cfg)
	if err != nil {
		t.Fatal(err)
	}
	registry, err := NewRegistry(cfg, adapters, ModeFast)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	names := registry.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not in lexical order: %v", names)
		}
	}
	for _, name := range names {
		if name == "git" {
			t.Error("git check must not run in Fast mode")
		}
	}
}

func TestRegistryCIModeAddsGit(t *testing.T) {
	cfg := config.Default()
	adapters, err := lang.NewSet(cfg)
	if err != nil {
		t.Fatal(err)
	}
	registry, err := NewRegistry(cfg, adapters, ModeCI)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	found := false
	for _, name := range registry.Names() {
		if name == "git" {
			found = true
		}
	}
	if !found {
		t.Error("CI mode must enable the git check")
	}
}

func TestSortViolationsOrdering(t *testing.T) {
	vs := []Violation{
		{Path: "b.rs", Line: 1, Check: "cloc", Kind: "x"},
		{Path: "a.rs", Line: 9, Check: "cloc", Kind: "x"},
		{Path: "a.rs", Line: 2, Check: "escapes", Kind: "x"},
		{Path: "a.rs", Line: 2, Check: "cloc", Kind: "z"},
		{Path: "a.rs", Line: 2, Check: "cloc", Kind: "a"},
	}
	SortViolations(vs)
	want := []struct {
		path  string
		line  int
		check string
		kind  string
	}{
		{"a.rs", 2, "cloc", "a"},
		{"a.rs", 2, "cloc", "z"},
		{"a.rs", 2, "escapes", "x"},
		{"a.rs", 9, "cloc", "x"},
		{"b.rs", 1, "cloc", "x"},
	}
	for i, w := range want {
		v := vs[i]
		if v.Path != w.path || v.Line != w.line || v.Check != w.check || v.Kind != w.kind {
			t.Errorf("vs[%d] = %+v, want %+v", i, v, w)
		}
	}
}

func TestHasRequiredCommentWindow(t *testing.T) {
	lines := []string{
		"// SAFETY: top of block",
		"// more context",
		"unsafe { one }",
		"",
		"unsafe { two }",
	}
	if !hasRequiredComment(lines, 3, []string{"// SAFETY:"}) {
		t.Error("comment block immediately above should satisfy")
	}
	if hasRequiredComment(lines, 5, []string{"// SAFETY:"}) {
		t.Error("blank line must break the window")
	}
	if !hasRequiredComment(lines, 3, nil) {
		t.Error("no required literals means satisfied")
	}
}

func TestWants(t *testing.T) {
	cfg := config.Default()
	check := newClocCheck(cfg)
	if !Wants(check, walker.KindSource) || !Wants(check, walker.KindTest) {
		t.Error("cloc wants source and test")
	}
	if Wants(check, walker.KindDocs) {
		t.Error("cloc does not want docs")
	}
}
