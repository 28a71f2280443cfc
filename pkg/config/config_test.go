package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cloc.MaxLines != 750 {
		t.Errorf("MaxLines = %d, want default 750", cfg.Cloc.MaxLines)
	}
	if cfg.Cache.Dir != ".quench" {
		t.Errorf("Cache.Dir = %q, want .quench", cfg.Cache.Dir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version = 1\n[cloc]\nmax_lines = 100\nbogus_key = true\n")
	_, err := Load(dir)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version = [broken\n")
	if _, err := Load(dir); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version = 2\n")
	if _, err := Load(dir); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadRejectsUnknownCheck(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version = 1\n[checks]\nenable = [\"nonsense\"]\n")
	if _, err := Load(dir); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadRejectsBadPatternAction(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `version = 1
[[escapes.patterns]]
name = "x"
pattern = "foo"
action = "explode"
`)
	if _, err := Load(dir); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestEnabledChecksHonorsDisable(t *testing.T) {
	cfg := Default()
	cfg.Checks.Disable = []string{"docs"}
	for _, name := range cfg.EnabledChecks() {
		if name == "docs" {
			t.Fatal("docs should be disabled")
		}
	}
}

func TestFingerprintStableAcrossCalls(t *testing.T) {
	cfg := Default()
	a := cfg.Fingerprint("v1.0.0")
	b := cfg.Fingerprint("v1.0.0")
	if a != b {
		t.Errorf("fingerprint not stable: %x vs %x", a, b)
	}
}

func TestFingerprintChangesWithConfigAndVersion(t *testing.T) {
	cfg := Default()
	base := cfg.Fingerprint("v1.0.0")

	changed := Default()
	changed.Cloc.MaxLines = 100
	if changed.Fingerprint("v1.0.0") == base {
		t.Error("fingerprint unchanged after config change")
	}
	if cfg.Fingerprint("v1.0.1") == base {
		t.Error("fingerprint unchanged after tool version change")
	}
}

func TestCacheDirEnvOverride(t *testing.T) {
	t.Setenv("QUENCH_CACHE_DIR", "/tmp/quench-cache-override")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Dir != "/tmp/quench-cache-override" {
		t.Errorf("Cache.Dir = %q, want env override", cfg.Cache.Dir)
	}
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `version = 1

[cloc]
max_lines = 500
by_package = false

[docs]
specs_dir = "docs/specs"
index_mode = "linked"

[[docs.areas]]
name = "engine"
source_glob = "internal/engine/**"
docs_glob = "docs/engine/**"

[languages.rust]
cfg_test = "require"

[[languages.rust.patterns]]
name = "mem-forget"
pattern = 'mem::forget\('
action = "forbid"
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cloc.MaxLines != 500 || cfg.Cloc.ByPackage {
		t.Errorf("cloc not merged: %+v", cfg.Cloc)
	}
	if cfg.Docs.IndexMode != "linked" || len(cfg.Docs.Areas) != 1 {
		t.Errorf("docs not merged: %+v", cfg.Docs)
	}
	if cfg.Languages["rust"].CfgTest != "require" {
		t.Errorf("language override not merged: %+v", cfg.Languages["rust"])
	}
}
