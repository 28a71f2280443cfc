/*
Copyright © 2025 Fulmen HQ <info@fulmenhq.dev>
*/
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/quench/pkg/exitcode"
)

func resetCheckFlags(t *testing.T) {
	t.Helper()
	for _, name := range []string{"ci", "fix", "dry-run", "no-cache"} {
		if err := checkCmd.Flags().Set(name, "false"); err != nil {
			t.Fatal(err)
		}
	}
	if err := checkCmd.Flags().Set("format", "text"); err != nil {
		t.Fatal(err)
	}
}

func TestDryRunWithoutFixIsConfigError(t *testing.T) {
	resetCheckFlags(t)
	if err := checkCmd.Flags().Set("dry-run", "true"); err != nil {
		t.Fatal(err)
	}
	if code := runCheck(checkCmd, []string{t.TempDir()}); code != exitcode.ConfigError {
		t.Errorf("exit code = %d, want %d", code, exitcode.ConfigError)
	}
}

func TestUnknownFormatIsConfigError(t *testing.T) {
	resetCheckFlags(t)
	if err := checkCmd.Flags().Set("format", "xml"); err != nil {
		t.Fatal(err)
	}
	if code := runCheck(checkCmd, []string{t.TempDir()}); code != exitcode.ConfigError {
		t.Errorf("exit code = %d, want %d", code, exitcode.ConfigError)
	}
}

func TestCleanProjectExitsZero(t *testing.T) {
	resetCheckFlags(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "CLAUDE.md"), []byte("# Project\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := runCheck(checkCmd, []string{dir}); code != exitcode.Success {
		t.Errorf("exit code = %d, want %d", code, exitcode.Success)
	}
}

func TestViolationsExitOne(t *testing.T) {
	resetCheckFlags(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "CLAUDE.md"), []byte("# Project\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "wip.rs"), []byte("fn f() { todo!() }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := runCheck(checkCmd, []string{dir}); code != exitcode.ViolationsFound {
		t.Errorf("exit code = %d, want %d", code, exitcode.ViolationsFound)
	}
}

func TestMalformedConfigExitsTwo(t *testing.T) {
	resetCheckFlags(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quench.toml"), []byte("version = [nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := runCheck(checkCmd, []string{dir}); code != exitcode.ConfigError {
		t.Errorf("exit code = %d, want %d", code, exitcode.ConfigError)
	}
}
