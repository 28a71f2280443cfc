// Package config loads and validates the quench.toml project configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// DefaultFileName is the configuration file looked up at the project root.
const DefaultFileName = "quench.toml"

// SupportedVersion is the only accepted value of the top-level version key.
const SupportedVersion = 1

// ErrInvalid marks configuration errors (malformed TOML, unknown keys,
// unsupported version, contradictory flags). Callers map it to exit code 2.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the effective quench configuration.
type Config struct {
	Version   int                       `toml:"version"`
	Checks    ChecksConfig              `toml:"checks"`
	Cloc      ClocConfig                `toml:"cloc"`
	Escapes   EscapesConfig             `toml:"escapes"`
	Agents    AgentsConfig              `toml:"agents"`
	Docs      DocsConfig                `toml:"docs"`
	Tests     TestsConfig               `toml:"tests"`
	Git       GitConfig                 `toml:"git"`
	License   LicenseConfig             `toml:"license"`
	Cache     CacheConfig               `toml:"cache"`
	Ignore    []string                  `toml:"ignore"`
	Languages map[string]LanguageConfig `toml:"languages"`
}

// ChecksConfig selects the enabled check set.
type ChecksConfig struct {
	Enable  []string `toml:"enable"`
	Disable []string `toml:"disable"`
}

// ClocConfig configures the line-count check.
type ClocConfig struct {
	MaxLines     int  `toml:"max_lines"`
	MaxTestLines int  `toml:"max_test_lines"`
	ByPackage    bool `toml:"by_package"`
	MinRatio     float64 `toml:"min_ratio"`
}

// PatternConfig is a user-configured escape pattern.
type PatternConfig struct {
	Name            string   `toml:"name"`
	Pattern         string   `toml:"pattern"`
	Action          string   `toml:"action"` // forbid | require_comment | count
	RequiredComment []string `toml:"required_comment"`
	Threshold       int      `toml:"threshold"`
	Advice          string   `toml:"advice"`
	InTests         string   `toml:"in_tests"` // allow | deny | only
}

// EscapesConfig configures the escape-hatch check.
type EscapesConfig struct {
	Patterns             []PatternConfig `toml:"patterns"`
	LintConfigStandalone bool            `toml:"lint_config_standalone"`
	LintConfigFiles      []string        `toml:"lint_config_files"`
}

// AgentsConfig configures the agent-file check.
type AgentsConfig struct {
	Required []string   `toml:"required"`
	Sync     [][]string `toml:"sync"`
	Sections []string   `toml:"sections"`
}

// AreaConfig pairs a source glob with the docs glob that must change with it.
type AreaConfig struct {
	Name       string `toml:"name"`
	SourceGlob string `toml:"source_glob"`
	DocsGlob   string `toml:"docs_glob"`
}

// DocsConfig configures the doc-graph validator.
type DocsConfig struct {
	Include           []string     `toml:"include"`
	Exclude           []string     `toml:"exclude"`
	SpecsDir          string       `toml:"specs_dir"`
	IndexMode         string       `toml:"index_mode"` // auto | toc | linked | exists
	IndexFile         string       `toml:"index_file"`
	RequiredSections  []string     `toml:"required_sections"`
	ForbiddenSections []string     `toml:"forbidden_sections"`
	MaxLines          int          `toml:"max_lines"`
	MaxTokens         int          `toml:"max_tokens"`
	Areas             []AreaConfig `toml:"areas"`
}

// TestsConfig configures the tests check.
type TestsConfig struct {
	Placeholders bool `toml:"placeholders"`
}

// GitConfig configures the git surface.
type GitConfig struct {
	Base string `toml:"base"`
}

// LicenseConfig configures the license-header check.
type LicenseConfig struct {
	Header         string `toml:"header"`
	MaxHeaderLines int    `toml:"max_header_lines"`
}

// CacheConfig configures the file cache location.
type CacheConfig struct {
	Dir     string `toml:"dir"`
	Disable bool   `toml:"disable"`
}

// SuppressConfig describes suppression-directive policy for one language.
type SuppressConfig struct {
	Allow           []string            `toml:"allow"`
	Deny            []string            `toml:"deny"`
	RequiredComment []string            `toml:"required_comment"`
	PerLint         map[string][]string `toml:"per_lint"`
}

// LanguageConfig overrides a built-in language adapter.
type LanguageConfig struct {
	Source   []string        `toml:"source"`
	Test     []string        `toml:"test"`
	Ignore   []string        `toml:"ignore"`
	CfgTest  string          `toml:"cfg_test"` // count | require | off (rust only)
	Patterns []PatternConfig `toml:"patterns"`
	Suppress SuppressConfig  `toml:"suppress"`
}

var defaultConfig = Config{
	Version: SupportedVersion,
	Checks: ChecksConfig{
		Enable: []string{"agents", "cloc", "docs", "escapes", "license", "tests"},
	},
	Cloc: ClocConfig{
		MaxLines:     750,
		MaxTestLines: 1000,
		ByPackage:    true,
	},
	Escapes: EscapesConfig{
		LintConfigStandalone: true,
	},
	Agents: AgentsConfig{
		Required: []string{"CLAUDE.md"},
	},
	Docs: DocsConfig{
		Include:   []string{"**/*.md"},
		Exclude:   []string{},
		IndexMode: "auto",
	},
	Tests: TestsConfig{
		Placeholders: true,
	},
	License: LicenseConfig{
		MaxHeaderLines: 10,
	},
	Cache: CacheConfig{
		Dir: ".quench",
	},
}

// Default returns a copy of the built-in defaults.
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// Load reads quench.toml under root. A missing file yields the defaults.
// Unknown keys, malformed TOML, and unsupported versions are ErrInvalid.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, DefaultFileName)
	data, err := os.ReadFile(path) // #nosec G304 -- path is rooted at the project root
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, DefaultFileName, strings.TrimSpace(strict.String()))
		}
		return nil, fmt.Errorf("%w: malformed %s: %v", ErrInvalid, DefaultFileName, err)
	}
	if cfg.Version != SupportedVersion {
		return nil, fmt.Errorf("%w: unsupported config version %d (expected %d)", ErrInvalid, cfg.Version, SupportedVersion)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// validate rejects values the engine cannot act on.
func (c *Config) validate() error {
	for _, p := range c.Escapes.Patterns {
		if err := validatePattern(p); err != nil {
			return err
		}
	}
	for langID, lc := range c.Languages {
		for _, p := range lc.Patterns {
			if err := validatePattern(p); err != nil {
				return fmt.Errorf("languages.%s: %w", langID, err)
			}
		}
		switch lc.CfgTest {
		case "", "count", "require", "off":
		default:
			return fmt.Errorf("%w: languages.%s.cfg_test must be count, require, or off", ErrInvalid, langID)
		}
	}
	switch c.Docs.IndexMode {
	case "", "auto", "toc", "linked", "exists":
	default:
		return fmt.Errorf("%w: docs.index_mode must be auto, toc, linked, or exists", ErrInvalid)
	}
	for _, name := range append(append([]string{}, c.Checks.Enable...), c.Checks.Disable...) {
		if !knownCheck(name) {
			return fmt.Errorf("%w: unknown check %q", ErrInvalid, name)
		}
	}
	return nil
}

func validatePattern(p PatternConfig) error {
	if p.Pattern == "" {
		return fmt.Errorf("%w: escape pattern with empty source", ErrInvalid)
	}
	switch p.Action {
	case "", "forbid", "require_comment", "count":
	default:
		return fmt.Errorf("%w: pattern %q: action must be forbid, require_comment, or count", ErrInvalid, p.Name)
	}
	if p.Action == "require_comment" && len(p.RequiredComment) == 0 {
		return fmt.Errorf("%w: pattern %q: require_comment needs required_comment literals", ErrInvalid, p.Name)
	}
	switch p.InTests {
	case "", "allow", "deny", "only":
	default:
		return fmt.Errorf("%w: pattern %q: in_tests must be allow, deny, or only", ErrInvalid, p.Name)
	}
	return nil
}

func knownCheck(name string) bool {
	switch name {
	case "agents", "cloc", "docs", "escapes", "git", "license", "tests":
		return true
	}
	return false
}

// EnabledChecks resolves the enable/disable lists into the effective check
// set, in the order of the enable list. The git check is only enabled implicitly in CI mode; callers
// add it there.
func (c *Config) EnabledChecks() []string {
	disabled := make(map[string]bool, len(c.Checks.Disable))
	for _, name := range c.Checks.Disable {
		disabled[name] = true
	}
	var out []string
	for _, name := range c.Checks.Enable {
		if !disabled[name] {
			out = append(out, name)
		}
	}
	return out
}

// applyEnv consults the small set of environment variables the engine honors.
func applyEnv(c *Config) {
	v := viper.New()
	v.SetEnvPrefix("QUENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if dir := v.GetString("cache_dir"); dir != "" {
		c.Cache.Dir = dir
	}
}

// CacheDir resolves the cache directory under root.
func (c *Config) CacheDir(root string) string {
	if filepath.IsAbs(c.Cache.Dir) {
		return c.Cache.Dir
	}
	return filepath.Join(root, c.Cache.Dir)
}
