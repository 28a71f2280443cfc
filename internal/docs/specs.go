package docs

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// IndexMode selects how the specs index proves reachability.
type IndexMode string

const (
	IndexAuto   IndexMode = "auto"
	IndexToc    IndexMode = "toc"
	IndexLinked IndexMode = "linked"
	IndexExists IndexMode = "exists"
)

// indexCandidates is the fixed priority list of index file names, tried in
// the specs directory and then in each directory above it.
var indexCandidates = []string{"README.md", "INDEX.md", "index.md", "SPECS.md"}

// SpecsConfig is the validator's view of the docs configuration.
type SpecsConfig struct {
	SpecsDir          string
	Mode              IndexMode
	IndexFile         string // configured override, root-relative
	RequiredSections  []string
	ForbiddenSections []string
	MaxLines          int
	MaxTokens         int
}

// SpecViolation is one specs-index or content-rule finding.
type SpecViolation struct {
	Path   string
	Kind   string
	Detail string
	Value  int
}

// FindIndex locates the specs index: the configured override when set,
// otherwise the first candidate name found in or above the specs directory.
// The returned path is root-relative.
func FindIndex(root string, cfg SpecsConfig) (string, bool) {
	if cfg.IndexFile != "" {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(cfg.IndexFile))); err == nil {
			return filepath.ToSlash(cfg.IndexFile), true
		}
		return "", false
	}
	dir := filepath.ToSlash(cfg.SpecsDir)
	for {
		for _, name := range indexCandidates {
			rel := path.Join(dir, name)
			if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err == nil {
				return rel, true
			}
		}
		if dir == "." || dir == "" {
			return "", false
		}
		dir = path.Dir(dir)
	}
}

// ValidateSpecs validates the specs directory against the configured index
// mode and returns the index path (when found) for metrics.
func ValidateSpecs(root string, cfg SpecsConfig, specFiles []string) ([]SpecViolation, string) {
	if cfg.SpecsDir == "" {
		return nil, ""
	}
	index, ok := FindIndex(root, cfg)
	if !ok {
		return []SpecViolation{{Kind: "missing_spec_index", Detail: cfg.SpecsDir}}, ""
	}

	mode := cfg.Mode
	if mode == "" {
		mode = IndexAuto
	}
	var out []SpecViolation
	switch mode {
	case IndexExists:
		// Presence is the whole contract.
	case IndexToc:
		out = validateAgainstSet(tocReachable(root, index), index, specFiles)
	case IndexLinked:
		out = validateAgainstSet(linkedReachable(root, index), index, specFiles)
	case IndexAuto:
		if reached, usable := tocReachableUsable(root, index); usable {
			out = validateAgainstSet(reached, index, specFiles)
		} else {
			out = validateAgainstSet(linkedReachable(root, index), index, specFiles)
		}
	}
	return out, index
}

// validateAgainstSet flags spec files the index never reaches.
func validateAgainstSet(reached map[string]bool, index string, specFiles []string) []SpecViolation {
	var out []SpecViolation
	sorted := append([]string{}, specFiles...)
	sort.Strings(sorted)
	for _, spec := range sorted {
		if spec == index || reached[spec] {
			continue
		}
		out = append(out, SpecViolation{Path: spec, Kind: "unreachable_spec"})
	}
	return out
}

// tocReachable resolves the first tree block in the index.
func tocReachable(root, index string) map[string]bool {
	reached, _ := tocReachableUsable(root, index)
	return reached
}

func tocReachableUsable(root, index string) (map[string]bool, bool) {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(index))) // #nosec G304 -- rooted
	if err != nil {
		return map[string]bool{}, false
	}
	r := &Resolver{Root: root}
	for _, block := range ExtractFencedBlocks(string(content)) {
		if !IsTree(block) {
			continue
		}
		entries := ParseTree(block)
		if len(entries) == 0 {
			continue
		}
		reached := make(map[string]bool)
		for _, pe := range TreePaths(entries) {
			if rel, ok := r.Resolve(index, pe.Path); ok {
				reached[rel] = true
			}
		}
		return reached, true
	}
	return map[string]bool{}, false
}

// linkedReachable walks site-local links breadth-first from the index.
func linkedReachable(root, index string) map[string]bool {
	r := &Resolver{Root: root}
	reached := map[string]bool{index: true}
	queue := []string{index}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(current))) // #nosec G304 -- rooted
		if err != nil {
			continue
		}
		for _, link := range ExtractLinks(string(content)) {
			if !IsSiteLocal(link.Target) {
				continue
			}
			rel, ok := r.Resolve(current, link.Target)
			if !ok || reached[rel] {
				continue
			}
			reached[rel] = true
			if strings.HasSuffix(rel, ".md") {
				queue = append(queue, rel)
			}
		}
	}
	return reached
}

// ValidateSpecContent applies the per-spec content rules: required and
// forbidden sections, and size ceilings.
func ValidateSpecContent(rel, content string, cfg SpecsConfig) []SpecViolation {
	var out []SpecViolation
	lines := strings.Split(content, "\n")

	headers := make(map[string]bool)
	nonBlank := 0
	tokens := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonBlank++
		tokens += len(strings.Fields(line))
		if strings.HasPrefix(trimmed, "#") {
			headers[strings.TrimSpace(strings.TrimLeft(trimmed, "#"))] = true
		}
	}

	for _, section := range cfg.RequiredSections {
		if !headers[section] {
			out = append(out, SpecViolation{Path: rel, Kind: "missing_section", Detail: section})
		}
	}
	for _, section := range cfg.ForbiddenSections {
		if headers[section] {
			out = append(out, SpecViolation{Path: rel, Kind: "forbidden_section", Detail: section})
		}
	}
	if cfg.MaxLines > 0 && nonBlank > cfg.MaxLines {
		out = append(out, SpecViolation{Path: rel, Kind: "file_too_large", Value: nonBlank})
	}
	if cfg.MaxTokens > 0 && tokens > cfg.MaxTokens {
		out = append(out, SpecViolation{Path: rel, Kind: "too_many_tokens", Value: tokens})
	}
	return out
}
