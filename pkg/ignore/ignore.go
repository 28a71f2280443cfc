// Package ignore provides gitignore-based file filtering using go-git
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// defaultPatterns are always ignored regardless of project configuration.
// Build outputs, vendor trees, and dependency stores never carry signal for
// structural checks and pre-filtering them keeps discovery fast.
var defaultPatterns = []string{
	".git/**",
	".quench/**",
	"node_modules/**",
	"vendor/**",
	"target/**",
	"dist/**",
	"build/**",
	".venv/**",
	"__pycache__/**",
}

// Matcher provides gitignore-based file filtering
type Matcher struct {
	matcher  gitignore.Matcher
	repoRoot string
}

// NewMatcher creates a matcher with layered ignore files:
// 1. built-in defaults (build outputs, dependency stores)
// 2. .gitignore and related git ignore files
// 3. .quenchignore (repo overrides)
// 4. user-configured ignore globs from quench.toml
func NewMatcher(repoRoot string, configured []string) (*Matcher, error) {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		absRoot = repoRoot
	}
	fs := osfs.New(absRoot)

	var allPatterns []gitignore.Pattern
	for _, pattern := range defaultPatterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
	}

	// ReadPatterns with nil reads .gitignore, global excludes, and .git/info/exclude
	if gitPatterns, err := gitignore.ReadPatterns(fs, nil); err == nil {
		allPatterns = append(allPatterns, gitPatterns...)
	}

	if repoPatterns, err := readIgnoreFile(filepath.Join(absRoot, ".quenchignore")); err == nil {
		for _, pattern := range repoPatterns {
			allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
		}
	}

	for _, pattern := range configured {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
		}
	}

	return &Matcher{
		matcher:  gitignore.NewMatcher(allPatterns),
		repoRoot: absRoot,
	}, nil
}

// readIgnoreFile reads patterns from a text file (like .quenchignore)
func readIgnoreFile(path string) ([]string, error) {
	content, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- rooted at the repo
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// IsIgnoredRel checks if a repo-root-relative path should be ignored.
//
// relPath must be a repo-root relative path ("foo/bar.txt"), using either OS
// separators or forward slashes. It is normalized internally.
func (m *Matcher) IsIgnoredRel(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	pathParts := splitPath(relPath)
	if len(pathParts) == 0 {
		return false
	}
	return m.matcher.Match(pathParts, false)
}

// IsIgnoredDirRel checks if a repo-root-relative directory should be ignored
// (and thus skipped during traversal).
func (m *Matcher) IsIgnoredDirRel(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	pathParts := splitPath(relPath)
	if len(pathParts) == 0 {
		return false
	}
	return m.matcher.Match(pathParts, true)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return []string{}
	}
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
