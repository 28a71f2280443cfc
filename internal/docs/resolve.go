// Package docs validates the documentation graph: markdown links, fenced
// table-of-contents blocks interpreted as directory trees, and the specs
// index. Parsing is line-oriented with narrow hand-written scanners; no
// markdown AST is built.
package docs

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Resolver resolves site-local references against the project tree.
type Resolver struct {
	Root string
}

// normalizeTarget applies URL percent-decoding, backslash normalization,
// fragment stripping, and trailing-slash removal.
func normalizeTarget(target string) string {
	if decoded, err := url.PathUnescape(target); err == nil {
		target = decoded
	}
	target = strings.ReplaceAll(target, "\\", "/")
	if idx := strings.IndexByte(target, '#'); idx >= 0 {
		target = target[:idx]
	}
	return strings.TrimSuffix(target, "/")
}

// IsSiteLocal reports whether a link target refers to a file in this tree.
// External schemes and pure fragments are not validated.
func IsSiteLocal(target string) bool {
	switch {
	case target == "":
		return false
	case strings.HasPrefix(target, "#"):
		return false
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		return false
	case strings.HasPrefix(target, "mailto:"):
		return false
	}
	return true
}

// Resolve tries the three resolution strategies in order: relative to the
// containing file's directory, relative to the project root, and relative
// to the root after stripping a leading component matching the containing
// file's top directory. It returns the first root-relative path that
// exists.
func (r *Resolver) Resolve(containingRel, target string) (string, bool) {
	target = normalizeTarget(target)
	if target == "" {
		return "", true // fragment-only after normalization
	}

	containingRel = filepath.ToSlash(containingRel)
	dir := path.Dir(containingRel)

	candidates := []string{
		path.Join(dir, target),
		path.Clean(strings.TrimPrefix(target, "/")),
	}
	if top := topComponent(containingRel); top != "" && strings.HasPrefix(target, top+"/") {
		candidates = append(candidates, path.Clean(strings.TrimPrefix(target, top+"/")))
	}

	for _, cand := range candidates {
		if cand == "" || strings.HasPrefix(cand, "..") {
			continue
		}
		if r.exists(cand) {
			return cand, true
		}
	}
	return "", false
}

func (r *Resolver) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(r.Root, filepath.FromSlash(rel)))
	return err == nil
}

func topComponent(rel string) string {
	if idx := strings.IndexByte(rel, '/'); idx > 0 {
		return rel[:idx]
	}
	return ""
}
