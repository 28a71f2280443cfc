package docs

import (
	"regexp"
	"strings"
)

// Link is one markdown link with its 1-based line number.
type Link struct {
	Line   int
	Text   string
	Target string
}

var linkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)

// fenceRe matches a code fence opener or closer and captures the info tag.
var fenceRe = regexp.MustCompile("^\\s*(```+|~~~+)\\s*([A-Za-z0-9_-]*)")

// ExtractLinks returns every markdown link outside fenced code blocks.
func ExtractLinks(content string) []Link {
	var links []Link
	inFence := false
	var fenceMark string

	for i, line := range strings.Split(content, "\n") {
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			if !inFence {
				inFence = true
				fenceMark = m[1][:3]
			} else if strings.HasPrefix(m[1], fenceMark) {
				inFence = false
			}
			continue
		}
		if inFence {
			continue
		}
		for _, m := range linkRe.FindAllStringSubmatch(line, -1) {
			target := strings.TrimSpace(m[2])
			// Drop an optional link title: [t](path "title")
			if idx := strings.IndexAny(target, " \t"); idx >= 0 {
				target = target[:idx]
			}
			links = append(links, Link{Line: i + 1, Text: m[1], Target: target})
		}
	}
	return links
}

// BrokenLink is a site-local link no resolution strategy could satisfy.
type BrokenLink struct {
	Line   int
	Target string
}

// ValidateLinks resolves every site-local link in a markdown file.
func ValidateLinks(r *Resolver, rel, content string) []BrokenLink {
	var broken []BrokenLink
	for _, link := range ExtractLinks(content) {
		if !IsSiteLocal(link.Target) {
			continue
		}
		if _, ok := r.Resolve(rel, link.Target); !ok {
			broken = append(broken, BrokenLink{Line: link.Line, Target: link.Target})
		}
	}
	return broken
}
