package docs

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FencedBlock is one fenced code block with its info tag.
type FencedBlock struct {
	Tag   string
	Line  int // 1-based line of the opening fence
	Lines []string
}

// notTreeTags close off the heuristic: known programming languages and the
// explicit opt-outs never validate as trees.
var notTreeTags = map[string]bool{
	"no-toc": true, "ignore": true, "text": true,
	"rust": true, "go": true, "golang": true, "python": true, "ruby": true,
	"javascript": true, "js": true, "typescript": true, "ts": true, "jsx": true,
	"tsx": true, "sh": true, "bash": true, "shell": true, "c": true, "cpp": true,
	"java": true, "json": true, "yaml": true, "yml": true, "toml": true,
	"xml": true, "html": true, "css": true, "sql": true, "diff": true,
	"console": true, "mermaid": true, "makefile": true, "dockerfile": true,
}

// ExtractFencedBlocks returns every fenced block in the file.
func ExtractFencedBlocks(content string) []FencedBlock {
	var blocks []FencedBlock
	var current *FencedBlock
	var fenceMark string

	for i, line := range strings.Split(content, "\n") {
		m := fenceRe.FindStringSubmatch(line)
		if m == nil {
			if current != nil {
				current.Lines = append(current.Lines, line)
			}
			continue
		}
		if current == nil {
			current = &FencedBlock{Tag: strings.ToLower(m[2]), Line: i + 1}
			fenceMark = m[1][:3]
		} else if strings.HasPrefix(m[1], fenceMark) {
			blocks = append(blocks, *current)
			current = nil
		} else {
			current.Lines = append(current.Lines, line)
		}
	}
	return blocks
}

// boxChars appear in box-drawing directory trees.
const boxChars = "├└│─"

// pathLikeRe recognizes entries that look like paths: a file extension or a
// trailing slash.
var pathLikeRe = regexp.MustCompile(`(\.\w{1,8}$|/$)`)

// IsTree decides whether a fenced block should validate as a directory
// tree. A `toc` tag forces validation; tags in the closed "not a tree" set
// skip it; everything else passes through the shape heuristic.
func IsTree(b FencedBlock) bool {
	if b.Tag == "toc" {
		return true
	}
	if b.Tag != "" && notTreeTags[b.Tag] {
		return false
	}
	return treeHeuristic(b.Lines)
}

// treeHeuristic accepts blocks with box-drawing characters, or consistent
// leading indentation plus at least one path-like entry.
func treeHeuristic(lines []string) bool {
	pathLike := 0
	indented := 0
	nonBlank := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonBlank++
		if strings.ContainsAny(line, boxChars) {
			return true
		}
		if pathLikeRe.MatchString(strings.Fields(trimmed)[0]) {
			pathLike++
		}
		if line != trimmed {
			indented++
		}
	}
	return nonBlank > 1 && indented > 0 && pathLike > 0
}

// Entry is one parsed tree entry: its nesting depth and name.
type Entry struct {
	Line  int // 1-based line within the file
	Depth int
	Name  string
}

var connectorRe = regexp.MustCompile(`[├└]─*\s*`)

// ParseTree parses a tree block into entries. Both box-drawing syntax and
// plain indentation are recognized; inline comments after the entry name
// are dropped.
func ParseTree(b FencedBlock) []Entry {
	var entries []Entry
	indentUnit := 0

	for i, line := range b.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fileLine := b.Line + 1 + i

		var depth int
		var name string
		if loc := connectorRe.FindStringIndex(line); loc != nil {
			// Box drawing: each leading 4-column group ("│   " or spaces) is
			// one level, the connector itself counts as the final level.
			// Columns are runes, not bytes; the rules are multi-byte.
			depth = utf8.RuneCountInString(line[:loc[0]])/4 + 1
			name = line[loc[1]:]
		} else if strings.ContainsAny(line, boxChars) {
			// Vertical rule line without a connector carries no entry.
			continue
		} else {
			trimmed := strings.TrimLeft(line, " \t")
			indent := len(line) - len(trimmed)
			if indent > 0 {
				if indentUnit == 0 {
					indentUnit = indent
				}
				depth = indent / indentUnit
			}
			name = trimmed
		}

		name = stripEntryComment(name)
		if name == "" {
			continue
		}
		entries = append(entries, Entry{Line: fileLine, Depth: depth, Name: name})
	}
	return entries
}

// stripEntryComment removes a trailing " # ..." annotation.
func stripEntryComment(name string) string {
	if idx := strings.Index(name, "  #"); idx >= 0 {
		name = name[:idx]
	}
	if idx := strings.Index(name, " #"); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}

// TreePaths joins entries into full paths. Entries nested under a name
// ending in "/" are its children; siblings resolve against their common
// parent.
func TreePaths(entries []Entry) []PathEntry {
	var out []PathEntry
	// stack[d] is the directory path at depth d.
	stack := map[int]string{}

	for _, e := range entries {
		parent := ""
		for d := e.Depth - 1; d >= 0; d-- {
			if p, ok := stack[d]; ok {
				parent = p
				break
			}
		}
		full := path.Join(parent, e.Name)
		if strings.HasSuffix(e.Name, "/") {
			stack[e.Depth] = full
			// Invalidate deeper levels from a previous sibling subtree.
			for d := e.Depth + 1; ; d++ {
				if _, ok := stack[d]; !ok {
					break
				}
				delete(stack, d)
			}
		}
		out = append(out, PathEntry{Line: e.Line, Path: full, IsDir: strings.HasSuffix(e.Name, "/")})
	}
	return out
}

// PathEntry is a fully joined tree entry.
type PathEntry struct {
	Line  int
	Path  string
	IsDir bool
}

// TocViolation is one failed tree entry or an unusable toc-tagged block.
type TocViolation struct {
	Line   int
	Kind   string // broken_toc | invalid_toc_format
	Target string
}

// ValidateTrees validates every tree-shaped fenced block in a markdown
// file. A toc-tagged block that parses to zero entries is itself a
// violation.
func ValidateTrees(r *Resolver, rel, content string) []TocViolation {
	var out []TocViolation
	for _, block := range ExtractFencedBlocks(content) {
		if !IsTree(block) {
			continue
		}
		entries := ParseTree(block)
		if len(entries) == 0 {
			if block.Tag == "toc" {
				out = append(out, TocViolation{Line: block.Line, Kind: "invalid_toc_format"})
			}
			continue
		}
		for _, pe := range TreePaths(entries) {
			if _, ok := r.Resolve(rel, pe.Path); !ok {
				out = append(out, TocViolation{Line: pe.Line, Kind: "broken_toc", Target: pe.Path})
			}
		}
	}
	return out
}
