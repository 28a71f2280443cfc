package lang

import (
	"regexp"
	"strings"
)

// Span is an inclusive 1-based line range of an in-file #[cfg(test)] block.
type Span struct {
	Start int
	End   int
}

// Contains reports whether line falls inside the span.
func (s Span) Contains(line int) bool { return line >= s.Start && line <= s.End }

var (
	cfgTestRe   = regexp.MustCompile(`^\s*#\s*\[\s*cfg\s*\(\s*test\s*\)\s*\]`)
	attributeRe = regexp.MustCompile(`^\s*#\s*\[`)
	itemStartRe = regexp.MustCompile(`^\s*(?:pub(?:\s*\([^)]*\))?\s+)?(?:unsafe\s+|async\s+|const\s+)*(?:mod|fn)\b`)
)

// ParseCfgTestSpans scans Rust source for #[cfg(test)] attributes attached
// to a mod or fn item and returns the line range of each attached block.
// The scanner is a narrow hand-written parser: it tracks nested braces and
// skips string, char, and comment content, but does not attempt full Rust
// grammar. Attributes attached to `mod name;` declarations produce no span
// because the block lives in another file.
func ParseCfgTestSpans(content string) []Span {
	lines := strings.Split(content, "\n")
	var spans []Span

	for i := 0; i < len(lines); i++ {
		if !cfgTestRe.MatchString(lines[i]) {
			continue
		}
		attrLine := i + 1

		// Seek the attached item, tolerating blank lines, comments, and
		// further attributes between the cfg and the item.
		j := i + 1
		for j < len(lines) {
			trimmed := strings.TrimSpace(lines[j])
			if trimmed == "" || strings.HasPrefix(trimmed, "//") || attributeRe.MatchString(lines[j]) {
				j++
				continue
			}
			break
		}
		if j >= len(lines) || !itemStartRe.MatchString(lines[j]) {
			continue
		}

		end, ok := scanBlock(lines, j)
		if !ok {
			continue
		}
		spans = append(spans, Span{Start: attrLine, End: end})
		i = end - 1
	}
	return spans
}

// scanBlock finds the end line of the brace-delimited block starting at or
// after itemLine. Returns false for declarations that end in ';' before any
// opening brace, or when the block never closes.
func scanBlock(lines []string, itemLine int) (int, bool) {
	depth := 0
	opened := false
	inBlockComment := false

	for ln := itemLine; ln < len(lines); ln++ {
		line := lines[ln]
		for k := 0; k < len(line); k++ {
			ch := line[k]

			if inBlockComment {
				if ch == '*' && k+1 < len(line) && line[k+1] == '/' {
					inBlockComment = false
					k++
				}
				continue
			}

			switch ch {
			case '/':
				if k+1 < len(line) {
					if line[k+1] == '/' {
						k = len(line) // rest of line is a comment
						continue
					}
					if line[k+1] == '*' {
						inBlockComment = true
						k++
						continue
					}
				}
			case '"':
				k = skipString(line, k)
			case '\'':
				if n := charLiteralEnd(line, k); n > k {
					k = n
				}
			case ';':
				if !opened {
					return 0, false // `mod tests;` style declaration
				}
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return ln + 1, true
				}
			}
		}
	}
	return 0, false
}

// skipString advances past a double-quoted string starting at index k,
// honoring backslash escapes. Returns the index of the closing quote (or
// end of line for unterminated strings, which the scanner tolerates).
func skipString(line string, k int) int {
	for k++; k < len(line); k++ {
		switch line[k] {
		case '\\':
			k++
		case '"':
			return k
		}
	}
	return len(line)
}

// charLiteralEnd returns the index of the closing quote when position k
// starts a char literal. Lifetimes ('a) have no closing quote nearby and
// return k unchanged.
func charLiteralEnd(line string, k int) int {
	rest := line[k:]
	if m := charLitRe.FindString(rest); m != "" {
		return k + len(m) - 1
	}
	return k
}

var charLitRe = regexp.MustCompile(`^'(\\.|[^'\\])'`)
