package git

import (
	"strconv"
	"strings"
)

// DiffSection marks where the patch for one file starts in diff output.
type DiffSection struct {
	Path string
	Line int
}

// ParseDiffSections returns one section per "diff --git" header, with 1-based line numbers.
func ParseDiffSections(diffText string) []DiffSection {
	var sections []DiffSection
	for i, line := range strings.Split(diffText, "\n") {
		if path := diffHeaderPath(line); path != "" {
			sections = append(sections, DiffSection{Path: path, Line: i + 1})
		}
	}
	return sections
}

func diffHeaderPath(line string) string {
	const prefix = "diff --git "
	if !strings.HasPrefix(line, prefix) {
		return ""
	}
	tokens := pathTokens(line[len(prefix):])
	if len(tokens) < 2 {
		return ""
	}
	token := tokens[len(tokens)-1]
	token = strings.TrimPrefix(token, "b/")
	return token
}

// pathTokens splits s on blanks, decoding git's C-style quoted tokens.
func pathTokens(s string) []string {
	var tokens []string
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return tokens
		}
		if s[0] == '"' {
			end := closingQuote(s)
			tokens = append(tokens, unquotePath(s[:end]))
			s = s[end:]
			continue
		}
		j := strings.IndexAny(s, " \t")
		if j < 0 {
			j = len(s)
		}
		tokens = append(tokens, s[:j])
		s = s[j:]
	}
}

func closingQuote(s string) int {
	escaped := false
	for i := 1; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == '"':
			return i + 1
		}
	}
	return len(s)
}

// unquotePath decodes a path git printed with core.quotePath escaping.
// Unquoted input is returned unchanged.
func unquotePath(p string) string {
	if len(p) < 2 || p[0] != '"' || p[len(p)-1] != '"' {
		return p
	}
	if s, err := strconv.Unquote(p); err == nil {
		return s
	}
	return p[1 : len(p)-1]
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
