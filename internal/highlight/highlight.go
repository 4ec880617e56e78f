// Package highlight colours diff output for terminals, with syntax
// highlighting of the code in each hunk picked by file name.
package highlight

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/thiagokokada/gitstate/internal/git"
)

const DefaultStyle = "monokai"

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiCyan  = "\x1b[36m"
)

type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
	enabled   bool
	lexers    map[string]chroma.Lexer
}

// New returns a highlighter using the named chroma style. When enabled is
// false the diff is copied through unchanged.
func New(style string, enabled bool) *Highlighter {
	if style == "" {
		style = DefaultStyle
	}
	return &Highlighter{
		style:     styles.Get(style),
		formatter: formatters.TTY256,
		enabled:   enabled,
		lexers:    map[string]chroma.Lexer{},
	}
}

func (h *Highlighter) lexerFor(path string) chroma.Lexer {
	if l, ok := h.lexers[path]; ok {
		return l
	}
	l := lexers.Match(path)
	if l == nil {
		l = lexers.Fallback
	}
	l = chroma.Coalesce(l)
	h.lexers[path] = l
	return l
}

// Diff writes diff to w with colours.
func (h *Highlighter) Diff(w io.Writer, diff string) error {
	if !h.enabled {
		_, err := io.WriteString(w, diff)
		return err
	}
	sections := git.ParseDiffSections(diff)
	bw := bufio.NewWriter(w)
	var lexer chroma.Lexer
	lines := strings.SplitAfter(diff, "\n")
	for i, raw := range lines {
		if raw == "" {
			continue
		}
		lineNo := i + 1
		if len(sections) > 0 && sections[0].Line == lineNo {
			lexer = h.lexerFor(sections[0].Path)
			sections = sections[1:]
		}
		line, nl := strings.CutSuffix(raw, "\n")
		if err := h.line(bw, lexer, line); err != nil {
			return err
		}
		if nl {
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

func (h *Highlighter) line(w *bufio.Writer, lexer chroma.Lexer, line string) error {
	switch {
	case strings.HasPrefix(line, "diff --git "), strings.HasPrefix(line, "index "),
		strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
		_, err := fmt.Fprint(w, ansiBold, line, ansiReset)
		return err
	case strings.HasPrefix(line, "@@"):
		_, err := fmt.Fprint(w, ansiCyan, line, ansiReset)
		return err
	}
	code, prefix, ok := diffLineCode(line)
	if !ok || lexer == nil {
		_, err := w.WriteString(line)
		return err
	}
	switch prefix {
	case "+":
		fmt.Fprint(w, ansiGreen, prefix, ansiReset)
	case "-":
		fmt.Fprint(w, ansiRed, prefix, ansiReset)
	default:
		w.WriteString(prefix)
	}
	return h.code(w, lexer, code)
}

func (h *Highlighter) code(w io.Writer, lexer chroma.Lexer, code string) error {
	if code == "" {
		return nil
	}
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		_, werr := io.WriteString(w, code)
		return werr
	}
	tokens := it.Tokens()
	// Lexers that ensure a trailing newline add one the line does not have.
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Value == "" {
			continue
		}
		tokens[i].Value = strings.TrimSuffix(tokens[i].Value, "\n")
		break
	}
	return h.formatter.Format(w, h.style, chroma.Literator(tokens...))
}

// diffLineCode splits a hunk line into its +/-/space marker and code.
func diffLineCode(line string) (code, prefix string, ok bool) {
	if line == "" {
		return "", "", false
	}
	switch line[0] {
	case '+', '-', ' ':
		return line[1:], line[:1], true
	default:
		return "", "", false
	}
}
