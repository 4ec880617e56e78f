package git

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/thiagokokada/gitstate/internal/git/state"
)

// ErrParse matches every *ParseError.
var ErrParse = errors.New("unrecognized git output")

// ParseError reports a line inside a known section that no grammar rule
// accepts. A refresh that hits one is discarded as a whole.
type ParseError struct {
	Command string
	Section string
	LineNo  int
	Line    string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output: %s section, line %d: %s: %q", e.Command, e.Section, e.LineNo, e.Reason, e.Line)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// StatusParser folds the long-format output of one or more status passes
// into one entry per path.
type StatusParser struct {
	g       *Grammar
	lfsExts []string

	section statusSection
	pass    int
	lineNo  int
	entries map[string]*state.FileEntry
	err     error
}

// NewStatusParser returns a parser for g. lfsExtensions are matched against
// file extensions case-insensitively; "*.psd", ".psd" and "psd" are equivalent.
func NewStatusParser(g *Grammar, lfsExtensions []string) *StatusParser {
	if g == nil {
		g = DefaultGrammar()
	}
	p := &StatusParser{g: g, entries: map[string]*state.FileEntry{}}
	for _, ext := range lfsExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "*"))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.lfsExts = append(p.lfsExts, ext)
	}
	return p
}

// NextPass resets section tracking before the output of another invocation.
func (p *StatusParser) NextPass() {
	p.section = sectionNone
	p.pass++
	p.lineNo = 0
}

// Feed consumes one output line. After the first failure further lines are ignored.
func (p *StatusParser) Feed(line string) {
	if p.err != nil {
		return
	}
	p.lineNo++
	line = strings.TrimRight(line, "\r")

	if section, ok := p.g.statusHeaders[line]; ok {
		p.section = section
		return
	}
	if p.section == sectionNone || strings.TrimSpace(line) == "" {
		return
	}
	if strings.HasPrefix(line, p.g.hintPrefix) {
		return
	}
	if !strings.HasPrefix(line, "\t") {
		// "no changes added to commit", timing notes and the like close the section.
		p.section = sectionNone
		return
	}

	for _, t := range p.g.statusTags[p.section] {
		m := t.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if err := p.add(t, m[1]); err != nil {
			p.fail(line, err.Error())
		}
		return
	}
	p.fail(line, "no rule matches")
}

func (p *StatusParser) fail(line, reason string) {
	p.err = &ParseError{
		Command: fmt.Sprintf("status (pass %d)", p.pass+1),
		Section: p.section.String(),
		LineNo:  p.lineNo,
		Line:    line,
		Reason:  reason,
	}
}

func (p *StatusParser) add(t statusTag, payload string) error {
	var orig string
	if t.arrow {
		from, to, ok := p.splitArrow(payload)
		if !ok {
			return errors.New("rename without \" -> \"")
		}
		orig, payload = unquotePath(from), to
	}

	submodule := false
	if m := p.g.submodule.FindStringSubmatch(payload); m != nil && p.g.isSubmoduleAnnotation(m[2]) {
		payload = m[1]
		submodule = strings.Contains(m[2], "content")
	}
	name := unquotePath(payload)
	if name == "" {
		return errors.New("empty path")
	}

	entry, ok := p.entries[name]
	if !ok {
		entry = &state.FileEntry{Path: name, IsLFS: p.isLFS(name)}
		p.entries[name] = entry
	}
	entry.State |= t.state
	if t.conflict != state.ConflictNone {
		entry.Conflict = t.conflict
	}
	if orig != "" {
		entry.OrigPath = orig
	}
	entry.IsSubmodule = entry.IsSubmodule || submodule
	return nil
}

func (p *StatusParser) splitArrow(payload string) (from, to string, ok bool) {
	if strings.HasPrefix(payload, `"`) {
		end := closingQuote(payload)
		rest, found := strings.CutPrefix(payload[end:], " -> ")
		if !found || rest == "" {
			return "", "", false
		}
		return payload[:end], rest, true
	}
	m := p.g.renameArrow.FindStringSubmatch(payload)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func (p *StatusParser) isLFS(name string) bool {
	if len(p.lfsExts) == 0 {
		return false
	}
	return slices.Contains(p.lfsExts, strings.ToLower(path.Ext(name)))
}

// Result returns the folded entries sorted by path, or the first parse failure.
func (p *StatusParser) Result() ([]state.FileEntry, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]state.FileEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b state.FileEntry) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

// ParseStatus is a convenience wrapper feeding each element of passes as one
// status invocation.
func ParseStatus(g *Grammar, lfsExtensions []string, passes ...string) ([]state.FileEntry, error) {
	p := NewStatusParser(g, lfsExtensions)
	for i, out := range passes {
		if i > 0 {
			p.NextPass()
		}
		for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
			p.Feed(line)
		}
	}
	return p.Result()
}
