package git

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/thiagokokada/gitstate/internal/git/backend"
	"github.com/thiagokokada/gitstate/internal/git/state"
)

// The long-format status and verbose branch output are human-readable and not
// a stable contract upstream, so every pattern the parsers rely on lives in a
// Grammar selected by tool version.

type statusSection uint8

const (
	sectionNone statusSection = iota
	sectionStaged
	sectionUnstaged
	sectionUnmerged
	sectionUntracked
	sectionIgnored
)

func (s statusSection) String() string {
	switch s {
	case sectionStaged:
		return "staged"
	case sectionUnstaged:
		return "unstaged"
	case sectionUnmerged:
		return "unmerged"
	case sectionUntracked:
		return "untracked"
	case sectionIgnored:
		return "ignored"
	default:
		return "none"
	}
}

type statusTag struct {
	pattern  *regexp.Regexp
	state    state.FileState
	conflict state.ConflictKind
	// arrow marks tags whose payload is "old -> new".
	arrow bool
}

type Grammar struct {
	Name       string
	MinVersion backend.Version

	statusHeaders map[string]statusSection
	statusTags    map[statusSection][]statusTag
	hintPrefix    string
	renameArrow   *regexp.Regexp
	submodule     *regexp.Regexp
	submoduleTags []string

	remoteHeadAlias *regexp.Regexp
	detachedHead    *regexp.Regexp
	noBranch        *regexp.Regexp
	verboseTracking *regexp.Regexp
	trackingCounts  *regexp.Regexp
	shortTracking   *regexp.Regexp
	bareBranch      *regexp.Regexp
	remotePrefix    *regexp.Regexp
	warningPrefix   string
}

func tag(label string, s state.FileState) statusTag {
	return statusTag{pattern: regexp.MustCompile(`^\t` + regexp.QuoteMeta(label) + `:\s+(.+)$`), state: s}
}

func arrowTag(label string, s state.FileState) statusTag {
	t := tag(label, s)
	t.arrow = true
	return t
}

func conflictTag(label string, kind state.ConflictKind) statusTag {
	t := tag(label, state.Conflicted)
	t.conflict = kind
	return t
}

func bareTag(s state.FileState) statusTag {
	return statusTag{pattern: regexp.MustCompile(`^\t(.+)$`), state: s}
}

var grammarV2 = &Grammar{
	Name:       "git-2.23",
	MinVersion: backend.Version{Major: 2, Minor: 23},

	statusHeaders: map[string]statusSection{
		"Changes to be committed:":       sectionStaged,
		"Changes not staged for commit:": sectionUnstaged,
		"Unmerged paths:":                sectionUnmerged,
		"Untracked files:":               sectionUntracked,
		"Ignored files:":                 sectionIgnored,
	},
	statusTags: map[statusSection][]statusTag{
		sectionStaged: {
			tag("new file", state.NewInIndex),
			tag("modified", state.ModifiedInIndex),
			tag("deleted", state.DeletedFromIndex),
			tag("typechange", state.TypeChangedInIndex),
			arrowTag("renamed", state.RenamedInIndex),
			arrowTag("copied", state.Copied),
		},
		sectionUnstaged: {
			tag("new file", state.NewInWorkdir),
			tag("modified", state.ModifiedInWorkdir),
			tag("deleted", state.DeletedFromWorkdir),
			tag("typechange", state.TypeChangedInWorkdir),
			arrowTag("renamed", state.RenamedInWorkdir),
			arrowTag("copied", state.Copied),
		},
		sectionUnmerged: {
			conflictTag("both modified", state.ConflictChanges),
			conflictTag("both deleted", state.ConflictDeletedByBoth),
			conflictTag("both added", state.ConflictAddedByBoth),
			conflictTag("added by us", state.ConflictAddedByUs),
			conflictTag("added by them", state.ConflictAddedByThem),
			conflictTag("deleted by us", state.ConflictDeletedByUs),
			conflictTag("deleted by them", state.ConflictDeletedByThem),
		},
		sectionUntracked: {bareTag(state.NewInWorkdir)},
		sectionIgnored:   {bareTag(state.Ignored)},
	},
	hintPrefix:    "  (",
	renameArrow:   regexp.MustCompile(`^(.+?) -> (.+)$`),
	submodule:     regexp.MustCompile(`^(.+) \(([a-z ,]+)\)$`),
	submoduleTags: []string{"new commits", "modified content", "untracked content"},

	remoteHeadAlias: regexp.MustCompile(`^remotes/([^/\s]+)/HEAD\s+->\s+(\S+)`),
	detachedHead:    regexp.MustCompile(`^\(HEAD detached (?:at|from) ([^)]+)\)`),
	noBranch:        regexp.MustCompile(`^\(no branch(?:, [^)]*)?\)`),
	verboseTracking: regexp.MustCompile(`^(\S+)\s+[0-9a-f]{4,64}\s+\[([^\]]+)\]`),
	trackingCounts:  regexp.MustCompile(`^(?:gone|(?:ahead|behind) \d+(?:, behind \d+)?)$`),
	shortTracking:   regexp.MustCompile(`^(\S+?)\.\.\.(\S+)`),
	bareBranch:      regexp.MustCompile(`^(\S+)`),
	remotePrefix:    regexp.MustCompile(`^remotes/([^/]+)/(.+)$`),
	warningPrefix:   "warning:",
}

var grammars = []*Grammar{grammarV2}

// GrammarFor returns the newest grammar whose minimum version v satisfies.
func GrammarFor(v backend.Version) (*Grammar, error) {
	candidates := slices.Clone(grammars)
	slices.SortFunc(candidates, func(a, b *Grammar) int {
		switch {
		case a.MinVersion.Less(b.MinVersion):
			return 1
		case b.MinVersion.Less(a.MinVersion):
			return -1
		default:
			return 0
		}
	})
	for _, g := range candidates {
		if !v.Less(g.MinVersion) {
			return g, nil
		}
	}
	return nil, fmt.Errorf("no output grammar for git %s", v)
}

// DefaultGrammar is the grammar for the oldest supported tool version.
func DefaultGrammar() *Grammar {
	return grammarV2
}

func (g *Grammar) isSubmoduleAnnotation(annotation string) bool {
	for _, part := range splitComma(annotation) {
		if !slices.Contains(g.submoduleTags, part) {
			return false
		}
	}
	return true
}
