package git

import (
	"cmp"
	"slices"
	"strings"

	"github.com/thiagokokada/gitstate/internal/git/state"
)

type branchLine struct {
	active      bool
	fullName    string
	remoteAlias string // remote of a "remotes/<r>/HEAD -> x" alias
	headTarget  string
	detached    bool
	tracked     string
	// annotated is set when the upstream bracket carried ahead/behind/gone,
	// or came from the unambiguous "name...upstream" form.
	annotated bool
}

// BranchParser builds branch refs from "branch -a -vv" output. Remote
// splitting is deferred to Result so that remotes listed after local
// branches are still recognized.
type BranchParser struct {
	g       *Grammar
	lines   []branchLine
	known   map[string]struct{}
	remotes map[string]*state.RemoteRef
}

func NewBranchParser(g *Grammar) *BranchParser {
	if g == nil {
		g = DefaultGrammar()
	}
	return &BranchParser{
		g:       g,
		known:   map[string]struct{}{},
		remotes: map[string]*state.RemoteRef{},
	}
}

// AddRemotes registers configured remote names. When any are known, only
// they are used to split "<remote>/<branch>" names; otherwise a name with
// exactly one slash is split at it.
func (p *BranchParser) AddRemotes(names ...string) {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			p.known[n] = struct{}{}
			p.remote(n)
		}
	}
}

func (p *BranchParser) Feed(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, p.g.warningPrefix) {
		return
	}
	var bl branchLine
	switch {
	case strings.HasPrefix(line, "* "):
		bl.active = true
		line = line[2:]
	case strings.HasPrefix(line, "+ "):
		// checked out in another worktree
		line = line[2:]
	}
	line = strings.TrimLeft(line, " ")

	if m := p.g.remoteHeadAlias.FindStringSubmatch(line); m != nil {
		bl.remoteAlias = m[1]
		bl.headTarget = m[2]
		bl.fullName = m[1] + "/HEAD"
		p.AddRemotes(m[1])
		p.lines = append(p.lines, bl)
		return
	}
	if m := p.g.detachedHead.FindStringSubmatch(line); m != nil {
		bl.detached = true
		bl.fullName = strings.TrimSpace(m[1])
		p.lines = append(p.lines, bl)
		return
	}
	if p.g.noBranch.MatchString(line) {
		bl.detached = true
		bl.fullName = "HEAD"
		p.lines = append(p.lines, bl)
		return
	}
	if m := p.g.verboseTracking.FindStringSubmatch(line); m != nil {
		bl.fullName = m[1]
		bl.tracked, bl.annotated = p.trackedName(m[2])
	} else if m := p.g.shortTracking.FindStringSubmatch(line); m != nil {
		bl.fullName = m[1]
		bl.tracked, bl.annotated = strings.TrimSpace(m[2]), true
	} else if m := p.g.bareBranch.FindStringSubmatch(line); m != nil {
		bl.fullName = m[1]
	} else {
		return
	}
	if m := p.g.remotePrefix.FindStringSubmatch(bl.fullName); m != nil {
		p.AddRemotes(m[1])
	}
	p.lines = append(p.lines, bl)
}

// trackedName drops an ahead/behind or "gone" annotation. A bracket with any
// other text after a colon is part of the commit subject.
func (p *BranchParser) trackedName(s string) (name string, annotated bool) {
	before, after, ok := strings.Cut(s, ":")
	if !ok {
		return strings.TrimSpace(s), false
	}
	if !p.g.trackingCounts.MatchString(strings.TrimSpace(after)) {
		return "", false
	}
	return strings.TrimSpace(before), true
}

// isUpstream reports whether a bracket after the commit id names an upstream
// rather than starting the commit subject: it must carry counts, name a
// branch seen in the listing, or start with a known remote.
func (p *BranchParser) isUpstream(bl branchLine, listed map[string]struct{}) bool {
	if bl.annotated {
		return true
	}
	if _, ok := listed[bl.tracked]; ok {
		return true
	}
	for r := range p.known {
		if strings.HasPrefix(bl.tracked, r+"/") {
			return true
		}
	}
	return false
}

// listed returns the names every listed branch can be referred to by.
func (p *BranchParser) listed() map[string]struct{} {
	names := make(map[string]struct{}, len(p.lines))
	for _, bl := range p.lines {
		if bl.remoteAlias != "" || bl.detached {
			continue
		}
		if m := p.g.remotePrefix.FindStringSubmatch(bl.fullName); m != nil {
			names[m[1]+"/"+m[2]] = struct{}{}
			continue
		}
		names[bl.fullName] = struct{}{}
	}
	return names
}

func (p *BranchParser) remote(name string) *state.RemoteRef {
	if r, ok := p.remotes[name]; ok {
		return r
	}
	r := &state.RemoteRef{Name: name}
	p.remotes[name] = r
	return r
}

func (p *BranchParser) split(full string) (remote, name string) {
	if len(p.known) > 0 {
		var best string
		for r := range p.known {
			if strings.HasPrefix(full, r+"/") && len(r) > len(best) {
				best = r
			}
		}
		if best != "" {
			return best, full[len(best)+1:]
		}
		return "", full
	}
	if strings.Count(full, "/") == 1 {
		remote, name, _ = strings.Cut(full, "/")
		return remote, name
	}
	return "", full
}

func (p *BranchParser) info(full string) *state.BranchInfo {
	bi := &state.BranchInfo{Name: full, FullName: full}
	if remote, name := p.split(full); remote != "" {
		bi.Name = name
		bi.Remote = p.remote(remote)
	}
	return bi
}

// Result returns the branches in listing order and every remote seen, sorted
// by name. Branches on the same remote share one *RemoteRef.
func (p *BranchParser) Result() ([]state.BranchRef, []*state.RemoteRef) {
	branches := make([]state.BranchRef, 0, len(p.lines))
	listed := p.listed()
	for _, bl := range p.lines {
		b := state.BranchRef{Name: bl.fullName, FullName: bl.fullName, IsActive: bl.active}
		switch {
		case bl.remoteAlias != "":
			b.Name = "HEAD"
			b.Remote = p.remote(bl.remoteAlias)
			b.IsRemote, b.IsHead = true, true
			b.HeadPointer = p.info(bl.headTarget)
		case bl.detached:
			b.IsRemote, b.IsHead, b.IsHeadDetached = true, true, true
			if remote, name := p.split(bl.fullName); remote != "" {
				b.Name = name
				b.Remote = p.remote(remote)
			}
		default:
			if m := p.g.remotePrefix.FindStringSubmatch(bl.fullName); m != nil {
				b.IsRemote = true
				b.Remote = p.remote(m[1])
				b.Name = m[2]
				b.FullName = m[1] + "/" + m[2]
				b.IsHead = m[2] == "HEAD"
			}
			if bl.tracked != "" && !b.IsRemote && p.isUpstream(bl, listed) {
				b.IsTracking = true
				b.Tracking = p.info(bl.tracked)
			}
		}
		branches = append(branches, b)
	}

	remotes := make([]*state.RemoteRef, 0, len(p.remotes))
	for _, r := range p.remotes {
		remotes = append(remotes, r)
	}
	slices.SortFunc(remotes, func(a, b *state.RemoteRef) int { return cmp.Compare(a.Name, b.Name) })
	return branches, remotes
}

// ParseBranches is a convenience wrapper over BranchParser for a complete listing.
func ParseBranches(g *Grammar, out string, remotes ...string) ([]state.BranchRef, []*state.RemoteRef) {
	p := NewBranchParser(g)
	p.AddRemotes(remotes...)
	for _, line := range strings.Split(out, "\n") {
		p.Feed(line)
	}
	return p.Result()
}
