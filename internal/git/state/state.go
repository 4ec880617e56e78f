// Package state holds the typed model of repository state built from parsed
// porcelain output. Values are snapshots: they are rebuilt on every refresh
// and never patched in place.
package state

import (
	"slices"
	"strings"
)

// FileState is a set of orthogonal per-file flags.
type FileState uint32

const (
	ModifiedInWorkdir FileState = 1 << iota
	ModifiedInIndex
	NewInWorkdir
	NewInIndex
	DeletedFromWorkdir
	DeletedFromIndex
	RenamedInWorkdir
	RenamedInIndex
	TypeChangedInWorkdir
	TypeChangedInIndex
	Conflicted
	Ignored
	Unreadable
	Copied
)

var fileStateNames = []struct {
	flag FileState
	name string
}{
	{ModifiedInWorkdir, "ModifiedInWorkdir"},
	{ModifiedInIndex, "ModifiedInIndex"},
	{NewInWorkdir, "NewInWorkdir"},
	{NewInIndex, "NewInIndex"},
	{DeletedFromWorkdir, "DeletedFromWorkdir"},
	{DeletedFromIndex, "DeletedFromIndex"},
	{RenamedInWorkdir, "RenamedInWorkdir"},
	{RenamedInIndex, "RenamedInIndex"},
	{TypeChangedInWorkdir, "TypeChangedInWorkdir"},
	{TypeChangedInIndex, "TypeChangedInIndex"},
	{Conflicted, "Conflicted"},
	{Ignored, "Ignored"},
	{Unreadable, "Unreadable"},
	{Copied, "Copied"},
}

const (
	indexFlags   = ModifiedInIndex | NewInIndex | DeletedFromIndex | RenamedInIndex | TypeChangedInIndex | Copied
	workdirFlags = ModifiedInWorkdir | NewInWorkdir | DeletedFromWorkdir | RenamedInWorkdir | TypeChangedInWorkdir
)

func (s FileState) Has(flag FileState) bool {
	return s&flag == flag
}

func (s FileState) Staged() bool {
	return s&indexFlags != 0
}

func (s FileState) Unstaged() bool {
	return s&workdirFlags != 0
}

// Names lists the set flags in declaration order.
func (s FileState) Names() []string {
	var names []string
	for _, entry := range fileStateNames {
		if s.Has(entry.flag) {
			names = append(names, entry.name)
		}
	}
	return names
}

func (s FileState) String() string {
	if s == 0 {
		return "Unmodified"
	}
	return strings.Join(s.Names(), "|")
}

// ParseFileState is the inverse of Names. Unknown names are reported with ok=false.
func ParseFileState(names []string) (FileState, bool) {
	var s FileState
next:
	for _, name := range names {
		for _, entry := range fileStateNames {
			if entry.name == name {
				s |= entry.flag
				continue next
			}
		}
		return 0, false
	}
	return s, true
}

type ConflictKind uint8

const (
	ConflictNone ConflictKind = iota
	ConflictChanges
	ConflictDeletedByUs
	ConflictDeletedByThem
	ConflictDeletedByBoth
	ConflictAddedByUs
	ConflictAddedByThem
	ConflictAddedByBoth
)

var conflictKindNames = [...]string{
	ConflictNone:          "None",
	ConflictChanges:       "Changes",
	ConflictDeletedByUs:   "DeletedByUs",
	ConflictDeletedByThem: "DeletedByThem",
	ConflictDeletedByBoth: "DeletedByBoth",
	ConflictAddedByUs:     "AddedByUs",
	ConflictAddedByThem:   "AddedByThem",
	ConflictAddedByBoth:   "AddedByBoth",
}

func (k ConflictKind) String() string {
	if int(k) < len(conflictKindNames) {
		return conflictKindNames[k]
	}
	return "Unknown"
}

func ParseConflictKind(name string) (ConflictKind, bool) {
	for i, n := range conflictKindNames {
		if n == name {
			return ConflictKind(i), true
		}
	}
	return ConflictNone, false
}

// HasOurs reports whether our side of the merge still has the file.
func (k ConflictKind) HasOurs() bool {
	switch k {
	case ConflictChanges, ConflictDeletedByThem, ConflictAddedByUs, ConflictAddedByBoth:
		return true
	}
	return false
}

// HasTheirs reports whether the merged-in side still has the file.
func (k ConflictKind) HasTheirs() bool {
	switch k {
	case ConflictChanges, ConflictDeletedByUs, ConflictAddedByThem, ConflictAddedByBoth:
		return true
	}
	return false
}

type FileEntry struct {
	Path string
	// OrigPath is the source path of a rename or copy.
	OrigPath    string
	State       FileState
	Conflict    ConflictKind
	IsLFS       bool
	IsSubmodule bool
}

func (e FileEntry) IsConflicted() bool {
	return e.State.Has(Conflicted)
}

type RemoteRef struct {
	Name string
	URL  string
}

// BranchInfo is a lightweight reference to another branch.
type BranchInfo struct {
	Name     string
	FullName string
	Remote   *RemoteRef
}

type BranchRef struct {
	Name           string
	FullName       string
	Remote         *RemoteRef
	IsActive       bool
	IsRemote       bool
	IsTracking     bool
	IsHead         bool
	IsHeadDetached bool
	HeadPointer    *BranchInfo
	Tracking       *BranchInfo
}

// RemoteName returns the remote component, or "" for local branches.
func (b BranchRef) RemoteName() string {
	if b.Remote == nil {
		return ""
	}
	return b.Remote.Name
}

// Snapshot is one consistent view of a repository.
type Snapshot struct {
	Files    []FileEntry
	Branches []BranchRef
	Remotes  []RemoteRef
}

func (s *Snapshot) File(path string) (FileEntry, bool) {
	if s == nil {
		return FileEntry{}, false
	}
	for _, f := range s.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileEntry{}, false
}

func (s *Snapshot) Conflicts() []FileEntry {
	if s == nil {
		return nil
	}
	var out []FileEntry
	for _, f := range s.Files {
		if f.IsConflicted() {
			out = append(out, f)
		}
	}
	return out
}

func (s *Snapshot) ActiveBranch() (BranchRef, bool) {
	if s == nil {
		return BranchRef{}, false
	}
	for _, b := range s.Branches {
		if b.IsActive {
			return b, true
		}
	}
	return BranchRef{}, false
}

// Clone returns a deep copy of s. Branches that shared a *RemoteRef still
// share one in the copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	remotes := map[*RemoteRef]*RemoteRef{}
	cloneRemote := func(r *RemoteRef) *RemoteRef {
		if r == nil {
			return nil
		}
		c, ok := remotes[r]
		if !ok {
			cp := *r
			c = &cp
			remotes[r] = c
		}
		return c
	}
	cloneInfo := func(bi *BranchInfo) *BranchInfo {
		if bi == nil {
			return nil
		}
		cp := *bi
		cp.Remote = cloneRemote(bi.Remote)
		return &cp
	}

	out := &Snapshot{
		Files:    slices.Clone(s.Files),
		Branches: slices.Clone(s.Branches),
		Remotes:  slices.Clone(s.Remotes),
	}
	for i := range out.Branches {
		b := &out.Branches[i]
		b.Remote = cloneRemote(b.Remote)
		b.HeadPointer = cloneInfo(b.HeadPointer)
		b.Tracking = cloneInfo(b.Tracking)
	}
	return out
}
