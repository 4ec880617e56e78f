package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStateNamesRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewInIndex | ModifiedInWorkdir | Conflicted
	assert.Equal(t, "ModifiedInWorkdir|NewInIndex|Conflicted", s.String())

	parsed, ok := ParseFileState(s.Names())
	require.True(t, ok)
	assert.Equal(t, s, parsed)

	_, ok = ParseFileState([]string{"Bogus"})
	assert.False(t, ok)
	assert.Equal(t, "Unmodified", FileState(0).String())
}

func TestFileStateStagedUnstaged(t *testing.T) {
	t.Parallel()

	assert.True(t, NewInIndex.Staged())
	assert.False(t, NewInIndex.Unstaged())
	assert.True(t, (ModifiedInWorkdir | Ignored).Unstaged())
	assert.False(t, Ignored.Staged())
}

func TestConflictKindSides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind   ConflictKind
		ours   bool
		theirs bool
	}{
		{ConflictChanges, true, true},
		{ConflictDeletedByUs, false, true},
		{ConflictDeletedByThem, true, false},
		{ConflictDeletedByBoth, false, false},
		{ConflictAddedByUs, true, false},
		{ConflictAddedByThem, false, true},
		{ConflictAddedByBoth, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.ours, tt.kind.HasOurs())
			assert.Equal(t, tt.theirs, tt.kind.HasTheirs())
			parsed, ok := ParseConflictKind(tt.kind.String())
			require.True(t, ok)
			assert.Equal(t, tt.kind, parsed)
		})
	}
}

func TestValidateBranches(t *testing.T) {
	t.Parallel()

	main := BranchRef{Name: "main", FullName: "main", IsActive: true}
	feature := BranchRef{Name: "feature", FullName: "feature"}
	detached := BranchRef{Name: "main", FullName: "origin/main", IsActive: true, IsRemote: true, IsHead: true, IsHeadDetached: true}
	remote := BranchRef{Name: "main", FullName: "origin/main", IsRemote: true}

	require.NoError(t, ValidateBranches([]BranchRef{main, feature, remote}))
	require.NoError(t, ValidateBranches([]BranchRef{detached, feature, remote}))

	err := ValidateBranches([]BranchRef{feature, remote})
	assert.True(t, errors.Is(err, ErrInconsistentBranches))

	second := feature
	second.IsActive = true
	err = ValidateBranches([]BranchRef{main, second})
	assert.True(t, errors.Is(err, ErrInconsistentBranches))

	activeRemote := remote
	activeRemote.IsActive = true
	err = ValidateBranches([]BranchRef{activeRemote})
	assert.True(t, errors.Is(err, ErrInconsistentBranches))
}

func TestSnapshotLookups(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{
		Files: []FileEntry{
			{Path: "a.txt", State: ModifiedInWorkdir},
			{Path: "b.txt", State: Conflicted, Conflict: ConflictChanges},
		},
		Branches: []BranchRef{{Name: "main", FullName: "main", IsActive: true}},
	}
	f, ok := snap.File("b.txt")
	require.True(t, ok)
	assert.Equal(t, ConflictChanges, f.Conflict)
	assert.Len(t, snap.Conflicts(), 1)
	active, ok := snap.ActiveBranch()
	require.True(t, ok)
	assert.Equal(t, "main", active.Name)

	var empty *Snapshot
	_, ok = empty.ActiveBranch()
	assert.False(t, ok)
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	t.Parallel()

	origin := &RemoteRef{Name: "origin", URL: "https://example.com/r.git"}
	snap := &Snapshot{
		Branches: []BranchRef{
			{Name: "main", FullName: "main", IsTracking: true, Tracking: &BranchInfo{Name: "main", FullName: "origin/main", Remote: origin}},
			{Name: "main", FullName: "origin/main", IsRemote: true, Remote: origin},
			{Name: "HEAD", FullName: "origin/HEAD", IsRemote: true, IsHead: true, Remote: origin, HeadPointer: &BranchInfo{Name: "main", FullName: "origin/main", Remote: origin}},
		},
		Remotes: []RemoteRef{*origin},
	}

	cp := snap.Clone()
	require.Len(t, cp.Branches, 3)
	assert.Same(t, cp.Branches[0].Tracking.Remote, cp.Branches[1].Remote)
	assert.Same(t, cp.Branches[1].Remote, cp.Branches[2].HeadPointer.Remote)
	assert.NotSame(t, origin, cp.Branches[1].Remote)

	cp.Branches[1].Remote.URL = "changed"
	cp.Branches[0].Tracking.FullName = "changed"
	cp.Branches[2].HeadPointer.Name = "changed"
	assert.Equal(t, "https://example.com/r.git", origin.URL)
	assert.Equal(t, "origin/main", snap.Branches[0].Tracking.FullName)
	assert.Equal(t, "main", snap.Branches[2].HeadPointer.Name)

	var empty *Snapshot
	assert.Nil(t, empty.Clone())
}
