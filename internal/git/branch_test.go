package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitstate/internal/git/state"
)

func TestParseBranches_TrackingAndRemoteHead(t *testing.T) {
	t.Parallel()

	out := "* main...origin/main\n  remotes/origin/main\n  remotes/origin/HEAD -> origin/main\n"
	branches, remotes := ParseBranches(nil, out)
	require.Len(t, branches, 3)
	require.Len(t, remotes, 1)
	require.NoError(t, state.ValidateBranches(branches))

	main := branches[0]
	assert.Equal(t, "main", main.Name)
	assert.True(t, main.IsActive)
	assert.True(t, main.IsTracking)
	assert.False(t, main.IsRemote)
	require.NotNil(t, main.Tracking)
	assert.Equal(t, "origin/main", main.Tracking.FullName)
	assert.Equal(t, "main", main.Tracking.Name)
	assert.Equal(t, "origin", main.Tracking.Remote.Name)

	remoteMain := branches[1]
	assert.Equal(t, "origin/main", remoteMain.FullName)
	assert.Equal(t, "main", remoteMain.Name)
	assert.True(t, remoteMain.IsRemote)
	assert.False(t, remoteMain.IsHead)

	head := branches[2]
	assert.Equal(t, "origin/HEAD", head.FullName)
	assert.True(t, head.IsRemote)
	assert.True(t, head.IsHead)
	require.NotNil(t, head.HeadPointer)
	assert.Equal(t, "origin/main", head.HeadPointer.FullName)
	assert.Equal(t, "main", head.HeadPointer.Name)

	// one RemoteRef shared by every branch on origin
	assert.Same(t, remotes[0], main.Tracking.Remote)
	assert.Same(t, remotes[0], remoteMain.Remote)
	assert.Same(t, remotes[0], head.Remote)
}

func TestParseBranches_Verbose(t *testing.T) {
	t.Parallel()

	out := "" +
		"  feature/login       3c4d5e6 [upstream/feature/login: ahead 2, behind 1] wip\n" +
		"* main                1a2b3c4 [origin/main] release\n" +
		"+ other-worktree      9f8e7d6 checked out elsewhere\n" +
		"  stale               0a0b0c0 [origin/stale: gone] old\n" +
		"  remotes/origin/HEAD -> origin/main\n" +
		"  remotes/origin/main 1a2b3c4 release\n" +
		"  remotes/upstream/feature/login 5e5e5e5 wip\n"
	branches, remotes := ParseBranches(nil, out, "origin", "upstream")
	require.Len(t, branches, 7)
	require.Len(t, remotes, 2)
	require.NoError(t, state.ValidateBranches(branches))

	feature := branches[0]
	assert.Equal(t, "feature/login", feature.FullName)
	assert.False(t, feature.IsRemote)
	require.NotNil(t, feature.Tracking)
	assert.Equal(t, "upstream/feature/login", feature.Tracking.FullName)
	assert.Equal(t, "feature/login", feature.Tracking.Name)
	assert.Equal(t, "upstream", feature.Tracking.Remote.Name)

	assert.False(t, branches[2].IsActive)
	assert.False(t, branches[2].IsTracking)
	assert.Equal(t, "origin/stale", branches[3].Tracking.FullName)

	deep := branches[6]
	assert.Equal(t, "upstream/feature/login", deep.FullName)
	assert.Equal(t, "feature/login", deep.Name)
	assert.Equal(t, "upstream", deep.RemoteName())
}

func TestParseBranches_DetachedHead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		line       string
		fullName   string
		branchName string
		remote     string
	}{
		{name: "at_remote", line: "* (HEAD detached at origin/main) 1a2b3c4 msg", fullName: "origin/main", branchName: "main", remote: "origin"},
		{name: "from_sha", line: "* (HEAD detached from 1a2b3c4) 5d6e7f8 msg", fullName: "1a2b3c4", branchName: "1a2b3c4"},
		{name: "no_branch", line: "* (no branch, rebasing main) 1a2b3c4 msg", fullName: "HEAD", branchName: "HEAD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			branches, _ := ParseBranches(nil, tt.line+"\n  main 1a2b3c4 msg\n  remotes/origin/main 1a2b3c4 msg\n")
			require.Len(t, branches, 3)
			require.NoError(t, state.ValidateBranches(branches))
			head := branches[0]
			assert.True(t, head.IsActive)
			assert.True(t, head.IsHead)
			assert.True(t, head.IsHeadDetached)
			assert.True(t, head.IsRemote)
			assert.Equal(t, tt.fullName, head.FullName)
			assert.Equal(t, tt.branchName, head.Name)
			assert.Equal(t, tt.remote, head.RemoteName())
		})
	}
}

func TestParseBranches_SkipsWarningsAndBlankLines(t *testing.T) {
	t.Parallel()

	out := "warning: refname 'x' is ambiguous.\n\n* main 1a2b3c4 msg\n"
	branches, remotes := ParseBranches(nil, out)
	require.Len(t, branches, 1)
	assert.Empty(t, remotes)
	assert.Equal(t, "main", branches[0].Name)
}

func TestParseBranches_Idempotent(t *testing.T) {
	t.Parallel()

	out := "* main...origin/main\n  remotes/origin/main\n  remotes/origin/HEAD -> origin/main\n"
	a, _ := ParseBranches(nil, out)
	b, _ := ParseBranches(nil, out)
	assert.Equal(t, a, b)
}

func TestParseBranches_InconsistentActiveBranches(t *testing.T) {
	t.Parallel()

	branches, _ := ParseBranches(nil, "* main 1a2b3c4 msg\n* other 1a2b3c4 msg\n")
	assert.ErrorIs(t, state.ValidateBranches(branches), ErrInconsistentBranches)
}

func TestParseBranches_BracketedSubjectIsNotUpstream(t *testing.T) {
	t.Parallel()

	out := "" +
		"* main                 1a2b3c4 [WIP] start work\n" +
		"  feature              1a2b3c4 [JIRA-12] fix thing\n" +
		"  notes                2b3c4d5 [JIRA-7: follow up] notes\n" +
		"  topic                3c4d5e6 [main] based on main\n" +
		"  gone                 4d5e6f7 [elsewhere/gone: gone] old\n" +
		"  remotes/origin/main  1a2b3c4 [WIP] start work\n"
	branches, _ := ParseBranches(nil, out, "origin")
	require.Len(t, branches, 6)
	require.NoError(t, state.ValidateBranches(branches))

	for _, b := range branches[:3] {
		assert.False(t, b.IsTracking, b.FullName)
		assert.Nil(t, b.Tracking, b.FullName)
	}

	// a branch seen in the listing
	require.True(t, branches[3].IsTracking)
	assert.Equal(t, "main", branches[3].Tracking.FullName)

	// counts mark an upstream even on an unknown remote
	require.True(t, branches[4].IsTracking)
	assert.Equal(t, "elsewhere/gone", branches[4].Tracking.FullName)

	remote := branches[5]
	assert.True(t, remote.IsRemote)
	assert.False(t, remote.IsTracking)
	assert.Nil(t, remote.Tracking)
}
