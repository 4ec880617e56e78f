package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitstate/internal/git/backend"
	"github.com/thiagokokada/gitstate/internal/git/conflict"
	"github.com/thiagokokada/gitstate/internal/git/state"
)

// These tests drive the real git binary. They cannot run in parallel since
// they pin the environment git reads its identity and config from.

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

func gitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	return dir
}

func fileState(t *testing.T, r *Repository, path string) state.FileState {
	t.Helper()
	files, err := r.Files(context.Background())
	require.NoError(t, err)
	for _, f := range files {
		if f.Path == path {
			return f.State
		}
	}
	return 0
}

func TestIntegration_StageUnstage(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "one\n")
	gitCmd(t, dir, "add", "a.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "initial")

	r, err := Open(ctx, dir)
	require.NoError(t, err)
	defer r.Close()

	writeFile(t, dir, "a.txt", "two\n")
	require.NoError(t, r.Refresh(ctx))
	before := fileState(t, r, "a.txt")
	assert.Equal(t, state.ModifiedInWorkdir, before)

	require.NoError(t, r.Stage(ctx, "a.txt"))
	assert.Equal(t, state.ModifiedInIndex, fileState(t, r, "a.txt"))

	require.NoError(t, r.Unstage(ctx, "a.txt"))
	assert.Equal(t, before, fileState(t, r, "a.txt"))

	active, ok, err := r.ActiveBranch(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "main", active.Name)
}

func TestIntegration_UnbornRepository(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := initRepo(t)
	writeFile(t, dir, "new.txt", "hello\n")

	r, err := Open(ctx, dir)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, state.NewInWorkdir, fileState(t, r, "new.txt"))
	_, ok, err := r.ActiveBranch(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Stage(ctx))
	assert.Equal(t, state.NewInIndex, fileState(t, r, "new.txt"))
	require.NoError(t, r.Unstage(ctx, "new.txt"))
	assert.Equal(t, state.NewInWorkdir, fileState(t, r, "new.txt"))

	require.NoError(t, r.Stage(ctx, "new.txt"))
	require.NoError(t, r.Commit(ctx, "first commit\n\nwith a body"))
	active, ok, err := r.ActiveBranch(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "main", active.Name)

	files, err := r.Files(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.ErrorIs(t, r.Commit(ctx, "  \n"), ErrNothingToCommit)
	assert.ErrorIs(t, r.Commit(ctx, "clean tree"), backend.ErrCommandFailed)
}

func TestIntegration_MergeConflictKeepMine(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := initRepo(t)
	writeFile(t, dir, "f.txt", "base\n")
	gitCmd(t, dir, "add", "f.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "base")
	gitCmd(t, dir, "checkout", "-q", "-b", "topic")
	writeFile(t, dir, "f.txt", "topic\n")
	gitCmd(t, dir, "commit", "-q", "-am", "topic")
	gitCmd(t, dir, "checkout", "-q", "main")
	writeFile(t, dir, "f.txt", "main\n")
	gitCmd(t, dir, "commit", "-q", "-am", "main")

	r, err := Open(ctx, dir, WithDecider(conflict.Fixed(conflict.KeepMine, false)))
	require.NoError(t, err)
	defer r.Close()

	err = r.Merge(ctx, "topic")
	var mc *MergeConflictError
	require.True(t, errors.As(err, &mc), "got %v", err)
	assert.Equal(t, []string{"f.txt"}, mc.Paths)

	conflicts, err := r.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, state.ConflictChanges, conflicts[0].Conflict)

	results, err := r.ResolveAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, conflict.Staged, results[0].Outcome)
	assert.Contains(t, results[0].Diff, "-<<<<<<< HEAD")

	data, err := os.ReadFile(filepath.Join(dir, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "main\n", string(data))
	for _, suffix := range []string{".base", ".ours", ".theirs"} {
		assert.NoFileExists(t, filepath.Join(dir, "f.txt"+suffix))
	}
	conflicts, err = r.Conflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}
