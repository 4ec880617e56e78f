package git

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thiagokokada/gitstate/internal/git/state"
)

// Refresh rebuilds the snapshot. On failure the previous snapshot is kept.
func (r *Repository) Refresh(ctx context.Context) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	return r.refreshLocked(ctx)
}

func (r *Repository) refreshLocked(ctx context.Context) error {
	start := time.Now()
	files, err := r.scanFilesLocked(ctx)
	if err != nil {
		return err
	}
	branches, remotes, err := r.scanBranchesLocked(ctx)
	if err != nil {
		return err
	}
	snap := &state.Snapshot{Files: files, Branches: branches}
	for _, remote := range remotes {
		snap.Remotes = append(snap.Remotes, *remote)
	}
	r.snapshot = snap
	r.log.Debug("refresh done",
		slog.Int("files", len(files)),
		slog.Int("branches", len(branches)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *Repository) scanFilesLocked(ctx context.Context) ([]state.FileEntry, error) {
	var lfsExts []string
	if r.lfs != nil {
		exts, err := r.lfs.TrackedExtensions(ctx)
		if err != nil {
			return nil, err
		}
		lfsExts = exts
	}

	p := NewStatusParser(r.grammar, lfsExts)
	statusEnv := []string{"GIT_OPTIONAL_LOCKS=0"}
	tracked := []string{"status", "--long", "--no-column", "--untracked-files=no"}
	if err := r.runLocked(ctx, tracked, runOpts{onStdout: p.Feed, env: statusEnv}); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	p.NextPass()
	untracked := []string{"status", "--long", "--no-column", "--untracked-files=all"}
	if r.showIgnored {
		untracked = append(untracked, "--ignored")
	}
	if err := r.runLocked(ctx, untracked, runOpts{onStdout: p.Feed, env: statusEnv}); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return p.Result()
}

func (r *Repository) scanBranchesLocked(ctx context.Context) ([]state.BranchRef, []*state.RemoteRef, error) {
	p := NewBranchParser(r.grammar)
	err := r.runLocked(ctx, []string{"remote"}, runOpts{onStdout: func(line string) { p.AddRemotes(line) }})
	if err != nil {
		return nil, nil, fmt.Errorf("list remotes: %w", err)
	}
	if err := r.runLocked(ctx, []string{"branch", "-a", "-vv", "--no-color", "--no-column"}, runOpts{onStdout: p.Feed}); err != nil {
		return nil, nil, fmt.Errorf("list branches: %w", err)
	}
	branches, remotes := p.Result()

	resolver := &RemoteResolver{Runner: r.runner, Program: r.program, Dir: r.path, Env: baseEnv, Log: r.log}
	if err := resolver.Resolve(ctx, remotes); err != nil {
		return nil, nil, err
	}

	hasHead, err := r.hasHeadLocked(ctx)
	if err != nil {
		return nil, nil, err
	}
	if hasHead {
		if err := state.ValidateBranches(branches); err != nil {
			return nil, nil, err
		}
	}
	return branches, remotes, nil
}

func (r *Repository) snapshotLocked(ctx context.Context) (*state.Snapshot, error) {
	if r.snapshot == nil {
		if err := r.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}
	return r.snapshot, nil
}

// Snapshot returns a deep copy of the current snapshot, refreshing first when
// none has been taken yet.
func (r *Repository) Snapshot(ctx context.Context) (*state.Snapshot, error) {
	if err := r.lock(); err != nil {
		return nil, err
	}
	defer r.mu.Unlock()
	snap, err := r.snapshotLocked(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Clone(), nil
}

func (r *Repository) Files(ctx context.Context) ([]state.FileEntry, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Files, nil
}

func (r *Repository) Branches(ctx context.Context) ([]state.BranchRef, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Branches, nil
}

func (r *Repository) Remotes(ctx context.Context) ([]state.RemoteRef, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Remotes, nil
}

func (r *Repository) Conflicts(ctx context.Context) ([]state.FileEntry, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Conflicts(), nil
}

// ActiveBranch returns the checked out branch. ok is false in an empty repository.
func (r *Repository) ActiveBranch(ctx context.Context) (branch state.BranchRef, ok bool, err error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return state.BranchRef{}, false, err
	}
	branch, ok = snap.ActiveBranch()
	return branch, ok, nil
}

func findBranch(branches []state.BranchRef, name string) (state.BranchRef, bool) {
	for _, b := range branches {
		if b.FullName == name {
			return b, true
		}
	}
	name = strings.TrimPrefix(name, "remotes/")
	for _, b := range branches {
		if b.FullName == name || (!b.IsRemote && b.Name == name) {
			return b, true
		}
	}
	return state.BranchRef{}, false
}
