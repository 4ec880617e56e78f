package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/thiagokokada/gitstate/internal/git/conflict"
	"github.com/thiagokokada/gitstate/internal/git/state"
)

// conflictGit gives the engine access to the repository while r.mu is held.
type conflictGit struct {
	r *Repository
}

func exportRevs(side conflict.Side, path string) []string {
	if side == conflict.Theirs {
		return []string{"MERGE_HEAD:" + path, ":3:" + path}
	}
	return []string{"ORIG_HEAD:" + path, ":2:" + path}
}

// Export tries the merge heads first and falls back to the index stages,
// which also exist during rebase and cherry-pick.
func (g conflictGit) Export(ctx context.Context, entry state.FileEntry, side conflict.Side, dst string) error {
	var errs []error
	for _, rev := range exportRevs(side, entry.Path) {
		err := g.exportRev(ctx, rev, entry.IsLFS, dst)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	_ = os.Remove(dst)
	return fmt.Errorf("export %s of %s: %w", side, entry.Path, errors.Join(errs...))
}

func (g conflictGit) exportRev(ctx context.Context, rev string, lfs bool, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if lfs && g.r.lfs != nil {
		var pointer bytes.Buffer
		err = g.r.runLocked(ctx, []string{"show", rev}, runOpts{stdout: &pointer})
		if err == nil {
			err = g.r.lfs.Smudge(ctx, &pointer, f)
		}
	} else {
		err = g.r.runLocked(ctx, []string{"show", rev}, runOpts{stdout: f})
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (g conflictGit) Stage(ctx context.Context, path string) error {
	return g.r.runLocked(ctx, withPaths([]string{"add"}, []string{path}), runOpts{})
}

func (g conflictGit) Remove(ctx context.Context, path string) error {
	return g.r.runLocked(ctx, withPaths([]string{"rm", "-q", "-f"}, []string{path}), runOpts{})
}

func (r *Repository) engineLocked() *conflict.Engine {
	opts := []conflict.Option{
		conflict.WithBinaryThreshold(r.binaryThreshold),
		conflict.WithLogger(r.baseLog.With(slog.String("repo", r.path))),
	}
	if r.decider != nil {
		opts = append(opts, conflict.WithDecider(r.decider))
	}
	if r.tool != nil {
		opts = append(opts, conflict.WithMergeTool(r.tool))
	}
	return conflict.New(r.path, conflictGit{r: r}, opts...)
}

// ResolveConflict resolves one conflicted path and refreshes the snapshot.
// The repository stays locked while the decider is waiting.
func (r *Repository) ResolveConflict(ctx context.Context, path string) (conflict.Result, error) {
	if err := r.lock(); err != nil {
		return conflict.Result{}, err
	}
	defer r.mu.Unlock()

	if err := r.refreshLocked(ctx); err != nil {
		return conflict.Result{}, err
	}
	entry, ok := r.snapshot.File(path)
	if !ok || !entry.IsConflicted() {
		return conflict.Result{Path: path}, fmt.Errorf("%s: %w", path, conflict.ErrNotConflicted)
	}
	r.lastResult, r.lastError = "", ""
	res, err := r.engineLocked().Resolve(ctx, entry)
	if rerr := r.refreshAfterLocked(ctx, "resolve"); rerr != nil {
		return res, errors.Join(err, rerr)
	}
	return res, err
}

// ResolveAll resolves every conflicted path in order. It stops at the first
// failure or Cancel; files resolved before that stay resolved.
func (r *Repository) ResolveAll(ctx context.Context) ([]conflict.Result, error) {
	if err := r.lock(); err != nil {
		return nil, err
	}
	defer r.mu.Unlock()

	if err := r.refreshLocked(ctx); err != nil {
		return nil, err
	}
	r.lastResult, r.lastError = "", ""
	results, err := r.engineLocked().ResolveAll(ctx, r.snapshot.Conflicts())
	if rerr := r.refreshAfterLocked(ctx, "resolve"); rerr != nil {
		return results, errors.Join(err, rerr)
	}
	return results, err
}
