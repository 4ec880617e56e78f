package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thiagokokada/gitstate/internal/git/state"
)

// mutateLocked runs a mutating command and refreshes the snapshot so readers
// never see state older than the last completed mutation.
func (r *Repository) mutateLocked(ctx context.Context, args []string, o runOpts) error {
	err := r.runLocked(ctx, args, o)
	if err != nil {
		r.log.Debug("git command failed", slog.Any("args", args), slog.String("stderr", r.lastError))
		return err
	}
	return r.refreshAfterLocked(ctx, args[0])
}

// refreshAfterLocked refreshes the snapshot and keeps the output of the
// operation that preceded it as the last result.
func (r *Repository) refreshAfterLocked(ctx context.Context, op string) error {
	result, lastErr := r.lastResult, r.lastError
	if err := r.refreshLocked(ctx); err != nil {
		return fmt.Errorf("refresh after %s: %w", op, err)
	}
	r.lastResult, r.lastError = result, lastErr
	return nil
}

// outputs joins the output of the invocations making up one operation.
type outputs struct {
	stdout, stderr strings.Builder
}

func (o *outputs) add(r *Repository) {
	o.stdout.WriteString(r.lastResult)
	o.stderr.WriteString(r.lastError)
}

func (o *outputs) restore(r *Repository) {
	r.lastResult, r.lastError = o.stdout.String(), o.stderr.String()
}

func (r *Repository) mutate(ctx context.Context, args ...string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	return r.mutateLocked(ctx, args, runOpts{})
}

func withPaths(args []string, paths []string) []string {
	args = append(args, "--")
	return append(args, paths...)
}

// Stage adds paths, including deletions, to the index. No paths stages everything.
func (r *Repository) Stage(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return r.mutate(ctx, "add", "-A")
	}
	return r.mutate(ctx, withPaths([]string{"add", "-A"}, paths)...)
}

// Unstage removes paths from the index, keeping the working files.
func (r *Repository) Unstage(ctx context.Context, paths ...string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()

	hasHead, err := r.hasHeadLocked(ctx)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	if !hasHead {
		// nothing to reset to before the first commit
		return r.mutateLocked(ctx, withPaths([]string{"rm", "--cached", "-q", "-r"}, paths), runOpts{})
	}
	return r.mutateLocked(ctx, withPaths([]string{"reset", "-q", "HEAD"}, paths), runOpts{})
}

// Discard drops working tree changes. Untracked files are deleted.
func (r *Repository) Discard(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("discard: no paths given")
	}
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()

	snap, err := r.snapshotLocked(ctx)
	if err != nil {
		return err
	}
	var tracked, untracked []string
	for _, p := range paths {
		entry, ok := snap.File(p)
		if ok && entry.State.Has(state.NewInWorkdir) && !entry.State.Staged() {
			untracked = append(untracked, p)
			continue
		}
		tracked = append(tracked, p)
	}
	var out outputs
	defer out.restore(r)
	if len(untracked) > 0 {
		err := r.runLocked(ctx, withPaths([]string{"clean", "-f", "-q"}, untracked), runOpts{})
		out.add(r)
		if err != nil {
			return err
		}
	}
	if len(tracked) > 0 {
		err := r.runLocked(ctx, withPaths([]string{"checkout", "-q"}, tracked), runOpts{})
		out.add(r)
		if err != nil {
			return err
		}
	}
	return r.refreshLocked(ctx)
}

// Commit records the index with message, passed on stdin.
func (r *Repository) Commit(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrNothingToCommit
	}
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	return r.mutateLocked(ctx, []string{"commit", "-q", "-F", "-"}, runOpts{stdin: strings.NewReader(message)})
}

// Fetch fetches remote, or every remote when remote is empty.
func (r *Repository) Fetch(ctx context.Context, remote string) error {
	if remote == "" {
		return r.mutate(ctx, "fetch", "--all")
	}
	return r.mutate(ctx, "fetch", remote)
}

// Pull merges the upstream of the active branch. Conflicts are reported as
// *MergeConflictError.
func (r *Repository) Pull(ctx context.Context) error {
	return r.merge(ctx, "upstream", "pull", "--no-rebase", "--no-edit")
}

type PushOptions struct {
	Remote      string
	Branch      string
	SetUpstream bool
	// ForceWithLease overwrites the remote branch if it still matches the
	// last fetched value.
	ForceWithLease bool
}

func (o PushOptions) args() []string {
	args := []string{"push"}
	if o.SetUpstream {
		args = append(args, "--set-upstream")
	}
	if o.ForceWithLease {
		args = append(args, "--force-with-lease")
	}
	if o.Remote != "" {
		args = append(args, o.Remote)
		if o.Branch != "" {
			args = append(args, o.Branch)
		}
	}
	return args
}

func (r *Repository) Push(ctx context.Context, opts PushOptions) error {
	if opts.Branch != "" && opts.Remote == "" {
		return errors.New("push: branch given without remote")
	}
	return r.mutate(ctx, opts.args()...)
}

// Checkout switches to b. A remote branch is checked out through a local
// tracking branch, created when missing.
func (r *Repository) Checkout(ctx context.Context, b state.BranchRef) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	return r.checkoutLocked(ctx, b)
}

func (r *Repository) checkoutLocked(ctx context.Context, b state.BranchRef) error {
	switch {
	case b.IsHeadDetached:
		return fmt.Errorf("checkout %s: already on a detached HEAD", b.FullName)
	case b.IsRemote && b.IsHead:
		return fmt.Errorf("checkout %s: remote HEAD alias is not a branch", b.FullName)
	case b.IsRemote:
		snap, err := r.snapshotLocked(ctx)
		if err != nil {
			return err
		}
		if local, ok := findBranch(snap.Branches, b.Name); ok && !local.IsRemote {
			return r.mutateLocked(ctx, []string{"checkout", "-q", local.FullName}, runOpts{})
		}
		return r.mutateLocked(ctx, []string{"checkout", "-q", "--track", b.FullName}, runOpts{})
	default:
		return r.mutateLocked(ctx, []string{"checkout", "-q", b.FullName}, runOpts{})
	}
}

// CheckoutName looks name up among the known branches and checks it out.
func (r *Repository) CheckoutName(ctx context.Context, name string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()
	snap, err := r.snapshotLocked(ctx)
	if err != nil {
		return err
	}
	b, ok := findBranch(snap.Branches, name)
	if !ok {
		return fmt.Errorf("checkout %s: %w", name, ErrUnknownBranch)
	}
	return r.checkoutLocked(ctx, b)
}

// CreateBranch creates name at start (HEAD when empty) and optionally switches to it.
func (r *Repository) CreateBranch(ctx context.Context, name, start string, checkout bool) error {
	if name == "" {
		return errors.New("create branch: empty name")
	}
	args := []string{"branch", name}
	if checkout {
		args = []string{"checkout", "-q", "-b", name}
	}
	if start != "" {
		args = append(args, start)
	}
	return r.mutate(ctx, args...)
}

func (r *Repository) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	return r.mutate(ctx, "branch", flag, name)
}

// Merge merges ref into the active branch. When the merge stops on
// conflicts the snapshot is refreshed and *MergeConflictError lists them.
func (r *Repository) Merge(ctx context.Context, ref string) error {
	return r.merge(ctx, ref, "merge", "--no-edit", ref)
}

func (r *Repository) merge(ctx context.Context, ref string, args ...string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()

	runErr := r.runLocked(ctx, args, runOpts{})
	result, lastErr := r.lastResult, r.lastError
	if err := r.refreshLocked(ctx); err != nil {
		return errors.Join(runErr, err)
	}
	r.lastResult, r.lastError = result, lastErr
	if runErr == nil {
		return nil
	}
	conflicts := r.snapshot.Conflicts()
	if len(conflicts) == 0 {
		return runErr
	}
	paths := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		paths = append(paths, c.Path)
	}
	return &MergeConflictError{Ref: ref, Paths: paths, Err: runErr}
}

func (r *Repository) AbortMerge(ctx context.Context) error {
	return r.mutate(ctx, "merge", "--abort")
}

// Prune deletes stale remote-tracking branches of remote, or of every remote
// when remote is empty.
func (r *Repository) Prune(ctx context.Context, remote string) error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.mu.Unlock()

	names := []string{remote}
	if remote == "" {
		snap, err := r.snapshotLocked(ctx)
		if err != nil {
			return err
		}
		names = names[:0]
		for _, rr := range snap.Remotes {
			names = append(names, rr.Name)
		}
	}
	var out outputs
	defer out.restore(r)
	for _, name := range names {
		err := r.runLocked(ctx, []string{"remote", "prune", name}, runOpts{})
		out.add(r)
		if err != nil {
			return err
		}
	}
	return r.refreshLocked(ctx)
}

// Diff returns the patch of path (every path when empty) against the index,
// or of the index against HEAD when staged is set.
func (r *Repository) Diff(ctx context.Context, path string, staged bool) (string, error) {
	if err := r.lock(); err != nil {
		return "", err
	}
	defer r.mu.Unlock()
	args := []string{"diff", "--no-color", "--no-ext-diff"}
	if staged {
		args = append(args, "--cached")
	}
	if path != "" {
		args = withPaths(args, []string{path})
	}
	return r.outputLocked(ctx, args...)
}
