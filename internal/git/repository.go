package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	gitlib "github.com/go-git/go-git/v5"

	"github.com/thiagokokada/gitstate/internal/git/backend"
	"github.com/thiagokokada/gitstate/internal/git/conflict"
	"github.com/thiagokokada/gitstate/internal/git/state"
)

var (
	ErrClosed          = errors.New("repository is closed")
	ErrBareRepository  = errors.New("bare repositories are not supported")
	ErrUnknownBranch   = errors.New("unknown branch")
	ErrNothingToCommit = errors.New("empty commit message")

	ErrInconsistentBranches = state.ErrInconsistentBranches
)

// MergeConflictError is returned when a merge or pull stops on conflicts.
type MergeConflictError struct {
	Ref   string
	Paths []string
	Err   error
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge %s: %d conflicted path(s): %s", e.Ref, len(e.Paths), strings.Join(e.Paths, ", "))
}

func (e *MergeConflictError) Unwrap() error {
	return e.Err
}

// LFS is the large-file extension collaborator.
type LFS interface {
	TrackedExtensions(ctx context.Context) ([]string, error)
	Smudge(ctx context.Context, pointer io.Reader, dst io.Writer) error
}

// Repository serializes every operation on one work tree behind a mutex.
// Only one git process runs against the work tree at a time.
type Repository struct {
	mu sync.Mutex

	path    string
	open    bool
	runner  backend.Runner
	program string
	version backend.Version
	grammar *Grammar

	lfs             LFS
	tool            conflict.MergeTool
	decider         conflict.Decider
	binaryThreshold int64
	showIgnored     bool
	// baseLog is the caller's logger before repository attributes are added.
	baseLog *slog.Logger
	log     *slog.Logger

	lastResult string
	lastError  string
	snapshot   *state.Snapshot
}

type Option func(*Repository)

func WithRunner(r backend.Runner) Option {
	return func(repo *Repository) { repo.runner = r }
}

func WithProgram(program string) Option {
	return func(repo *Repository) {
		if program != "" {
			repo.program = program
		}
	}
}

func WithLFS(l LFS) Option {
	return func(repo *Repository) { repo.lfs = l }
}

func WithMergeTool(t conflict.MergeTool) Option {
	return func(repo *Repository) { repo.tool = t }
}

func WithDecider(d conflict.Decider) Option {
	return func(repo *Repository) { repo.decider = d }
}

func WithBinaryThreshold(n int64) Option {
	return func(repo *Repository) { repo.binaryThreshold = n }
}

func WithShowIgnored(show bool) Option {
	return func(repo *Repository) { repo.showIgnored = show }
}

func WithLogger(l *slog.Logger) Option {
	return func(repo *Repository) {
		if l != nil {
			repo.log = l
		}
	}
}

// FindRoot returns the work tree root containing path.
func FindRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true, EnableDotGitCommonDir: true})
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if errors.Is(err, gitlib.ErrIsBareRepository) {
		return "", fmt.Errorf("open %s: %w", abs, ErrBareRepository)
	}
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// Open locates the repository containing path and checks the git version.
// The returned handle has no snapshot until Refresh is called.
func Open(ctx context.Context, path string, opts ...Option) (*Repository, error) {
	root, err := FindRoot(path)
	if err != nil {
		return nil, err
	}
	r := &Repository{
		path:            root,
		program:         backend.DefaultProgram,
		binaryThreshold: conflict.DefaultBinaryThreshold,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.baseLog = r.log
	r.log = r.log.With(slog.String("component", "repository"), slog.String("repo", root))
	if r.runner == nil {
		r.runner = backend.NewExecRunner(r.log)
	}

	version, err := backend.DetectVersion(ctx, r.runner, r.program)
	if err != nil {
		return nil, err
	}
	grammar, err := GrammarFor(version)
	if err != nil {
		return nil, err
	}
	r.version = version
	r.grammar = grammar
	r.open = true
	r.log.Debug("repository opened", slog.String("git", version.String()), slog.String("grammar", grammar.Name))
	return r, nil
}

// Close releases the handle. Every later operation fails with ErrClosed.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	r.snapshot = nil
	return nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) GitVersion() backend.Version {
	return r.version
}

// LastResult is the stdout of the most recent invocation.
func (r *Repository) LastResult() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResult
}

// LastError is the stderr of the most recent invocation, or the error text
// when it failed without writing to stderr.
func (r *Repository) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

func (r *Repository) lock() error {
	r.mu.Lock()
	if !r.open {
		r.mu.Unlock()
		return ErrClosed
	}
	return nil
}

type runOpts struct {
	stdin  io.Reader
	stdout io.Writer
	// onStdout receives stdout lines instead of lastResult.
	onStdout func(line string)
	env      []string
}

var baseEnv = []string{"LC_ALL=C", "LANG=C", "LANGUAGE=C"}

// runLocked runs one git invocation. r.mu must be held.
func (r *Repository) runLocked(ctx context.Context, args []string, o runOpts) error {
	var stdout bytes.Buffer
	env := append(append([]string(nil), baseEnv...), o.env...)
	res, err := r.runner.Run(ctx, backend.Invocation{
		Program: r.program,
		Args:    args,
		Dir:     r.path,
		Env:     env,
		Stdin:   o.stdin,
		Stdout:  o.stdout,
		OnLine: func(stream backend.Stream, line string) {
			if stream != backend.StreamStdout {
				return
			}
			if o.onStdout != nil {
				o.onStdout(line)
				return
			}
			stdout.WriteString(line)
			stdout.WriteByte('\n')
		},
	})
	r.lastResult = stdout.String()
	r.lastError = res.Stderr
	if err != nil {
		if strings.TrimSpace(r.lastError) == "" {
			r.lastError = err.Error()
		}
		return err
	}
	return nil
}

func (r *Repository) outputLocked(ctx context.Context, args ...string) (string, error) {
	if err := r.runLocked(ctx, args, runOpts{}); err != nil {
		return "", err
	}
	return r.lastResult, nil
}

// hasHeadLocked reports whether HEAD resolves to a commit.
func (r *Repository) hasHeadLocked(ctx context.Context) (bool, error) {
	err := r.runLocked(ctx, []string{"rev-parse", "-q", "--verify", "HEAD"}, runOpts{})
	if err == nil {
		return true, nil
	}
	if backend.ExitCode(err) == 1 {
		return false, nil
	}
	return false, err
}
