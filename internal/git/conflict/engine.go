// Package conflict resolves merge conflicts one file at a time.
//
// For each conflicted path the engine exports both sides of the merge next
// to the working file, asks a Decider what to do, applies the answer and
// stages or removes the path. Temporary files never outlive a call.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/zeebo/xxh3"

	"github.com/thiagokokada/gitstate/internal/git/state"
)

// DefaultBinaryThreshold is the size above which an export is treated as binary.
const DefaultBinaryThreshold int64 = 8 << 20

var (
	ErrNoDecider       = errors.New("no conflict decision provider")
	ErrInvalidDecision = errors.New("decision not offered")
	ErrNoMergeTool     = errors.New("no merge tool configured")
	ErrNotConflicted   = errors.New("path is not conflicted")
)

type Side uint8

const (
	Ours Side = iota
	Theirs
)

func (s Side) String() string {
	if s == Theirs {
		return "theirs"
	}
	return "ours"
}

// Git is the repository access the engine needs.
type Git interface {
	// Export writes one side of entry into dst.
	Export(ctx context.Context, entry state.FileEntry, side Side, dst string) error
	Stage(ctx context.Context, path string) error
	Remove(ctx context.Context, path string) error
}

type MergeFiles struct {
	Local  string
	Base   string
	Remote string
	Merged string
}

// MergeTool runs an interactive merge and returns once it exits.
type MergeTool interface {
	Merge(ctx context.Context, files MergeFiles) error
}

type Outcome uint8

const (
	Unresolved Outcome = iota
	Staged
	Removed
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Staged:
		return "staged"
	case Removed:
		return "removed"
	case Cancelled:
		return "cancelled"
	default:
		return "unresolved"
	}
}

type Result struct {
	Path     string
	Outcome  Outcome
	Decision Decision
	// Diff is a unified diff from the conflicted working file to the staged
	// content. It is empty for binary and removed files.
	Diff string
}

type Engine struct {
	root            string
	git             Git
	decider         Decider
	tool            MergeTool
	binaryThreshold int64
	log             *slog.Logger
}

type Option func(*Engine)

func WithDecider(d Decider) Option {
	return func(e *Engine) { e.decider = d }
}

func WithMergeTool(t MergeTool) Option {
	return func(e *Engine) { e.tool = t }
}

func WithBinaryThreshold(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.binaryThreshold = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an engine for the work tree at root.
func New(root string, git Git, opts ...Option) *Engine {
	e := &Engine{
		root:            root,
		git:             git,
		binaryThreshold: DefaultBinaryThreshold,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(slog.String("component", "conflict"))
	return e
}

type tempFiles struct {
	base, ours, theirs string
}

func newTempFiles(work string) tempFiles {
	return tempFiles{base: work + ".base", ours: work + ".ours", theirs: work + ".theirs"}
}

func (t tempFiles) cleanup(log *slog.Logger) {
	for _, p := range []string{t.base, t.ours, t.theirs} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn("remove temp file", slog.String("file", p), slog.Any("err", err))
		}
	}
}

// Resolve runs the resolution of one conflicted entry. On error the working
// file is left as it was.
func (e *Engine) Resolve(ctx context.Context, entry state.FileEntry) (res Result, err error) {
	res = Result{Path: entry.Path}
	if !entry.IsConflicted() {
		return res, fmt.Errorf("%s: %w", entry.Path, ErrNotConflicted)
	}
	log := e.log.With(slog.String("resolution", uuid.NewString()), slog.String("path", entry.Path))
	log.Debug("resolve start", slog.String("kind", entry.Conflict.String()))
	defer func() {
		if err != nil {
			log.Warn("resolve failed", slog.Any("err", err))
			return
		}
		log.Info("resolve done", slog.String("outcome", res.Outcome.String()), slog.String("decision", res.Decision.String()))
	}()

	if entry.Conflict == state.ConflictDeletedByBoth {
		if err := e.git.Remove(ctx, entry.Path); err != nil {
			return res, err
		}
		res.Outcome = Removed
		return res, nil
	}
	if e.decider == nil {
		return res, ErrNoDecider
	}

	kind := entry.Conflict
	if kind == state.ConflictNone {
		kind = state.ConflictChanges
	}
	work := filepath.Join(e.root, filepath.FromSlash(entry.Path))
	tmp := newTempFiles(work)
	defer tmp.cleanup(log)

	if kind.HasOurs() {
		if err := e.git.Export(ctx, entry, Ours, tmp.ours); err != nil {
			return res, fmt.Errorf("export ours: %w", err)
		}
	}
	if kind.HasTheirs() {
		if err := e.git.Export(ctx, entry, Theirs, tmp.theirs); err != nil {
			return res, fmt.Errorf("export theirs: %w", err)
		}
	}

	binary := kind != state.ConflictChanges
	for _, p := range []string{tmp.ours, tmp.theirs} {
		if binary {
			break
		}
		if binary, err = isBinary(p, e.binaryThreshold); err != nil {
			return res, err
		}
	}
	if binary {
		return e.resolveBinary(ctx, entry.Path, kind, work, tmp, res)
	}
	return e.resolveText(ctx, entry.Path, work, tmp, res, log)
}

func (e *Engine) ask(ctx context.Context, p Prompt) (Decision, error) {
	d, err := e.decider.Decide(ctx, p)
	if err != nil {
		return 0, err
	}
	if !p.Allows(d) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDecision, d)
	}
	return d, nil
}

func (e *Engine) resolveBinary(ctx context.Context, path string, kind state.ConflictKind, work string, tmp tempFiles, res Result) (Result, error) {
	d, err := e.ask(ctx, Prompt{Path: path, Kind: kind, Binary: true, Options: []Decision{KeepMine, UseTheirs, Cancel}})
	if err != nil {
		return res, err
	}
	res.Decision = d

	var src string
	switch d {
	case Cancel:
		res.Outcome = Cancelled
		return res, nil
	case KeepMine:
		if !kind.HasOurs() {
			return e.remove(ctx, path, res)
		}
		src = tmp.ours
	case UseTheirs:
		if !kind.HasTheirs() {
			return e.remove(ctx, path, res)
		}
		src = tmp.theirs
	}

	// The base slot is unused on this path; it holds the original working
	// file so it can be put back if staging fails.
	hadWork := true
	if err := copyFile(tmp.base, work); os.IsNotExist(err) {
		hadWork = false
	} else if err != nil {
		return res, fmt.Errorf("back up %s: %w", path, err)
	}
	if err := copyFile(work, src); err != nil {
		return res, e.restore(work, tmp.base, hadWork, err)
	}
	if err := e.git.Stage(ctx, path); err != nil {
		return res, e.restore(work, tmp.base, hadWork, err)
	}
	res.Outcome = Staged
	return res, nil
}

func (e *Engine) restore(work, backup string, hadWork bool, cause error) error {
	var err error
	if hadWork {
		err = copyFile(work, backup)
	} else {
		err = os.Remove(work)
		if os.IsNotExist(err) {
			err = nil
		}
	}
	if err != nil {
		return errors.Join(cause, fmt.Errorf("restore working file: %w", err))
	}
	return cause
}

func (e *Engine) remove(ctx context.Context, path string, res Result) (Result, error) {
	if err := e.git.Remove(ctx, path); err != nil {
		return res, err
	}
	res.Outcome = Removed
	return res, nil
}

func (e *Engine) resolveText(ctx context.Context, path string, work string, tmp tempFiles, res Result, log *slog.Logger) (Result, error) {
	orig, err := os.ReadFile(work)
	if err != nil {
		return res, err
	}
	base, found := stripConflictMarkers(orig)
	if !found {
		log.Debug("no conflict markers, using working file as base")
	}
	if err := os.WriteFile(tmp.base, base, 0o600); err != nil {
		return res, err
	}
	before := xxh3.Hash(base)

	options := []Decision{KeepMine, UseTheirs}
	if e.tool != nil {
		options = append(options, RunMergeTool)
	}
	options = append(options, Cancel)
	d, err := e.ask(ctx, Prompt{Path: path, Kind: state.ConflictChanges, Options: options})
	if err != nil {
		return res, err
	}
	res.Decision = d

	switch d {
	case Cancel:
		res.Outcome = Cancelled
		return res, nil
	case KeepMine:
		err = copyFile(tmp.base, tmp.ours)
	case UseTheirs:
		err = copyFile(tmp.base, tmp.theirs)
	case RunMergeTool:
		err = e.tool.Merge(ctx, MergeFiles{Local: tmp.ours, Base: tmp.base, Remote: tmp.theirs, Merged: tmp.base})
		if err != nil {
			return res, fmt.Errorf("merge tool: %w", err)
		}
		merged, rerr := os.ReadFile(tmp.base)
		if rerr != nil {
			return res, rerr
		}
		if xxh3.Hash(merged) == before {
			accept, aerr := e.decider.AcceptUnmodified(ctx, path)
			if aerr != nil {
				return res, aerr
			}
			if !accept {
				res.Outcome = Unresolved
				return res, nil
			}
		}
	}
	if err != nil {
		return res, err
	}

	resolved, err := os.ReadFile(tmp.base)
	if err != nil {
		return res, err
	}
	if err := copyFile(work, tmp.base); err != nil {
		return res, e.restoreBytes(work, orig, err)
	}
	if err := e.git.Stage(ctx, path); err != nil {
		return res, e.restoreBytes(work, orig, err)
	}
	res.Outcome = Staged
	res.Diff = unifiedDiff(path, orig, resolved)
	return res, nil
}

func (e *Engine) restoreBytes(work string, orig []byte, cause error) error {
	if err := os.WriteFile(work, orig, 0o644); err != nil {
		return errors.Join(cause, fmt.Errorf("restore working file: %w", err))
	}
	return cause
}

// ResolveAll resolves entries in order and stops at the first error or
// Cancel. Results of files handled before that are kept.
func (e *Engine) ResolveAll(ctx context.Context, entries []state.FileEntry) ([]Result, error) {
	var results []Result
	for _, entry := range entries {
		if !entry.IsConflicted() {
			continue
		}
		res, err := e.Resolve(ctx, entry)
		if err != nil {
			return results, fmt.Errorf("resolve %s: %w", entry.Path, err)
		}
		results = append(results, res)
		if res.Outcome == Cancelled {
			break
		}
	}
	return results, nil
}

func unifiedDiff(path string, from, to []byte) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(from)),
		B:        difflib.SplitLines(string(to)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return text
}

// copyFile replaces dst's content with src's, keeping dst's mode when it exists.
func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
