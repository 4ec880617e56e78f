// Package mergetool launches an external interactive merge program.
package mergetool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/thiagokokada/gitstate/internal/git/backend"
	"github.com/thiagokokada/gitstate/internal/git/conflict"
)

var placeholders = []string{"$LOCAL", "$BASE", "$REMOTE", "$MERGED"}

// Tool is a parsed command template such as
// "meld $LOCAL $BASE $REMOTE --output $MERGED". A template without any
// placeholder gets the local, base and remote files appended in that order.
type Tool struct {
	argv   []string
	runner backend.Runner
	dir    string
	stdin  io.Reader
	stdout io.Writer
	log    *slog.Logger
}

type Option func(*Tool)

func WithRunner(r backend.Runner) Option {
	return func(t *Tool) { t.runner = r }
}

func WithDir(dir string) Option {
	return func(t *Tool) { t.dir = dir }
}

// WithTerminal connects the tool to the controlling terminal, for console
// merge programs such as vimdiff.
func WithTerminal() Option {
	return func(t *Tool) {
		t.stdin = os.Stdin
		t.stdout = os.Stdout
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tool) {
		if l != nil {
			t.log = l
		}
	}
}

func Parse(template string, opts ...Option) (*Tool, error) {
	argv, err := shellquote.Split(template)
	if err != nil {
		return nil, fmt.Errorf("parse merge tool %q: %w", template, err)
	}
	if len(argv) == 0 {
		return nil, errors.New("merge tool command is empty")
	}
	t := &Tool{argv: argv, log: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	if t.runner == nil {
		t.runner = backend.NewExecRunner(t.log)
	}
	return t, nil
}

// Args expands the template for files.
func (t *Tool) Args(files conflict.MergeFiles) []string {
	r := strings.NewReplacer(
		"${LOCAL}", files.Local, "$LOCAL", files.Local,
		"${BASE}", files.Base, "$BASE", files.Base,
		"${REMOTE}", files.Remote, "$REMOTE", files.Remote,
		"${MERGED}", files.Merged, "$MERGED", files.Merged,
	)
	args := make([]string, 0, len(t.argv)+2)
	substituted := false
	for _, a := range t.argv {
		for _, p := range placeholders {
			if strings.Contains(a, p) || strings.Contains(a, "${"+p[1:]+"}") {
				substituted = true
				break
			}
		}
		args = append(args, r.Replace(a))
	}
	if !substituted {
		args = append(args, files.Local, files.Base, files.Remote)
	}
	return args
}

// Merge runs the tool and waits for it. Only a failure to start is an
// error; the exit status of a merge program carries no reliable meaning.
func (t *Tool) Merge(ctx context.Context, files conflict.MergeFiles) error {
	args := t.Args(files)
	t.log.Debug("launch merge tool", slog.Any("argv", args))
	_, err := t.runner.Run(ctx, backend.Invocation{
		Program: args[0],
		Args:    args[1:],
		Dir:     t.dir,
		Stdin:   t.stdin,
		Stdout:  t.stdout,
	})
	if err != nil && errors.Is(err, backend.ErrCommandFailed) {
		t.log.Debug("merge tool exited with non-zero status", slog.Int("exit_code", backend.ExitCode(err)))
		return nil
	}
	return err
}

var _ conflict.MergeTool = (*Tool)(nil)
