// Package backendtest provides a scripted backend.Runner for tests.
package backendtest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/thiagokokada/gitstate/internal/git/backend"
)

// Response is the scripted outcome of one matched invocation.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// LaunchErr simulates a process that could not be started.
	LaunchErr error
	// Do runs before output is delivered; tests use it to mutate files the
	// way the real tool would.
	Do func(inv backend.Invocation) error
}

// Call records one invocation seen by a Runner.
type Call struct {
	Program string
	Args    []string
	Dir     string
	Stdin   string
}

type fakeRule struct {
	prefix []string
	resp   Response
	once   bool
	used   bool
}

// Runner replays scripted responses, matching rules by argument prefix in
// registration order. Unmatched invocations fail with a launch error so tests
// notice unexpected commands.
type Runner struct {
	mu    sync.Mutex
	rules []*fakeRule
	calls []Call
}

func New() *Runner {
	return &Runner{}
}

// On registers a response for every invocation whose arguments start with prefix.
func (f *Runner) On(prefix []string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &fakeRule{prefix: slices.Clone(prefix), resp: resp})
}

// Once registers a response that is consumed by the first matching invocation.
func (f *Runner) Once(prefix []string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &fakeRule{prefix: slices.Clone(prefix), resp: resp, once: true})
}

func (f *Runner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns recorded calls whose arguments start with prefix.
func (f *Runner) CallsTo(prefix ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, call := range f.calls {
		if hasPrefix(call.Args, prefix) {
			out = append(out, call)
		}
	}
	return out
}

func (f *Runner) match(args []string) (Response, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Pending Once rules win over On rules so a test can script a sequence
	// on top of a steady default.
	for _, once := range []bool{true, false} {
		for _, rule := range f.rules {
			if rule.once != once || (rule.once && rule.used) {
				continue
			}
			if hasPrefix(args, rule.prefix) {
				rule.used = true
				return rule.resp, true
			}
		}
	}
	return Response{}, false
}

func (f *Runner) Run(ctx context.Context, inv backend.Invocation) (backend.Result, error) {
	program := inv.Program
	if program == "" {
		program = backend.DefaultProgram
	}
	call := Call{Program: program, Args: slices.Clone(inv.Args), Dir: inv.Dir}
	if inv.Stdin != nil {
		data, err := io.ReadAll(inv.Stdin)
		if err != nil {
			return backend.Result{}, err
		}
		call.Stdin = string(data)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return backend.Result{}, err
	}
	resp, ok := f.match(inv.Args)
	if !ok {
		return backend.Result{}, &backend.LaunchError{Program: program, Err: fmt.Errorf("no scripted response for %q", strings.Join(inv.Args, " "))}
	}
	if resp.LaunchErr != nil {
		return backend.Result{}, &backend.LaunchError{Program: program, Err: resp.LaunchErr}
	}
	if resp.Do != nil {
		if err := resp.Do(inv); err != nil {
			return backend.Result{}, err
		}
	}
	if inv.Stdout != nil {
		if _, err := io.WriteString(inv.Stdout, resp.Stdout); err != nil {
			return backend.Result{}, err
		}
	} else {
		emitLines(inv.OnLine, backend.StreamStdout, resp.Stdout)
	}
	emitLines(inv.OnLine, backend.StreamStderr, resp.Stderr)

	res := backend.Result{ExitCode: resp.ExitCode, Stderr: resp.Stderr}
	if resp.ExitCode != 0 {
		return res, &backend.CommandError{Program: program, Args: call.Args, ExitCode: resp.ExitCode, Stderr: resp.Stderr}
	}
	return res, nil
}

func emitLines(fn backend.LineFunc, stream backend.Stream, text string) {
	if fn == nil || text == "" {
		return
	}
	text = strings.TrimSuffix(text, "\n")
	for _, line := range strings.Split(text, "\n") {
		fn(stream, strings.TrimRight(line, "\r"))
	}
}

func hasPrefix(args, prefix []string) bool {
	if len(args) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if args[i] != p {
			return false
		}
	}
	return true
}

var _ backend.Runner = (*Runner)(nil)
