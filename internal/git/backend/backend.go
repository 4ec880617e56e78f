// Package backend runs external version-control tools as subprocesses.
//
// Callers describe a single invocation (program, arguments, working directory,
// optional stdin and stdout redirection) and receive output line by line
// through a callback. Success is decided by the exit code; stderr is kept as
// diagnostic text only.
package backend

import (
	"context"
	"io"
)

// DefaultProgram is the executable used when an Invocation leaves Program empty.
const DefaultProgram = "git"

// Runner executes one subprocess invocation and waits for it to exit.
//
// The default implementation shells out with os/exec, but the interface
// allows scripted implementations in tests without changing callers.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// Stream identifies which output stream a line was read from.
type Stream uint8

const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// LineFunc receives output lines without their trailing newline.
type LineFunc func(stream Stream, line string)

type Invocation struct {
	Program string
	Args    []string
	Dir     string
	// Env is appended to the current process environment.
	Env []string
	// Stdin, when set, is copied to the process and then closed.
	Stdin io.Reader
	// Stdout, when set, receives raw stdout instead of OnLine.
	Stdout io.Writer
	OnLine LineFunc
}

func (inv Invocation) program() string {
	if inv.Program == "" {
		return DefaultProgram
	}
	return inv.Program
}

type Result struct {
	ExitCode int
	Stderr   string
}
