package backend

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrToolNotFound reports that the requested program is not installed or
	// not on PATH. It is distinct from a command that ran and failed.
	ErrToolNotFound = errors.New("tool not found")

	// ErrCommandFailed matches every *CommandError.
	ErrCommandFailed = errors.New("command failed")
)

// LaunchError is returned when a process could not be started at all.
type LaunchError struct {
	Program string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Program, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

func (e *LaunchError) Is(target error) bool {
	return target == ErrToolNotFound && errors.Is(e.Err, exec.ErrNotFound)
}

// CommandError is returned when a process ran but exited with a non-zero code.
type CommandError struct {
	Program  string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: exit status %d", e.Program, subcommand(e.Args), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// ExitCode returns the exit code carried by err, or -1 when err is not a
// *CommandError.
func ExitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return -1
}

func subcommand(args []string) string {
	for _, arg := range args {
		if arg == "" || strings.HasPrefix(arg, "-") {
			continue
		}
		return arg
	}
	return strings.Join(args, " ")
}
