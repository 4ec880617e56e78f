package backend

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_StreamsLinesAndExitCode(t *testing.T) {
	t.Parallel()
	requireShell(t)

	var stdout, stderr []string
	r := NewExecRunner(nil)
	res, err := r.Run(context.Background(), Invocation{
		Program: "sh",
		Args:    []string{"-c", "printf 'a\\r\\nb\\n'; echo oops >&2"},
		OnLine: func(stream Stream, line string) {
			if stream == StreamStdout {
				stdout = append(stdout, line)
			} else {
				stderr = append(stderr, line)
			}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"a", "b"}, stdout)
	assert.Equal(t, []string{"oops"}, stderr)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestExecRunner_NonZeroExitIsCommandError(t *testing.T) {
	t.Parallel()
	requireShell(t)

	r := NewExecRunner(nil)
	res, err := r.Run(context.Background(), Invocation{
		Program: "sh",
		Args:    []string{"-c", "echo fatal >&2; exit 3"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommandFailed))
	assert.False(t, errors.Is(err, ErrToolNotFound))
	assert.Equal(t, 3, ExitCode(err))
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, err.Error(), "fatal")
}

func TestExecRunner_StdinAndRedirect(t *testing.T) {
	t.Parallel()
	requireShell(t)

	var out bytes.Buffer
	called := false
	r := NewExecRunner(nil)
	_, err := r.Run(context.Background(), Invocation{
		Program: "sh",
		Args:    []string{"-c", "cat"},
		Stdin:   strings.NewReader("pointer\n"),
		Stdout:  &out,
		OnLine: func(stream Stream, line string) {
			if stream == StreamStdout {
				called = true
			}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "pointer\n", out.String())
	assert.False(t, called, "redirected stdout must bypass the line callback")
}

func TestExecRunner_MissingTool(t *testing.T) {
	t.Parallel()

	r := NewExecRunner(nil)
	_, err := r.Run(context.Background(), Invocation{Program: "gitstate-definitely-not-installed"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
	var launchErr *LaunchError
	assert.True(t, errors.As(err, &launchErr))
	assert.Equal(t, -1, ExitCode(err))
}
