package backendtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitstate/internal/git/backend"
)

func TestRunner_OnceAndCalls(t *testing.T) {
	t.Parallel()

	fake := New()
	fake.Once([]string{"status"}, Response{Stdout: "first\n"})
	fake.On([]string{"status"}, Response{Stdout: "second\n"})

	var got []string
	collect := func(_ backend.Stream, line string) { got = append(got, line) }
	_, err := fake.Run(context.Background(), backend.Invocation{Args: []string{"status"}, OnLine: collect})
	require.NoError(t, err)
	_, err = fake.Run(context.Background(), backend.Invocation{Args: []string{"status", "-u"}, OnLine: collect})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, got)
	assert.Len(t, fake.CallsTo("status"), 2)

	_, err = fake.Run(context.Background(), backend.Invocation{Args: []string{"push"}})
	var launchErr *backend.LaunchError
	assert.True(t, errors.As(err, &launchErr))
}

func TestRunner_ExitCodeIsCommandError(t *testing.T) {
	t.Parallel()

	fake := New()
	fake.On([]string{"push"}, Response{Stderr: "rejected\n", ExitCode: 1})

	res, err := fake.Run(context.Background(), backend.Invocation{Args: []string{"push"}})
	require.ErrorIs(t, err, backend.ErrCommandFailed)
	assert.Equal(t, 1, backend.ExitCode(err))
	assert.Equal(t, "rejected\n", res.Stderr)
}
