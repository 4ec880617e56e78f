package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitstate/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

// Setup replaces the default logger, so these tests do not run in parallel.

func TestSetup_Stderr(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	closer, err := Setup(config.Log{Level: "warn"}, false, &buf)
	require.NoError(t, err)
	defer closer.Close()

	slog.Info("hidden")
	slog.Warn("shown", slog.String("repo", "/r"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown repo=/r")

	buf.Reset()
	_, err = Setup(config.Log{Level: "warn"}, true, &buf)
	require.NoError(t, err)
	slog.Debug("verbose")
	assert.Contains(t, buf.String(), "msg=verbose")
}

func TestSetup_File(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "gitstate.log")
	var stderr bytes.Buffer
	closer, err := Setup(config.Log{File: path, Level: "info", MaxSizeMB: 1}, false, &stderr)
	require.NoError(t, err)

	slog.Info("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=\"to file\"")
	assert.Empty(t, stderr.String())
}
