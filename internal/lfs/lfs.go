// Package lfs talks to the git-lfs extension.
package lfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/thiagokokada/gitstate/internal/git/backend"
)

const (
	trackedHeader  = "Listing tracked patterns"
	excludedHeader = "Listing excluded patterns"
)

type Client struct {
	runner  backend.Runner
	program string
	dir     string
	log     *slog.Logger
}

func New(runner backend.Runner, program, dir string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{runner: runner, program: program, dir: dir, log: log.With(slog.String("component", "lfs"))}
}

// TrackedExtensions returns the extensions (".psd") of "*.ext" patterns
// from "git lfs track". A repository without lfs yields no extensions.
func (c *Client) TrackedExtensions(ctx context.Context) ([]string, error) {
	var lines []string
	_, err := c.runner.Run(ctx, backend.Invocation{
		Program: c.program,
		Args:    []string{"lfs", "track"},
		Dir:     c.dir,
		OnLine: func(stream backend.Stream, line string) {
			if stream == backend.StreamStdout {
				lines = append(lines, line)
			}
		},
	})
	if err != nil {
		// "git: 'lfs' is not a git command" exits 1.
		if backend.ExitCode(err) == 1 {
			c.log.Debug("git lfs unavailable", slog.Any("err", err))
			return nil, nil
		}
		return nil, fmt.Errorf("lfs track: %w", err)
	}
	return ParseTrackedExtensions(lines), nil
}

// ParseTrackedExtensions reads the tracked section of "git lfs track" output.
func ParseTrackedExtensions(lines []string) []string {
	var exts []string
	inTracked := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, trackedHeader):
			inTracked = true
			continue
		case strings.HasPrefix(trimmed, excludedHeader):
			inTracked = false
			continue
		}
		if !inTracked || trimmed == "" {
			continue
		}
		// "    *.psd (.gitattributes)"
		pattern, _, _ := strings.Cut(trimmed, " ")
		pattern = path.Base(pattern)
		if !strings.HasPrefix(pattern, "*.") {
			continue
		}
		ext := strings.ToLower(pattern[1:])
		if strings.ContainsAny(ext, "*?[") || slices.Contains(exts, ext) {
			continue
		}
		exts = append(exts, ext)
	}
	return exts
}

// Smudge converts pointer text into the object content and writes it to dst.
func (c *Client) Smudge(ctx context.Context, pointer io.Reader, dst io.Writer) error {
	_, err := c.runner.Run(ctx, backend.Invocation{
		Program: c.program,
		Args:    []string{"lfs", "smudge"},
		Dir:     c.dir,
		Stdin:   pointer,
		Stdout:  dst,
	})
	if err != nil {
		return fmt.Errorf("lfs smudge: %w", err)
	}
	return nil
}
