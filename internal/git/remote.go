package git

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thiagokokada/gitstate/internal/git/backend"
	"github.com/thiagokokada/gitstate/internal/git/state"
)

// RemoteResolver fills RemoteRef URLs with one config lookup per remote.
type RemoteResolver struct {
	Runner  backend.Runner
	Program string
	Dir     string
	Env     []string
	Log     *slog.Logger
}

// Resolve sets URL on each remote. Lookups run one after another in the
// order given: they share the repository and must not overlap. A remote
// without a configured URL keeps an empty URL.
func (r *RemoteResolver) Resolve(ctx context.Context, remotes []*state.RemoteRef) error {
	seen := make(map[string]string, len(remotes))
	for _, remote := range remotes {
		if remote == nil || remote.Name == "" {
			continue
		}
		if url, ok := seen[remote.Name]; ok {
			remote.URL = url
			continue
		}
		url, err := r.lookup(ctx, remote.Name)
		if err != nil {
			return err
		}
		seen[remote.Name] = url
		remote.URL = url
	}
	return nil
}

func (r *RemoteResolver) lookup(ctx context.Context, name string) (string, error) {
	var out strings.Builder
	_, err := r.Runner.Run(ctx, backend.Invocation{
		Program: r.Program,
		Args:    []string{"config", "--get", "remote." + name + ".url"},
		Dir:     r.Dir,
		Env:     r.Env,
		OnLine: func(stream backend.Stream, line string) {
			if stream == backend.StreamStdout && out.Len() == 0 {
				out.WriteString(line)
			}
		},
	})
	if err != nil {
		// config --get exits 1 when the key is unset.
		if backend.ExitCode(err) == 1 {
			if r.Log != nil {
				r.Log.Debug("remote has no url", slog.String("remote", name))
			}
			return "", nil
		}
		return "", fmt.Errorf("resolve remote %q: %w", name, err)
	}
	return strings.TrimSpace(out.String()), nil
}
