// Package cmd is the gitstate command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstate/internal/buildinfo"
	"github.com/thiagokokada/gitstate/internal/config"
	"github.com/thiagokokada/gitstate/internal/git"
	"github.com/thiagokokada/gitstate/internal/git/backend"
	"github.com/thiagokokada/gitstate/internal/git/conflict"
	"github.com/thiagokokada/gitstate/internal/lfs"
	"github.com/thiagokokada/gitstate/internal/logging"
	"github.com/thiagokokada/gitstate/internal/mergetool"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd(Deps{}).ExecuteContext(ctx)
}

// Deps lets tests replace the process and terminal edges.
type Deps struct {
	Runner  backend.Runner
	Decider conflict.Decider
	Stdout  io.Writer
	Stderr  io.Writer
	// Interactive overrides terminal detection when set.
	Interactive *bool
}

type app struct {
	deps       Deps
	repoPath   string
	configPath string
	verbose    bool
	noColor    bool

	cfg       config.Config
	logCloser io.Closer
	repo      *git.Repository
}

func (a *app) out() io.Writer { return a.deps.Stdout }

// NewRootCmd builds the command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	a := &app{deps: deps}

	root := &cobra.Command{
		Use:           "gitstate",
		Short:         "Inspect and change the state of a git work tree",
		Version:       buildinfo.VersionWithTags(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}
	root.SetOut(deps.Stdout)
	root.SetErr(deps.Stderr)
	root.PersistentFlags().StringVarP(&a.repoPath, "repo", "C", ".", "path inside the repository")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newVersionCmd(a),
		newStatusCmd(a),
		newBranchesCmd(a),
		newRemotesCmd(a),
		newDiffCmd(a),
		newStageCmd(a),
		newUnstageCmd(a),
		newDiscardCmd(a),
		newCommitCmd(a),
		newFetchCmd(a),
		newPullCmd(a),
		newPushCmd(a),
		newCheckoutCmd(a),
		newBranchCmd(a),
		newMergeCmd(a),
		newPruneCmd(a),
		newResolveCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	closer, err := logging.Setup(cfg.Log, a.verbose, a.deps.Stderr)
	if err != nil {
		return err
	}
	a.logCloser = closer
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}

func (a *app) runner() backend.Runner {
	if a.deps.Runner == nil {
		a.deps.Runner = backend.NewExecRunner(slog.Default())
	}
	return a.deps.Runner
}

// open builds the repository handle from the configuration. decider may be
// nil for commands that never resolve conflicts.
func (a *app) open(ctx context.Context, decider conflict.Decider) (*git.Repository, error) {
	root, err := git.FindRoot(a.repoPath)
	if err != nil {
		return nil, err
	}
	opts := []git.Option{
		git.WithRunner(a.runner()),
		git.WithProgram(a.cfg.Git),
		git.WithBinaryThreshold(a.cfg.BinaryThreshold),
		git.WithShowIgnored(a.cfg.ShowIgnored),
	}
	if a.cfg.LFS {
		opts = append(opts, git.WithLFS(lfs.New(a.runner(), a.cfg.Git, root, slog.Default())))
	}
	if a.cfg.MergeTool != "" {
		tool, err := mergetool.Parse(a.cfg.MergeTool,
			mergetool.WithRunner(a.runner()),
			mergetool.WithDir(root),
			mergetool.WithTerminal(),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, git.WithMergeTool(tool))
	}
	if decider != nil {
		opts = append(opts, git.WithDecider(decider))
	}
	repo, err := git.Open(ctx, root, opts...)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	return repo, nil
}

// report prints what git said about a failed command before returning err.
func (a *app) report(err error) error {
	if err == nil || a.repo == nil {
		return err
	}
	var mc *git.MergeConflictError
	if errors.As(err, &mc) {
		fmt.Fprintf(a.deps.Stderr, "merge of %s stopped on conflicts:\n", mc.Ref)
		for _, p := range mc.Paths {
			fmt.Fprintf(a.deps.Stderr, "\t%s\n", p)
		}
		fmt.Fprintln(a.deps.Stderr, "run \"gitstate resolve\" to resolve them")
		return err
	}
	if errors.Is(err, backend.ErrCommandFailed) {
		if msg := a.repo.LastError(); msg != "" {
			fmt.Fprint(a.deps.Stderr, msg)
		}
	}
	return err
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(a.out(), "gitstate %s\n", buildinfo.VersionWithTags())
			if v, err := backend.DetectVersion(cmd.Context(), a.runner(), a.cfg.Git); err == nil {
				fmt.Fprintf(a.out(), "git %s\n", v)
			}
			return nil
		},
	}
}
