package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstate/internal/git/state"
	"github.com/thiagokokada/gitstate/internal/highlight"
)

func (a *app) colorEnabled() bool {
	if a.noColor {
		return false
	}
	f, ok := a.out().(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active branch and changed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			snap, err := repo.Snapshot(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			printStatus(a, snap)
			return nil
		},
	}
}

func printStatus(a *app, snap *state.Snapshot) {
	if b, ok := snap.ActiveBranch(); ok {
		line := "On branch " + b.FullName
		if b.IsHeadDetached {
			line = "HEAD detached at " + b.FullName
		}
		if b.Tracking != nil {
			line += " tracking " + b.Tracking.FullName
		}
		fmt.Fprintln(a.out(), line)
	} else {
		fmt.Fprintln(a.out(), "No commits yet")
	}
	if len(snap.Files) == 0 {
		fmt.Fprintln(a.out(), "nothing to commit, working tree clean")
		return
	}
	tw := tabwriter.NewWriter(a.out(), 0, 4, 2, ' ', 0)
	for _, f := range snap.Files {
		var notes []string
		if f.Conflict != state.ConflictNone {
			notes = append(notes, "conflict: "+f.Conflict.String())
		}
		if f.OrigPath != "" {
			notes = append(notes, "from "+f.OrigPath)
		}
		if f.IsLFS {
			notes = append(notes, "lfs")
		}
		if f.IsSubmodule {
			notes = append(notes, "submodule")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.State, f.Path, strings.Join(notes, ", "))
	}
	tw.Flush()
}

func newBranchesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "branches",
		Aliases: []string{"br"},
		Short:   "List local and remote branches",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			branches, err := repo.Branches(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			tw := tabwriter.NewWriter(a.out(), 0, 4, 2, ' ', 0)
			for _, b := range branches {
				marker := " "
				if b.IsActive {
					marker = "*"
				}
				var detail string
				switch {
				case b.HeadPointer != nil:
					detail = "-> " + b.HeadPointer.FullName
				case b.Tracking != nil:
					detail = "[" + b.Tracking.FullName + "]"
				case b.IsHeadDetached:
					detail = "(detached)"
				}
				fmt.Fprintf(tw, "%s %s\t%s\n", marker, b.FullName, detail)
			}
			return tw.Flush()
		},
	}
}

func newRemotesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remotes",
		Short: "List remotes and their URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			remotes, err := repo.Remotes(cmd.Context())
			if err != nil {
				return a.report(err)
			}
			tw := tabwriter.NewWriter(a.out(), 0, 4, 2, ' ', 0)
			for _, r := range remotes {
				fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.URL)
			}
			return tw.Flush()
		},
	}
}

func newDiffCmd(a *app) *cobra.Command {
	var staged bool
	cmd := &cobra.Command{
		Use:   "diff [path]",
		Short: "Show unstaged or staged changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			diff, err := repo.Diff(cmd.Context(), path, staged)
			if err != nil {
				return a.report(err)
			}
			return highlight.New(a.cfg.HighlightStyle, a.colorEnabled()).Diff(a.out(), diff)
		},
	}
	cmd.Flags().BoolVar(&staged, "staged", false, "show changes in the index")
	return cmd
}
