package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstate/internal/git"
)

// repoCmd builds a command whose body only needs an open repository.
func repoCmd(a *app, c *cobra.Command, run func(cmd *cobra.Command, repo *git.Repository, args []string) error) *cobra.Command {
	c.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := a.open(cmd.Context(), nil)
		if err != nil {
			return err
		}
		return a.report(run(cmd, repo, args))
	}
	return c
}

func newStageCmd(a *app) *cobra.Command {
	return repoCmd(a, &cobra.Command{
		Use:   "stage [path...]",
		Short: "Stage paths, or every change when none are given",
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		return repo.Stage(cmd.Context(), args...)
	})
}

func newUnstageCmd(a *app) *cobra.Command {
	return repoCmd(a, &cobra.Command{
		Use:   "unstage [path...]",
		Short: "Remove paths from the index, or everything when none are given",
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		return repo.Unstage(cmd.Context(), args...)
	})
}

func newDiscardCmd(a *app) *cobra.Command {
	return repoCmd(a, &cobra.Command{
		Use:   "discard <path>...",
		Short: "Drop working tree changes; untracked files are deleted",
		Args:  cobra.MinimumNArgs(1),
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		return repo.Discard(cmd.Context(), args...)
	})
}

func newCommitCmd(a *app) *cobra.Command {
	var message string
	cmd := repoCmd(a, &cobra.Command{
		Use:   "commit -m <message>",
		Short: "Record the staged changes",
		Args:  cobra.NoArgs,
	}, func(cmd *cobra.Command, repo *git.Repository, _ []string) error {
		return repo.Commit(cmd.Context(), message)
	})
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	return repoCmd(a, &cobra.Command{
		Use:   "fetch [remote]",
		Short: "Fetch one remote, or all of them",
		Args:  cobra.MaximumNArgs(1),
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		var remote string
		if len(args) == 1 {
			remote = args[0]
		}
		return repo.Fetch(cmd.Context(), remote)
	})
}

func newPullCmd(a *app) *cobra.Command {
	return repoCmd(a, &cobra.Command{
		Use:   "pull",
		Short: "Merge the upstream of the active branch",
		Args:  cobra.NoArgs,
	}, func(cmd *cobra.Command, repo *git.Repository, _ []string) error {
		return repo.Pull(cmd.Context())
	})
}

func newPushCmd(a *app) *cobra.Command {
	var opts git.PushOptions
	cmd := repoCmd(a, &cobra.Command{
		Use:   "push [remote] [branch]",
		Short: "Push the active branch",
		Args:  cobra.MaximumNArgs(2),
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		if len(args) > 0 {
			opts.Remote = args[0]
		}
		if len(args) > 1 {
			opts.Branch = args[1]
		}
		return repo.Push(cmd.Context(), opts)
	})
	cmd.Flags().BoolVarP(&opts.SetUpstream, "set-upstream", "u", false, "record the pushed branch as upstream")
	cmd.Flags().BoolVar(&opts.ForceWithLease, "force-with-lease", false, "overwrite the remote branch if it has not moved")
	return cmd
}

func newCheckoutCmd(a *app) *cobra.Command {
	return repoCmd(a, &cobra.Command{
		Use:     "checkout <branch>",
		Aliases: []string{"co"},
		Short:   "Switch branches; a remote branch gets a tracking local branch",
		Args:    cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		return repo.CheckoutName(cmd.Context(), args[0])
	})
}

func newBranchCmd(a *app) *cobra.Command {
	branch := &cobra.Command{
		Use:   "branch",
		Short: "Create or delete branches",
	}

	var checkout bool
	create := repoCmd(a, &cobra.Command{
		Use:   "create <name> [start]",
		Short: "Create a branch",
		Args:  cobra.RangeArgs(1, 2),
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		var start string
		if len(args) == 2 {
			start = args[1]
		}
		return repo.CreateBranch(cmd.Context(), args[0], start, checkout)
	})
	create.Flags().BoolVarP(&checkout, "checkout", "c", false, "switch to the new branch")

	var force bool
	del := repoCmd(a, &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a local branch",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		return repo.DeleteBranch(cmd.Context(), args[0], force)
	})
	del.Flags().BoolVarP(&force, "force", "D", false, "delete even if not merged")

	branch.AddCommand(create, del)
	return branch
}

func newMergeCmd(a *app) *cobra.Command {
	var abort bool
	cmd := repoCmd(a, &cobra.Command{
		Use:   "merge <branch> | --abort",
		Short: "Merge a branch into the active one",
		Args: func(cmd *cobra.Command, args []string) error {
			if abort {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		if abort {
			return repo.AbortMerge(cmd.Context())
		}
		return repo.Merge(cmd.Context(), args[0])
	})
	cmd.Flags().BoolVar(&abort, "abort", false, "abort the merge in progress")
	return cmd
}

func newPruneCmd(a *app) *cobra.Command {
	return repoCmd(a, &cobra.Command{
		Use:   "prune [remote]",
		Short: "Delete remote-tracking branches gone from the remote",
		Args:  cobra.MaximumNArgs(1),
	}, func(cmd *cobra.Command, repo *git.Repository, args []string) error {
		var remote string
		if len(args) == 1 {
			remote = args[0]
		}
		err := repo.Prune(cmd.Context(), remote)
		if err == nil {
			fmt.Fprint(a.out(), repo.LastResult())
		}
		return err
	})
}

var errNoDecider = errors.New("not a terminal: pass --ours or --theirs")
