package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstate/internal/git/conflict"
	"github.com/thiagokokada/gitstate/internal/highlight"
	"github.com/thiagokokada/gitstate/internal/prompt"
)

type resolveFlags struct {
	ours, theirs bool
	accept       bool
	showDiff     bool
}

func (a *app) decider(f resolveFlags) (conflict.Decider, error) {
	switch {
	case f.ours && f.theirs:
		return nil, errors.New("--ours and --theirs are mutually exclusive")
	case f.ours:
		return conflict.Fixed(conflict.KeepMine, f.accept), nil
	case f.theirs:
		return conflict.Fixed(conflict.UseTheirs, f.accept), nil
	case a.deps.Decider != nil:
		return a.deps.Decider, nil
	}
	if a.deps.Interactive != nil && !*a.deps.Interactive {
		return nil, errNoDecider
	}
	d, err := prompt.New()
	if errors.Is(err, prompt.ErrNotTerminal) {
		return nil, errNoDecider
	}
	return d, err
}

func newResolveCmd(a *app) *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "resolve [path...]",
		Short: "Resolve merge conflicts one file at a time",
		Long: `Resolve merge conflicts one file at a time.

Without paths every conflicted file is visited in order until one fails or
the resolution is cancelled. Text conflicts can be handed to the configured
merge_tool; binary and add/delete conflicts pick one side.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			decider, err := a.decider(f)
			if err != nil {
				return err
			}
			repo, err := a.open(cmd.Context(), decider)
			if err != nil {
				return err
			}

			var results []conflict.Result
			if len(args) == 0 {
				results, err = repo.ResolveAll(cmd.Context())
			} else {
				for _, path := range args {
					var res conflict.Result
					res, err = repo.ResolveConflict(cmd.Context(), path)
					if err != nil {
						break
					}
					results = append(results, res)
					if res.Outcome == conflict.Cancelled {
						break
					}
				}
			}
			hl := highlight.New(a.cfg.HighlightStyle, a.colorEnabled())
			for _, res := range results {
				if res.Decision != 0 {
					fmt.Fprintf(a.out(), "%s: %s (%s)\n", res.Path, res.Outcome, res.Decision)
				} else {
					fmt.Fprintf(a.out(), "%s: %s\n", res.Path, res.Outcome)
				}
				if f.showDiff && res.Diff != "" {
					if err := hl.Diff(a.out(), res.Diff); err != nil {
						return err
					}
				}
			}
			if len(results) == 0 && err == nil {
				fmt.Fprintln(a.out(), "no conflicts")
			}
			return a.report(err)
		},
	}
	cmd.Flags().BoolVar(&f.ours, "ours", false, "keep our side of every conflict")
	cmd.Flags().BoolVar(&f.theirs, "theirs", false, "take their side of every conflict")
	cmd.Flags().BoolVar(&f.accept, "accept-unmodified", false, "stage merge tool results even when the tool changed nothing")
	cmd.Flags().BoolVar(&f.showDiff, "show-diff", false, "print the diff of each resolved file")
	return cmd
}
