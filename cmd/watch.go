package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitstate/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the status again whenever the repository changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := a.open(ctx, nil)
			if err != nil {
				return err
			}
			show := func() {
				if err := repo.Refresh(ctx); err != nil {
					slog.Error("refresh failed", slog.Any("err", err))
					return
				}
				snap, err := repo.Snapshot(ctx)
				if err != nil {
					slog.Error("snapshot failed", slog.Any("err", err))
					return
				}
				fmt.Fprintf(a.out(), "--- %s\n", time.Now().Format(time.TimeOnly))
				printStatus(a, snap)
			}
			w, err := watch.New(repo.Path(), a.cfg.WatchDelay, show, slog.Default())
			if err != nil {
				return err
			}
			show()
			return w.Run(ctx)
		},
	}
}
