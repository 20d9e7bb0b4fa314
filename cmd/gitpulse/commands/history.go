package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

const defaultLogLimit = 20

func (a *app) newFilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "files <commit> [<other>]",
		Short: "List the paths a commit changed, or the paths that differ between two commits",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, other, err := a.resolvePair(cmd.Context(), args)
			if err != nil {
				return err
			}

			items, err := gitlib.CommitFiles(cmd.Context(), a.repo(), id, other)
			if err != nil {
				return fmt.Errorf("files: %w", err)
			}

			return a.render.emit(items, func(w io.Writer) error {
				return writeStatusItems(w, items, "no changes")
			})
		},
	}
}

func (a *app) newDiffCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "diff <commit> [<other>]",
		Short: "Show the patches of a commit, or between two commits",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, other, err := a.resolvePair(cmd.Context(), args)
			if err != nil {
				return err
			}

			diffs, err := gitlib.FileDiffs(cmd.Context(), a.repo(), id, other, path)
			if err != nil {
				return fmt.Errorf("diff: %w", err)
			}

			return a.render.emit(diffs, func(w io.Writer) error {
				return writeFileDiffs(w, diffs)
			})
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "limit the diff to one path")

	return cmd
}

func (a *app) newLogCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log [<commit>]",
		Short: "List commits reachable from HEAD or the given commit, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rev string
			if len(args) > 0 {
				rev = args[0]
			}

			from, err := a.resolve(cmd.Context(), rev)
			if err != nil {
				return err
			}

			commits, err := gitlib.Log(cmd.Context(), a.repo(), from, limit)
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}

			return a.render.emit(commits, func(w io.Writer) error {
				return writeCommits(w, commits)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultLogLimit, "Maximum commits to list (0 = no limit)")

	return cmd
}
