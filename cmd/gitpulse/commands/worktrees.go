package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

func (a *app) newWorktreesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worktrees",
		Short: "List linked worktrees with their branch and state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			worktrees, err := gitlib.Worktrees(cmd.Context(), a.repo())
			if err != nil {
				return fmt.Errorf("worktrees: %w", err)
			}

			return a.render.emit(worktrees, func(w io.Writer) error {
				return writeWorktrees(w, worktrees)
			})
		},
	}
}
