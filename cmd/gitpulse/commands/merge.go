package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

func (a *app) newMergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge-ff [<branch>]",
		Short: "Fast-forward the checked-out branch to its upstream",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var branch string
			if len(args) > 0 {
				branch = args[0]
			} else {
				head, err := gitlib.HeadBranch(ctx, a.repo())
				if err != nil {
					return fmt.Errorf("merge-ff: %w", err)
				}

				branch = head
			}

			err := gitlib.MergeUpstreamFastForward(ctx, a.repo(), branch)

			switch {
			case errors.Is(err, gitlib.ErrAlreadyUpToDate):
				return a.render.message(branch + " is already up to date")
			case err != nil:
				a.logger().DebugContext(ctx, "fast-forward refused",
					slog.String("branch", branch),
					slog.Bool("configuration", gitlib.IsConfigurationError(err)),
				)

				return fmt.Errorf("merge-ff %s: %w", branch, err)
			}

			return a.render.message("fast-forwarded " + branch)
		},
	}
}
