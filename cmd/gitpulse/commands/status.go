package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// ErrConfirmRequired is returned when a destructive command runs without --yes.
var ErrConfirmRequired = errors.New("refusing to discard changes without --yes")

type statusOptions struct {
	scope     string
	untracked string
}

// policy returns the --untracked override, or the configured policy.
func (a *app) policy(flag string) (gitlib.UntrackedPolicy, error) {
	if flag == "" {
		return a.cfg.UntrackedPolicy(), nil
	}

	policy, err := gitlib.ParseUntrackedPolicy(flag)
	if err != nil {
		return policy, fmt.Errorf("--untracked: %w", err)
	}

	return policy, nil
}

func (a *app) newStatusCommand() *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List changed paths in the working tree or index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, err := gitlib.ParseStatusScope(opts.scope)
			if err != nil {
				return fmt.Errorf("--scope: %w", err)
			}

			policy, err := a.policy(opts.untracked)
			if err != nil {
				return err
			}

			items, err := gitlib.Status(cmd.Context(), a.repo(), scope, policy)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}

			return a.render.emit(items, func(w io.Writer) error {
				return writeStatusItems(w, items, "nothing to report, working tree clean")
			})
		},
	}

	cmd.Flags().StringVar(&opts.scope, "scope", "workdir", "Which changes to list: workdir, stage, both")
	cmd.Flags().StringVar(&opts.untracked, "untracked", "", "Untracked files: no, normal, all (default: from config)")

	return cmd
}

func (a *app) newCleanCommand() *cobra.Command {
	var untracked string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Report whether the working tree has uncommitted edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := a.policy(untracked)
			if err != nil {
				return err
			}

			clean, err := gitlib.IsWorkdirClean(cmd.Context(), a.repo(), policy)
			if err != nil {
				return fmt.Errorf("clean: %w", err)
			}

			return a.render.emit(map[string]bool{"clean": clean}, func(w io.Writer) error {
				state := "dirty"
				if clean {
					state = "clean"
				}

				_, printErr := fmt.Fprintln(w, state)

				return printErr
			})
		},
	}

	cmd.Flags().StringVar(&untracked, "untracked", "", "Untracked files: no, normal, all (default: from config)")

	return cmd
}

func (a *app) newDiscardCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "discard",
		Short: "Reset the working tree and index to HEAD, deleting untracked files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return ErrConfirmRequired
			}

			discarded, err := gitlib.DiscardStatus(cmd.Context(), a.repo())
			if err != nil {
				return fmt.Errorf("discard: %w", err)
			}

			if !discarded {
				return a.render.message("nothing to discard")
			}

			return a.render.message("discarded all changes")
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm discarding every uncommitted change")

	return cmd
}
