package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

func (a *app) newStashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stash",
		Short: "Save or list stashes",
	}

	cmd.AddCommand(a.newStashSaveCommand(), a.newStashListCommand())

	return cmd
}

func (a *app) newStashSaveCommand() *cobra.Command {
	var opts gitlib.StashOptions

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Stash working tree and index changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := gitlib.StashSave(cmd.Context(), a.repo(), opts)
			if err != nil {
				return fmt.Errorf("stash save: %w", err)
			}

			return a.render.emit(map[string]gitlib.Hash{"id": id}, func(w io.Writer) error {
				_, printErr := fmt.Fprintf(w, "saved stash %s\n", commitIDColor.Sprint(id.Short()))

				return printErr
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "stash message")
	cmd.Flags().BoolVarP(&opts.IncludeUntracked, "include-untracked", "u", false, "also stash untracked files")
	cmd.Flags().BoolVar(&opts.KeepIndex, "keep-index", false, "leave staged changes in the index")

	return cmd
}

func (a *app) newStashListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stashes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := gitlib.StashList(cmd.Context(), a.repo())
			if err != nil {
				return fmt.Errorf("stash list: %w", err)
			}

			return a.render.emit(entries, func(w io.Writer) error {
				return writeStashes(w, entries)
			})
		},
	}
}
