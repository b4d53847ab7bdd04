package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/notesstore"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/workinglog"
)

// newStashCmd groups the stash-scope integration points (spec §4.7
// snapshot_to_stash/restore_from_stash): git has no hook for 'git stash', so
// the VCS wrapper calls these explicitly immediately before/after invoking
// the real stash command.
func newStashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "stash",
		Short:  "Stash-scope integration points",
		Hidden: true,
	}
	cmd.AddCommand(newStashPushCmd())
	cmd.AddCommand(newStashPopCmd())
	cmd.AddCommand(newStashApplyCmd())
	return cmd
}

func newStashPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <stash-id>",
		Short: "Move the current Working Log into stash-scope storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStashManager(cmd, args[0], func(mgr *workinglog.Manager, store *notesstore.Store, stashID string) error {
				return mgr.SnapshotToStash(store, stashID)
			})
		},
	}
}

func newStashPopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pop <stash-id>",
		Short: "Restore a stash-scope entry into the Working Log and delete it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStashManager(cmd, args[0], func(mgr *workinglog.Manager, store *notesstore.Store, stashID string) error {
				return mgr.RestoreFromStash(store, stashID, true)
			})
		},
	}
}

func newStashApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <stash-id>",
		Short: "Restore a stash-scope entry into the Working Log, keeping it for a later pop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStashManager(cmd, args[0], func(mgr *workinglog.Manager, store *notesstore.Store, stashID string) error {
				return mgr.RestoreFromStash(store, stashID, false)
			})
		},
	}
}

func withStashManager(cmd *cobra.Command, stashID string, fn func(*workinglog.Manager, *notesstore.Store, string) error) error {
	h := newHookContext(cmd.Name())
	h.logInvoked()

	repo, err := openRepository()
	if err != nil {
		return err
	}
	workingLogPath, err := paths.WorkingLogPath()
	if err != nil {
		return err
	}

	mgr := workinglog.NewManager(workingLogPath)
	store := notesstore.New(repo)

	if err := fn(mgr, store, stashID); err != nil {
		h.logCompleted(err)
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	h.logCompleted(nil)
	return nil
}
