package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/checkpoint"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/config"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/notesstore"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/redact"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rewrite"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/workinglog"
)

func newPostCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "post-commit",
		Short:  "Handle the post-commit integration point",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPostCommit(cmd)
		},
	}
}

func runPostCommit(cmd *cobra.Command) error {
	h := newHookContext("post-commit")
	h.logInvoked()

	settings, err := config.Load()
	if err != nil {
		return err
	}
	if !settings.Enabled {
		h.logCompleted(nil, slog.String("skipped", "disabled"))
		return nil
	}

	repo, err := openRepository()
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	commitID := head.Hash().String()

	blobs := rewrite.NewGitBlobReader(repo)
	parent, hasParent, err := blobs.Parent(h.ctx, commitID)
	if err != nil {
		h.logCompleted(err)
		return fmt.Errorf("resolve parent: %w", err)
	}
	if !hasParent {
		parent = ""
	}

	changed, err := blobs.ChangedPaths(h.ctx, parent, commitID)
	if err != nil {
		h.logCompleted(err)
		return fmt.Errorf("diff against parent: %w", err)
	}

	committedBlobs := make(map[string]string, len(changed))
	for _, path := range changed {
		text, ok, err := blobs.Blob(h.ctx, commitID, path)
		if err != nil {
			h.logCompleted(err)
			return fmt.Errorf("read blob %s: %w", path, err)
		}
		if ok {
			committedBlobs[path] = text
		}
	}

	checkpointsDir, err := paths.CheckpointsPath()
	if err != nil {
		return err
	}
	workingLogPath, err := paths.WorkingLogPath()
	if err != nil {
		return err
	}

	store := checkpoint.NewFileStore(checkpointsDir)
	mgr := workinglog.NewManager(workingLogPath)
	notes := notesstore.New(repo)

	log, err := mgr.DrainToCommit(h.ctx, store, notes, blobs, parent, commitID, committedBlobs)
	if err != nil {
		h.logCompleted(err)
		return fmt.Errorf("drain working log to commit: %w", err)
	}
	if log == nil || (len(log.Files) == 0 && len(log.Prompts) == 0) {
		h.logCompleted(nil, slog.String("result", "nothing-to-attribute"))
		return nil
	}

	if settings.RedactMessagesEnabled() {
		for session, rec := range log.Prompts {
			log.Prompts[session] = redact.PromptRecord(rec)
		}
	}

	if err := notes.Put(string(notesstore.Authorship), commitID, log); err != nil {
		h.logCompleted(err)
		return fmt.Errorf("write authorship note: %w", err)
	}

	h.logCompleted(nil, slog.Int("files", len(log.Files)), slog.Int("sessions", len(log.Prompts)))
	return nil
}
