package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/checkpoint"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/config"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
)

// checkpointPayload is the JSON the VCS wrapper's agent integration writes
// to stdin for each recorded edit: the pre/post image pair for one file and
// whether the edit was AI- or human-originated. The file path and the
// authoring session hash are command arguments, not payload fields.
type checkpointPayload struct {
	Kind      string `json:"kind"` // "ai" | "human"
	PreImage  string `json:"pre_image"`
	PostImage string `json:"post_image"`
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "checkpoint <path> <session-hash>",
		Short:  "Record a checkpoint for one file edit",
		Hidden: true,
		Args:   cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args[0], args[1])
		},
	}
}

func runIngest(cmd *cobra.Command, path, sessionArg string) error {
	h := newHookContext("checkpoint")
	h.logInvoked(slog.String("path", path))

	settings, err := config.Load()
	if err != nil {
		return err
	}
	if !settings.Enabled {
		h.logCompleted(nil, slog.String("skipped", "disabled"))
		return nil
	}

	var payload checkpointPayload
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read checkpoint payload: %w", err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse checkpoint payload: %w", err)
	}

	session, err := sessionid.Parse(sessionArg)
	if err != nil {
		return fmt.Errorf("invalid session hash: %w", err)
	}

	kind := checkpoint.KindAI
	if payload.Kind == "human" {
		kind = checkpoint.KindHuman
	}

	dir, err := paths.CheckpointsPath()
	if err != nil {
		return err
	}
	store := checkpoint.NewFileStore(dir)

	seq, err := store.Append(h.ctx, kind, session, path, payload.PreImage, payload.PostImage)
	if err != nil {
		h.logCompleted(err)
		return fmt.Errorf("record checkpoint: %w", err)
	}

	h.logCompleted(nil, slog.Int("seq", seq))
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", seq)
	return nil
}
