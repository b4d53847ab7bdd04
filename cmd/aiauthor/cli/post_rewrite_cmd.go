package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/config"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/notesstore"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rewrite"
)

// newPostRewriteCmd mirrors git's native post-rewrite hook: argv[0] is
// "amend" or "rebase", and stdin carries one "<old-sha> <new-sha>" pair per
// line (squash/reword lines share a new-sha; dropped commits never appear on
// the right-hand side at all).
func newPostRewriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "post-rewrite <amend|rebase>",
		Short:  "Handle the post-rewrite integration point",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPostRewrite(cmd, args[0])
		},
	}
}

func runPostRewrite(cmd *cobra.Command, kind string) error {
	h := newHookContext("post-rewrite")
	h.logInvoked(slog.String("kind", kind))

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

	ev := rewrite.RewriteEvent{
		Operation:               rewrite.OpRebase,
		Relation:                make(map[string][]string),
		HumanEditedAfterRewrite: make(map[string]bool),
	}
	if kind == "amend" {
		ev.Operation = rewrite.OpAmend
	}

	seenOld := make(map[string]bool)
	seenNew := make(map[string]bool)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		oldSHA, newSHA := fields[0], fields[1]
		if !seenOld[oldSHA] {
			seenOld[oldSHA] = true
			ev.OriginalCommits = append(ev.OriginalCommits, oldSHA)
		}
		if !seenNew[newSHA] {
			seenNew[newSHA] = true
			ev.NewCommits = append(ev.NewCommits, newSHA)
		}
		ev.Relation[newSHA] = append(ev.Relation[newSHA], oldSHA)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read post-rewrite input: %w", err)
	}
	if len(ev.NewCommits) == 0 {
		h.logCompleted(nil, slog.String("result", "no-rewrites"))
		return nil
	}

	blobs := rewrite.NewGitBlobReader(repo)
	for newSHA, olds := range ev.Relation {
		if len(olds) != 1 {
			continue // squash: always processed as a fresh fold, not a human-edit overlay
		}
		ev.HumanEditedAfterRewrite[newSHA] = treeChanged(h, blobs, olds[0], newSHA)
	}

	mappings := rewrite.Map(ev)
	notes := notesstore.New(repo)

	var failures int
	for _, m := range mappings {
		if err := rewrite.Run(h.ctx, notes, blobs, m); err != nil {
			failures++
			h.logCompleted(err, slog.String("mapping_kind", m.Kind.String()))
			continue
		}
	}

	h.logCompleted(nil, slog.Int("mappings", len(mappings)), slog.Int("failures", failures))
	return nil
}

// treeChanged reports whether the new commit's tree differs from the old
// commit's tree for the one path-independent signal available without a
// full per-path diff: a non-empty changed-paths set means the human (or the
// rewrite machinery) altered content beyond what the rewrite itself implies,
// so the engine should treat it as KindEdit rather than a pure KindRename.
func treeChanged(h *hookContext, blobs *rewrite.GitBlobReader, oldSHA, newSHA string) bool {
	changed, err := blobs.ChangedPaths(h.ctx, oldSHA, newSHA)
	if err != nil {
		return false
	}
	return len(changed) > 0
}
