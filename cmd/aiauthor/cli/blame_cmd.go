package cli

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/authorshiplog"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/notesstore"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
)

func newBlameCmd() *cobra.Command {
	var commitRef string

	cmd := &cobra.Command{
		Use:   "blame <path>",
		Short: "Show which session authored which lines of a file",
		Long:  "Reads the Authorship Log attached to a commit (default HEAD) and prints, for the given path, each recorded session and the line ranges attributed to it, in the order they were written (later entries win on overlapping lines).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlame(cmd, args[0], commitRef)
		},
	}

	cmd.Flags().StringVar(&commitRef, "commit", "HEAD", "commit to read the Authorship Log from")
	return cmd
}

func runBlame(cmd *cobra.Command, path, commitRef string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(commitRef))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", commitRef, err)
	}

	store := notesstore.New(repo)
	log, err := store.Get(string(notesstore.Authorship), hash.String())
	if err != nil {
		return fmt.Errorf("read authorship log for %s: %w", hash, err)
	}
	if log == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "no authorship log recorded for %s\n", hash)
		return nil
	}

	w := cmd.OutOrStdout()
	found := false
	for _, f := range log.Files {
		if f.Path != path {
			continue
		}
		found = true
		for _, e := range f.Entries {
			agent := describeAgent(log, e.Session)
			fmt.Fprintf(w, "%s %s  %s\n", e.Session, e.Lines.Format(), agent)
		}
	}
	if !found {
		fmt.Fprintf(w, "%s: no recorded attribution at %s\n", path, hash)
	}
	return nil
}

func describeAgent(log *authorshiplog.AuthorshipLog, session sessionid.Hash) string {
	rec, ok := log.Prompts[session]
	if !ok || rec.AgentID.Tool == "" {
		return ""
	}
	return fmt.Sprintf("(%s/%s)", rec.AgentID.Tool, rec.AgentID.Model)
}
