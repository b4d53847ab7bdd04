package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/authorshiplog"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/config"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/notesstore"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/workinglog"
)

// newResetCmd groups the reset-scope integration points (spec §4.5 "Reset
// --soft / --mixed", "Reset --hard", "Partial reset"): git has no hook for
// 'git reset', so the VCS wrapper calls these explicitly, passing the shas
// of commits the reset unwinds (one per stdin line) where applicable.
func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "reset",
		Short:  "Reset-scope integration points",
		Hidden: true,
	}
	cmd.AddCommand(newResetSoftCmd())
	cmd.AddCommand(newResetHardCmd())
	cmd.AddCommand(newResetPartialCmd())
	return cmd
}

func newResetSoftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "soft",
		Short: "Migrate unwound commits' attributions into the Working Log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResetSoft(cmd)
		},
	}
}

func runResetSoft(cmd *cobra.Command) error {
	h := newHookContext("reset-soft")
	h.logInvoked()

	settings, err := config.Load()
	if err != nil {
		return err
	}
	if !settings.Enabled {
		h.logCompleted(nil, slog.String("skipped", "disabled"))
		return nil
	}

	commits, err := readLines(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		h.logCompleted(nil, slog.String("result", "no-unwound-commits"))
		return nil
	}

	repo, err := openRepository()
	if err != nil {
		return err
	}
	workingLogPath, err := paths.WorkingLogPath()
	if err != nil {
		return err
	}

	mgr := workinglog.NewManager(workingLogPath)
	notes := notesstore.New(repo)

	if err := mgr.MigrateFromNotes(notes, commits); err != nil {
		h.logCompleted(err)
		return fmt.Errorf("migrate from notes: %w", err)
	}

	h.logCompleted(nil, slog.Int("commits", len(commits)))
	return nil
}

func newResetHardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hard",
		Short: "Clear the Working Log, leaving existing notes untouched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResetHard(cmd)
		},
	}
}

func runResetHard(cmd *cobra.Command) error {
	h := newHookContext("reset-hard")
	h.logInvoked()

	settings, err := config.Load()
	if err != nil {
		return err
	}
	if !settings.Enabled {
		h.logCompleted(nil, slog.String("skipped", "disabled"))
		return nil
	}

	workingLogPath, err := paths.WorkingLogPath()
	if err != nil {
		return err
	}

	if err := workinglog.NewManager(workingLogPath).Clear(); err != nil {
		h.logCompleted(err)
		return fmt.Errorf("clear working log: %w", err)
	}

	h.logCompleted(nil)
	return nil
}

func newResetPartialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "partial <path>...",
		Short: "Migrate unwound commits' attributions for the given paths only",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResetPartial(cmd, args)
		},
	}
}

// runResetPartial handles a pathspec-scoped reset: unlike soft/mixed, only
// the named paths' attributions migrate back to the Working Log, so this
// reads each unwound commit's note directly rather than delegating to
// Manager.MigrateFromNotes (which migrates a commit's attestations whole).
func runResetPartial(cmd *cobra.Command, wantedPaths []string) error {
	h := newHookContext("reset-partial")
	h.logInvoked(slog.Int("paths", len(wantedPaths)))

	settings, err := config.Load()
	if err != nil {
		return err
	}
	if !settings.Enabled {
		h.logCompleted(nil, slog.String("skipped", "disabled"))
		return nil
	}

	commits, err := readLines(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		h.logCompleted(nil, slog.String("result", "no-unwound-commits"))
		return nil
	}

	repo, err := openRepository()
	if err != nil {
		return err
	}
	workingLogPath, err := paths.WorkingLogPath()
	if err != nil {
		return err
	}

	mgr := workinglog.NewManager(workingLogPath)
	notes := notesstore.New(repo)

	wanted := make(map[string]bool, len(wantedPaths))
	for _, p := range wantedPaths {
		wanted[p] = true
	}

	seeded := make(map[sessionid.Hash]bool)
	var migrated int
	for _, commitID := range commits {
		log, err := notes.Get(string(notesstore.Authorship), commitID)
		if err != nil {
			h.logCompleted(err, slog.String("commit", commitID))
			return fmt.Errorf("read authorship note %s: %w", commitID, err)
		}
		if log == nil {
			continue
		}
		for _, f := range log.Files {
			if !wanted[f.Path] {
				continue
			}
			for _, e := range f.Entries {
				var prompt *authorshiplog.PromptRecord
				if !seeded[e.Session] {
					prompt = log.Prompts[e.Session]
					seeded[e.Session] = true
				}
				if err := mgr.Ingest(f.Path, e.Session, e.Lines, prompt); err != nil {
					h.logCompleted(err, slog.String("commit", commitID), slog.String("path", f.Path))
					return fmt.Errorf("ingest migrated attestation: %w", err)
				}
				migrated++
			}
		}
	}

	h.logCompleted(nil, slog.Int("entries", migrated))
	return nil
}

// readLines reads newline-separated, whitespace-trimmed tokens from r,
// skipping blank lines; used for the commit-sha lists the reset hooks take
// over stdin.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}
