package workinglog

import (
	"fmt"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/authorshiplog"
)

// StashStore is the subset of notesstore.Store the Working Log needs for
// stash-scope snapshot/restore and commit-note migration (spec §4.7
// `snapshot_to_stash`, `restore_from_stash`, `migrate_from_notes`). Declared
// here rather than imported directly from notesstore to keep workinglog
// free of a dependency on the git plumbing notesstore requires.
type StashStore interface {
	Get(namespace, key string) (*authorshiplog.AuthorshipLog, error)
	Put(namespace, key string, log *authorshiplog.AuthorshipLog) error
	Delete(namespace, key string) error
}

const (
	namespaceAuthorship = "authorship"
	namespaceStashScope = "stash-scope"
)

// SnapshotToStash converts the current Working Log into an Authorship Log
// (keyed by a synthetic base commit sha, since no commit exists yet for a
// stash entry) and writes it to the stash-scope namespace under stashID
// (spec §4.7 `snapshot_to_stash`), then clears the Working Log: `git stash`
// moves all pending state out of the worktree, so pending attribution must
// move with it rather than be silently dropped.
func (m *Manager) SnapshotToStash(store StashStore, stashID string) error {
	return m.withLock(func(w *authorshiplog.WorkingLog) (*authorshiplog.WorkingLog, error) {
		if w.IsEmpty() {
			return nil, nil
		}
		log := w.ToAuthorshipLog(stashID)
		if err := store.Put(namespaceStashScope, stashID, log); err != nil {
			return nil, fmt.Errorf("workinglog: snapshot to stash %s: %w", stashID, err)
		}
		return authorshiplog.NewWorkingLog(), nil
	})
}

// RestoreFromStash reads the stash-scope entry for stashID back into the
// Working Log (spec §4.7 `restore_from_stash`), merging it with any
// attributions accumulated since the stash was pushed. When deleteAfter is
// true (the normal `git stash pop` case) the stash-scope entry is removed
// once restored; `git stash apply` passes false to keep it for a possible
// second pop.
func (m *Manager) RestoreFromStash(store StashStore, stashID string, deleteAfter bool) error {
	log, err := store.Get(namespaceStashScope, stashID)
	if err != nil {
		return fmt.Errorf("workinglog: restore from stash %s: %w", stashID, err)
	}
	if log == nil {
		return nil
	}

	err = m.withLock(func(w *authorshiplog.WorkingLog) (*authorshiplog.WorkingLog, error) {
		for _, f := range log.Files {
			for _, e := range f.Entries {
				w.AppendAttestation(f.Path, e.Session, e.Lines)
			}
		}
		for session, rec := range log.Prompts {
			if existing, ok := w.Prompts[session]; ok {
				mergePromptCounters(existing, rec)
			} else {
				cp := *rec
				w.Prompts[session] = &cp
			}
		}
		return w, nil
	})
	if err != nil {
		return err
	}

	if deleteAfter {
		if err := store.Delete(namespaceStashScope, stashID); err != nil {
			return fmt.Errorf("workinglog: delete stash-scope entry %s: %w", stashID, err)
		}
	}
	return nil
}

// MigrateFromNotes folds the committed Authorship Logs for commitIDs back
// into the Working Log (spec §4.7 `migrate_from_notes`), used when a
// history-rewriting operation cannot determine a mapping for those commits
// up front (e.g. an interactive rebase that drops to a shell) and instead
// defers to manual recommit: the prior attribution becomes pending state
// again rather than being lost.
func (m *Manager) MigrateFromNotes(store StashStore, commitIDs []string) error {
	return m.withLock(func(w *authorshiplog.WorkingLog) (*authorshiplog.WorkingLog, error) {
		for _, commitID := range commitIDs {
			log, err := store.Get(namespaceAuthorship, commitID)
			if err != nil {
				return nil, fmt.Errorf("workinglog: migrate from notes %s: %w", commitID, err)
			}
			if log == nil {
				continue
			}
			for _, f := range log.Files {
				for _, e := range f.Entries {
					w.AppendAttestation(f.Path, e.Session, e.Lines)
				}
			}
			for session, rec := range log.Prompts {
				if existing, ok := w.Prompts[session]; ok {
					mergePromptCounters(existing, rec)
				} else {
					cp := *rec
					w.Prompts[session] = &cp
				}
			}
		}
		return w, nil
	})
}
