package rewrite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/authorshiplog"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/checkpoint"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/difflines"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/fold"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
)

// NotesStore is the subset of notesstore.Store the engine needs. Declared
// here (rather than imported) the same way workinglog declares StashStore,
// so rewrite stays free of a direct dependency on notesstore's go-git
// plumbing import.
type NotesStore interface {
	Get(namespace, key string) (*authorshiplog.AuthorshipLog, error)
	Put(namespace, key string, log *authorshiplog.AuthorshipLog) error
}

// BlobReader resolves a (commit id, path) pair to that path's text content
// at that commit; the engine's only need from the underlying git object
// store, kept as an interface so tests can supply an in-memory fake instead
// of a real repository.
type BlobReader interface {
	Blob(ctx context.Context, commitID, path string) (text string, ok bool, err error)
	ChangedPaths(ctx context.Context, fromCommitID, toCommitID string) ([]string, error)
	Parent(ctx context.Context, commitID string) (string, bool, error)
}

const notesNamespace = "authorship"

// Run executes the Rewriting Engine (spec §4.6) for one mapping in
// topological order; callers iterating multiple mappings should call Run
// once per entry in the new-commit topological order spec §4.6 requires.
func Run(ctx context.Context, store NotesStore, blobs BlobReader, m CommitMapping) error {
	switch m.Kind {
	case KindRename, KindEdit:
		return runRenameOrEdit(ctx, store, blobs, m)
	case KindSquash:
		return runSquash(ctx, store, blobs, m)
	case KindSplit:
		return runSplit(ctx, store, blobs, m)
	case KindConflictResolved:
		return runConflictResolved(ctx, store, blobs, m)
	case KindDrop, KindWorkingLogMigration:
		// Drop discards attribution outright; working-log migration is
		// handled by workinglog.MigrateFromNotes, not the commit engine.
		return nil
	default:
		return fmt.Errorf("rewrite: unhandled mapping kind %v", m.Kind)
	}
}

// runRenameOrEdit implements spec §4.6 steps 1-3 for a 1:1 mapping: load the
// original log, reproject every path's range set through the diff from the
// original blob to the new blob, and for KindEdit additionally subtract any
// lines the human changed after the rewrite.
func runRenameOrEdit(ctx context.Context, store NotesStore, blobs BlobReader, m CommitMapping) error {
	if len(m.Originals) != 1 || m.New == "" {
		return fmt.Errorf("rewrite: rename/edit mapping requires exactly one original and a new commit")
	}
	if alreadyProcessed(store, m.New) {
		return nil
	}

	original := m.Originals[0]
	log, err := store.Get(notesNamespace, original)
	if err != nil {
		return fmt.Errorf("rewrite: load original log %s: %w", original, err)
	}
	if log == nil {
		return nil // original had no authorship note: nothing to carry forward
	}

	out := authorshiplog.NewLog(m.New)
	for k, v := range log.Prompts {
		cp := *v
		out.Prompts[k] = &cp
	}

	for _, f := range log.Files {
		origBlob, ok, err := blobs.Blob(ctx, original, f.Path)
		if err != nil {
			return fmt.Errorf("rewrite: read original blob %s@%s: %w", f.Path, original, err)
		}
		if !ok {
			continue // path no longer exists at the original commit: drop it
		}
		newBlob, ok, err := blobs.Blob(ctx, m.New, f.Path)
		if err != nil {
			return fmt.Errorf("rewrite: read new blob %s@%s: %w", f.Path, m.New, err)
		}
		if !ok {
			continue // path did not survive into the new commit
		}

		hunks := difflines.Hunks(origBlob, newBlob)
		humanChanged := rangeset.Set(nil)
		if m.Kind == KindEdit {
			humanChanged = humanIntroducedLines(hunks)
		}

		for _, e := range f.Entries {
			lines := rangeset.Reproject(e.Lines, hunks)
			if m.Kind == KindEdit {
				lines = rangeset.Subtract(lines, humanChanged)
			}
			out.AppendAttestation(f.Path, e.Session, lines)
		}
	}

	out.PruneEmptyFiles()
	out.EnsurePromptsForAttestations()
	return writeIfNotEmpty(store, m.New, out)
}

// humanIntroducedLines is the post-image lines a hunk sequence introduces,
// used by KindEdit to subtract human-authored changes on top of a rewrite.
func humanIntroducedLines(hunks []rangeset.Hunk) rangeset.Set {
	var out rangeset.Set
	for _, h := range hunks {
		if h.NewLen == 0 {
			continue
		}
		out = rangeset.Union(out, rangeset.Span(h.NewStart, h.NewStart+h.NewLen-1))
	}
	return out
}

// runSquash implements spec §4.6 step 4: synthesize a checkpoint sequence
// from the ordered originals' blob transitions and run the §4.4 fold,
// unioning prompt records and merging counters additively per session.
func runSquash(ctx context.Context, store NotesStore, blobs BlobReader, m CommitMapping) error {
	if m.New == "" || len(m.Originals) < 2 {
		return fmt.Errorf("rewrite: squash mapping requires a new commit and >=2 originals")
	}
	if alreadyProcessed(store, m.New) {
		return nil
	}

	logs := make([]*authorshiplog.AuthorshipLog, 0, len(m.Originals))
	for _, original := range m.Originals {
		log, err := store.Get(notesNamespace, original)
		if err != nil {
			return fmt.Errorf("rewrite: load original log %s: %w", original, err)
		}
		logs = append(logs, log) // may be nil; handled below
	}

	paths := collectPaths(logs)
	out := authorshiplog.NewLog(m.New)

	for _, path := range paths {
		var checkpoints []checkpoint.Checkpoint
		seq := 0
		for i, original := range m.Originals {
			preBlob := ""
			if i > 0 {
				var ok bool
				var err error
				preBlob, ok, err = blobs.Blob(ctx, m.Originals[i-1], path)
				if err != nil {
					return fmt.Errorf("rewrite: read blob %s@%s: %w", path, m.Originals[i-1], err)
				}
				if !ok {
					preBlob = ""
				}
			}
			postBlob, ok, err := blobs.Blob(ctx, original, path)
			if err != nil {
				return fmt.Errorf("rewrite: read blob %s@%s: %w", path, original, err)
			}
			if !ok {
				postBlob = preBlob
			}

			log := logs[i]
			if log == nil {
				continue
			}
			for _, f := range log.Files {
				if f.Path != path {
					continue
				}
				for _, e := range f.Entries {
					seq++
					checkpoints = append(checkpoints, checkpoint.Checkpoint{
						Seq:       seq,
						Kind:      checkpoint.KindAI,
						Session:   e.Session,
						Path:      path,
						PreImage:  preBlob,
						PostImage: postBlob,
					})
				}
			}
		}

		if len(checkpoints) == 0 {
			continue
		}
		finalBlob, ok, err := blobs.Blob(ctx, m.New, path)
		if err != nil {
			return fmt.Errorf("rewrite: read final blob %s@%s: %w", path, m.New, err)
		}
		if !ok {
			continue
		}

		folded, err := fold.Path(ctx, checkpoints, checkpoints[0].PreImage, finalBlob, nil)
		if err != nil {
			return fmt.Errorf("rewrite: fold %s: %w", path, err)
		}
		for session, lines := range folded.Attributed {
			out.AppendAttestation(path, session, lines)
		}
	}

	mergePromptsForSquash(out, logs)
	out.PruneEmptyFiles()
	out.EnsurePromptsForAttestations()
	return writeIfNotEmpty(store, m.New, out)
}

// mergePromptsForSquash unions the prompt records across the originals
// (spec §4.6 step 4): additive counters per session, messages deduped by a
// timestamp+type+text hash equivalent - since this codec carries no
// per-message timestamp, dedup by (type, text) pair, which is equivalent
// whenever the same message was recorded verbatim in more than one
// original's log.
func mergePromptsForSquash(out *authorshiplog.AuthorshipLog, logs []*authorshiplog.AuthorshipLog) {
	for _, log := range logs {
		if log == nil {
			continue
		}
		for session, rec := range log.Prompts {
			existing, ok := out.Prompts[session]
			if !ok {
				cp := *rec
				cp.Messages = dedupMessages(rec.Messages)
				out.Prompts[session] = &cp
				continue
			}
			existing.TotalAdditions += rec.TotalAdditions
			existing.TotalDeletions += rec.TotalDeletions
			existing.OverridenLines += rec.OverridenLines
			existing.Messages = dedupMessages(append(existing.Messages, rec.Messages...))
			if existing.HumanAuthor == "" {
				existing.HumanAuthor = rec.HumanAuthor
			}
		}
	}
}

func dedupMessages(messages []authorshiplog.Message) []authorshiplog.Message {
	seen := make(map[string]bool, len(messages))
	out := make([]authorshiplog.Message, 0, len(messages))
	for _, m := range messages {
		sum := sha256.Sum256([]byte(m.Type + "\x00" + m.Text))
		key := hex.EncodeToString(sum[:])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// runSplit implements spec §4.6 step 5: for each produced commit, intersect
// the original's reprojected per-session range sets with the lines that
// commit introduces relative to its parent.
func runSplit(ctx context.Context, store NotesStore, blobs BlobReader, m CommitMapping) error {
	if len(m.Originals) != 1 || len(m.Targets) == 0 {
		return fmt.Errorf("rewrite: split mapping requires exactly one original and >=1 targets")
	}
	original := m.Originals[0]
	log, err := store.Get(notesNamespace, original)
	if err != nil {
		return fmt.Errorf("rewrite: load original log %s: %w", original, err)
	}
	if log == nil {
		return nil
	}

	for _, target := range m.Targets {
		if alreadyProcessed(store, target) {
			continue
		}
		parent, ok, err := blobs.Parent(ctx, target)
		if err != nil {
			return fmt.Errorf("rewrite: find parent of %s: %w", target, err)
		}
		if !ok {
			continue
		}

		out := authorshiplog.NewLog(target)
		for k, v := range log.Prompts {
			cp := *v
			out.Prompts[k] = &cp
		}

		changed, err := blobs.ChangedPaths(ctx, parent, target)
		if err != nil {
			return fmt.Errorf("rewrite: changed paths %s..%s: %w", parent, target, err)
		}
		for _, path := range changed {
			parentBlob, _, err := blobs.Blob(ctx, parent, path)
			if err != nil {
				return fmt.Errorf("rewrite: read blob %s@%s: %w", path, parent, err)
			}
			targetBlob, ok, err := blobs.Blob(ctx, target, path)
			if err != nil {
				return fmt.Errorf("rewrite: read blob %s@%s: %w", path, target, err)
			}
			if !ok {
				continue
			}
			introduced := humanIntroducedLines(difflines.Hunks(parentBlob, targetBlob))

			originalBlob, ok, err := blobs.Blob(ctx, original, path)
			if err != nil {
				return fmt.Errorf("rewrite: read blob %s@%s: %w", path, original, err)
			}
			if !ok {
				continue
			}
			hunksFromOriginal := difflines.Hunks(originalBlob, targetBlob)

			for _, f := range log.Files {
				if f.Path != path {
					continue
				}
				for _, e := range f.Entries {
					reprojected := rangeset.Reproject(e.Lines, hunksFromOriginal)
					lines := rangeset.Intersect(reprojected, introduced)
					out.AppendAttestation(path, e.Session, lines)
				}
			}
		}

		out.PruneEmptyFiles()
		out.EnsurePromptsForAttestations()
		if err := writeIfNotEmpty(store, target, out); err != nil {
			return err
		}
	}
	return nil
}

// runConflictResolved implements the merge-commit row of spec §4.5: the
// merge commit receives no session attribution for any path, including
// ConflictResolvedPaths, so the resulting log is empty and no note is
// written; parent notes are left untouched (no reprojection).
func runConflictResolved(ctx context.Context, store NotesStore, blobs BlobReader, m CommitMapping) error {
	if m.New == "" {
		return fmt.Errorf("rewrite: conflict-resolved mapping requires a new commit")
	}
	if alreadyProcessed(store, m.New) {
		return nil
	}
	if len(m.ConflictResolvedPaths) == 0 {
		return nil // no conflicts: nothing to attribute to the merge commit itself
	}

	parent, ok, err := blobs.Parent(ctx, m.New)
	if err != nil {
		return fmt.Errorf("rewrite: find parent of %s: %w", m.New, err)
	}
	if !ok {
		return nil
	}

	// Conflict-resolution lines are, by definition, human-authored at the
	// merge commit: spec §4.5 grants the merge commit no session
	// attribution at all, and writeIfNotEmpty writes nothing for the
	// resulting empty log. ConflictResolvedPaths
	// and parent are recorded by the caller for diagnostics, not consumed
	// here.
	_ = parent
	out := authorshiplog.NewLog(m.New)
	out.PruneEmptyFiles()
	out.EnsurePromptsForAttestations()
	return writeIfNotEmpty(store, m.New, out)
}

func alreadyProcessed(store NotesStore, commitID string) bool {
	existing, err := store.Get(notesNamespace, commitID)
	return err == nil && existing != nil
}

// writeIfNotEmpty implements spec §4.6 step 7: skip writing only when both
// attestations and prompts are empty; otherwise write (even empty
// attestations with non-empty prompts, for audit trail).
func writeIfNotEmpty(store NotesStore, commitID string, log *authorshiplog.AuthorshipLog) error {
	if len(log.Files) == 0 && len(log.Prompts) == 0 {
		return nil
	}
	if err := store.Put(notesNamespace, commitID, log); err != nil {
		return fmt.Errorf("rewrite: write log for %s: %w", commitID, err)
	}
	return nil
}

func collectPaths(logs []*authorshiplog.AuthorshipLog) []string {
	seen := make(map[string]bool)
	var out []string
	for _, log := range logs {
		if log == nil {
			continue
		}
		for _, f := range log.Files {
			if !seen[f.Path] {
				seen[f.Path] = true
				out = append(out, f.Path)
			}
		}
	}
	sort.Strings(out)
	return out
}
