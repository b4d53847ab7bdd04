package workinglog

import (
	"context"
	"fmt"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/authorshiplog"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/checkpoint"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/fold"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
)

// notesNamespace is the notesstore.Authorship namespace, duplicated here
// (rather than imported) the same way rewrite.notesNamespace is, so this
// package stays free of a direct dependency on notesstore's go-git plumbing
// import.
const notesNamespace = "authorship"

// NotesStore is the subset of notesstore.Store DrainToCommit needs to load
// the parent commit's already-committed Authorship Log before folding,
// declared locally the same way rewrite.NotesStore is.
type NotesStore interface {
	Get(namespace, key string) (*authorshiplog.AuthorshipLog, error)
}

// BlobReader resolves a (commit id, path) pair to that path's text content
// at that commit, the same role rewrite.BlobReader plays; DrainToCommit only
// needs the single-blob lookup to recover each path's pre-commit text.
type BlobReader interface {
	Blob(ctx context.Context, commitID, path string) (text string, ok bool, err error)
}

// DrainToCommit folds the Working Log (plus any outstanding Checkpoint
// Store entries) against the final committed blobs and produces the
// Authorship Log for commitID, then clears the drained entries (spec §4.7
// `drain_to_commit`): "the final step of a normal commit that had prior AI
// activity plus a pre-drain from unwound/stashed state".
//
// The parent commit's own Authorship Log (if any) is loaded via notes and
// reprojected/unioned into the fold first, so attribution recorded by prior
// commits survives this commit's checkpoint fold instead of being
// overwritten by it (spec §8 scenario 2: attribution is cumulative across
// a path's commit history, not a per-commit delta).
//
// parentCommitID is "" for a repository's first commit. committedBlobs maps
// each touched path to its final committed text.
func (m *Manager) DrainToCommit(ctx context.Context, store checkpoint.Store, notes NotesStore, blobs BlobReader, parentCommitID, commitID string, committedBlobs map[string]string) (*authorshiplog.AuthorshipLog, error) {
	var parentLog *authorshiplog.AuthorshipLog
	if parentCommitID != "" {
		var err error
		parentLog, err = notes.Get(notesNamespace, parentCommitID)
		if err != nil {
			return nil, fmt.Errorf("workinglog: load parent authorship log: %w", err)
		}
	}
	parentFilesByPath := make(map[string]authorshiplog.FileAttestations, len(committedBlobs))
	if parentLog != nil {
		for _, f := range parentLog.Files {
			parentFilesByPath[f.Path] = f
		}
	}

	var result *authorshiplog.AuthorshipLog
	var highWaterSeq int

	err := m.withLock(func(w *authorshiplog.WorkingLog) (*authorshiplog.WorkingLog, error) {
		log := authorshiplog.NewLog(commitID)
		if parentLog != nil {
			for session, rec := range parentLog.Prompts {
				cp := *rec
				log.Prompts[session] = &cp
			}
		}

		paths := make([]string, 0, len(committedBlobs))
		for p := range committedBlobs {
			paths = append(paths, p)
		}
		allCheckpoints, err := store.Range(ctx, paths, 0)
		if err != nil {
			return nil, fmt.Errorf("workinglog: range checkpoint store: %w", err)
		}
		for _, cp := range allCheckpoints {
			if cp.Seq > highWaterSeq {
				highWaterSeq = cp.Seq
			}
		}

		byPath := make(map[string][]checkpoint.Checkpoint)
		for _, cp := range allCheckpoints {
			byPath[cp.Path] = append(byPath[cp.Path], cp)
		}

		counterTotals := make(map[sessionid.Hash]*fold.Counters)

		for path, blob := range committedBlobs {
			var baselineBlob string
			var seedAttributed map[sessionid.Hash]rangeset.Set
			if parentCommitID != "" {
				text, ok, err := blobs.Blob(ctx, parentCommitID, path)
				if err != nil {
					return nil, fmt.Errorf("workinglog: read parent blob %s: %w", path, err)
				}
				if ok {
					baselineBlob = text
				}
				if fa, exists := parentFilesByPath[path]; exists {
					seedAttributed = make(map[sessionid.Hash]rangeset.Set, len(fa.Entries))
					for _, e := range fa.Entries {
						seedAttributed[e.Session] = rangeset.Union(seedAttributed[e.Session], e.Lines)
					}
				}
			}

			folded, err := fold.Path(ctx, byPath[path], baselineBlob, blob, seedAttributed)
			if err != nil {
				return nil, fmt.Errorf("workinglog: fold %s: %w", path, err)
			}
			for session, lines := range folded.Attributed {
				log.AppendAttestation(path, session, lines)
			}
			for session, counters := range folded.Counters {
				mergeCounterTotals(counterTotals, session, counters)
			}

			// Merge in any pre-existing Working Log entries for this path
			// (carried over from a prior unwound or stashed state); they are
			// already expressed against the committed blob's numbering, so
			// no further reprojection is needed.
			for _, f := range w.Files {
				if f.Path != path {
					continue
				}
				for _, e := range f.Entries {
					log.AppendAttestation(path, e.Session, e.Lines)
				}
			}
		}

		for session, rec := range w.Prompts {
			cp := *rec
			log.Prompts[session] = &cp
		}
		for session, totals := range counterTotals {
			rec, ok := log.Prompts[session]
			if !ok {
				rec = &authorshiplog.PromptRecord{}
				log.Prompts[session] = rec
			}
			rec.TotalAdditions += totals.TotalAdditions
			rec.TotalDeletions += totals.TotalDeletions
			rec.AcceptedLines = totals.AcceptedLines
			rec.OverridenLines += totals.OverridenLines
		}

		log.PruneEmptyFiles()
		log.EnsurePromptsForAttestations()
		result = log

		return authorshiplog.NewWorkingLog(), nil
	})
	if err != nil {
		return nil, err
	}

	if highWaterSeq > 0 {
		if err := store.ClearUpTo(ctx, highWaterSeq); err != nil {
			return nil, fmt.Errorf("workinglog: clear checkpoint store: %w", err)
		}
	}

	return result, nil
}

func mergeCounterTotals(totals map[sessionid.Hash]*fold.Counters, session sessionid.Hash, c *fold.Counters) {
	t, ok := totals[session]
	if !ok {
		t = &fold.Counters{}
		totals[session] = t
	}
	t.TotalAdditions += c.TotalAdditions
	t.TotalDeletions += c.TotalDeletions
	t.AcceptedLines += c.AcceptedLines
	t.OverridenLines += c.OverridenLines
}
