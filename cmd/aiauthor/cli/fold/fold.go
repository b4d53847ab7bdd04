// Package fold implements Checkpoint Folding (spec §4.4): replaying the
// ordered checkpoint sequence for one path against the final committed blob
// to produce per-session attributed line ranges plus per-session counters.
// Grounded on the teacher's CalculateAttributionWithAccumulated in
// strategy/manual_commit_attribution.go, which walks the same kind of
// ordered diff sequence accumulating per-session line counts; this package
// generalizes that accumulation to full range-set algebra instead of plain
// counters, and adds the human-override subtraction and supersede-on-same-
// lines steps the spec requires.
package fold

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/checkpoint"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/difflines"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/logging"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
)

// ErrStaleCheckpoint marks a checkpoint skipped during folding because its
// pre-image didn't match the path's last known-good state (spec §7/§9
// StaleCheckpoint): a checkpoint recorded against a blob that was never
// actually committed, e.g. from a crashed or partially-replayed session.
var ErrStaleCheckpoint = fmt.Errorf("fold: stale checkpoint pre-image mismatch")

// Counters tracks the per-session running totals spec §4.4 step 4 asks for.
type Counters struct {
	TotalAdditions int
	TotalDeletions int
	AcceptedLines  int
	OverridenLines int
}

// Result is the folded outcome for one path: each tracked session's final
// attributed range set (against the committed blob) and its counters.
type Result struct {
	Attributed map[sessionid.Hash]rangeset.Set
	Counters   map[sessionid.Hash]*Counters
}

// Path runs the folding algorithm for one file's checkpoint sequence (spec
// §4.4). baselineBlob is the path's text before any of checkpoints applied -
// the prior commit's committed blob for this path, or "" for a path that
// didn't exist yet; it is also the basis every checkpoint's PreImage is
// checked against for staleness. committedBlob is the final text of the
// file as it appears in the commit being folded; it may differ from the
// last checkpoint's post-image if the working tree was edited manually
// after the last checkpoint but before commit, in which case step 3
// attributes that drift to the human. seedAttributed carries forward each
// session's previously committed attributed ranges for this path (expressed
// in baselineBlob's line numbering), letting a multi-commit history of
// attribution survive folding instead of resetting at every commit; pass
// nil for a path with no prior attribution.
func Path(ctx context.Context, checkpoints []checkpoint.Checkpoint, baselineBlob, committedBlob string, seedAttributed map[sessionid.Hash]rangeset.Set) (*Result, error) {
	tracked := make(map[sessionid.Hash]rangeset.Set, len(seedAttributed))
	for s, r := range seedAttributed {
		tracked[s] = r
	}
	counters := make(map[sessionid.Hash]*Counters)
	ensure := func(s sessionid.Hash) *Counters {
		if counters[s] == nil {
			counters[s] = &Counters{}
		}
		if _, ok := tracked[s]; !ok {
			tracked[s] = nil
		}
		return counters[s]
	}

	for _, cp := range checkpoints {
		if cp.Kind == checkpoint.KindAI {
			ensure(cp.Session)
		}
	}

	lastPostImage := baselineBlob
	for _, cp := range checkpoints {
		if cp.PreImage != lastPostImage {
			logging.Warn(ctx, "fold: skipping stale checkpoint",
				slog.Int("seq", cp.Seq),
				slog.String("path", cp.Path),
				slog.String("error", ErrStaleCheckpoint.Error()))
			continue
		}
		hunks := difflines.Hunks(cp.PreImage, cp.PostImage)

		// Step 2, bullet 1: reproject every tracked session's range set
		// through this checkpoint's diff before applying the new edit.
		// before keeps each set in pre-image numbering for the human
		// override count below.
		before := make(map[sessionid.Hash]rangeset.Set, len(tracked))
		for s, r := range tracked {
			before[s] = r
			tracked[s] = rangeset.Reproject(r, hunks)
		}

		introduced := introducedLines(hunks)

		switch cp.Kind {
		case checkpoint.KindAI:
			c := ensure(cp.Session)
			c.TotalAdditions += introduced.Len()
			c.TotalDeletions += removedLineCount(hunks)
			tracked[cp.Session] = rangeset.Union(tracked[cp.Session], introduced)
			for other := range tracked {
				if other == cp.Session {
					continue
				}
				tracked[other] = rangeset.Subtract(tracked[other], introduced)
			}
		case checkpoint.KindHuman:
			// Pre-image lines the human's hunks rewrite (pure deletions excluded).
			var rewritten rangeset.Set
			for _, h := range hunks {
				if h.OldLen > 0 && h.NewLen > 0 {
					rewritten = rangeset.Union(rewritten, rangeset.Span(h.OldStart, h.OldStart+h.OldLen-1))
				}
			}
			for other := range tracked {
				overlap := rangeset.Intersect(before[other], rewritten)
				if !overlap.IsEmpty() {
					ensure(other).OverridenLines += overlap.Len()
				}
				tracked[other] = rangeset.Subtract(tracked[other], introduced)
			}
		default:
			return nil, fmt.Errorf("fold: unrecognized checkpoint kind %v at seq %d", cp.Kind, cp.Seq)
		}

		lastPostImage = cp.PostImage
	}

	// Step 3: reproject once more against the committed blob if it drifted
	// from the last checkpoint's post-image, attributing net-new lines to
	// the human by subtracting them from every tracked session.
	if lastPostImage != committedBlob {
		hunks := difflines.Hunks(lastPostImage, committedBlob)
		introduced := introducedLines(hunks)
		for s, r := range tracked {
			reprojected := rangeset.Reproject(r, hunks)
			tracked[s] = rangeset.Subtract(reprojected, introduced)
		}
	}

	// Step 4: accepted_lines is the size of the final range set.
	for s, r := range tracked {
		ensure(s).AcceptedLines = r.Len()
	}

	return &Result{Attributed: tracked, Counters: counters}, nil
}

// introducedLines returns the post-image line ranges a hunk sequence
// introduces or rewrites (spec §4.4: "lines of Q that the diff introduces or
// rewrites"), expressed in Q's (post-image) line numbering.
func introducedLines(hunks []rangeset.Hunk) rangeset.Set {
	var out rangeset.Set
	for _, h := range hunks {
		if h.NewLen == 0 {
			continue // pure deletion: no post-image lines to attribute
		}
		out = rangeset.Union(out, rangeset.Span(h.NewStart, h.NewStart+h.NewLen-1))
	}
	return out
}

// removedLineCount sums the pre-image lines a hunk sequence deletes or
// rewrites away, for the total_deletions counter (spec §4.4 step 4).
func removedLineCount(hunks []rangeset.Hunk) int {
	n := 0
	for _, h := range hunks {
		n += h.OldLen
	}
	return n
}
