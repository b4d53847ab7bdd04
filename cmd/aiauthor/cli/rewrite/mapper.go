// Package rewrite implements the Rewrite Mapper and Rewriting Engine (spec
// §4.5, §4.6): given a snapshot of a history-rewriting operation, it maps
// original commit identities to new ones and re-emits Authorship Logs
// against the rewritten blobs. Grounded on the teacher's git_operations.go
// idiom (go-git plumbing.Hash-keyed lookups, commit/tree access via
// *git.Repository) but the mapping/dispatch logic itself has no teacher
// equivalent, since the teacher tracks sessions via shadow branches and
// commit trailers rather than a rewrite-mapping engine.
package rewrite

// MappingKind tags the variant dispatch the Rewriting Engine uses for each
// entry (spec §4.5 table); kept as a small tagged-union-by-const rather than
// an interface hierarchy, since the engine's behavior per kind is a flat
// switch, not virtual dispatch.
type MappingKind int

const (
	// KindRename is a 1:1 original-to-new mapping (plain rebase, cherry-pick).
	KindRename MappingKind = iota
	// KindSquash is an N:1 mapping (squash/fixup): multiple originals fold
	// into one new commit.
	KindSquash
	// KindSplit is a 1:N mapping: one original produces multiple new commits.
	KindSplit
	// KindDrop means the original commit has no counterpart in the result;
	// its attribution is discarded (any reappearance of the same content is
	// treated as human-authored).
	KindDrop
	// KindEdit is a rename where the human made changes on top; attribution
	// is reprojected then the human's changed lines are subtracted.
	KindEdit
	// KindWorkingLogMigration means no new commit was produced at all; the
	// original's attribution should be migrated into the Working Log
	// instead of being reprojected onto any commit (soft reset, no-commit
	// cherry-pick, merge --squash).
	KindWorkingLogMigration
	// KindConflictResolved marks a merge commit: it gets attributions only
	// for the lines the human resolved conflicts on; parent commits keep
	// their own notes untouched.
	KindConflictResolved
)

func (k MappingKind) String() string {
	switch k {
	case KindRename:
		return "rename"
	case KindSquash:
		return "squash"
	case KindSplit:
		return "split"
	case KindDrop:
		return "drop"
	case KindEdit:
		return "edit"
	case KindWorkingLogMigration:
		return "working-log-migration"
	case KindConflictResolved:
		return "conflict-resolved"
	default:
		return "unknown"
	}
}

// PathBlob pairs a repo-relative path with its text content at some commit.
type PathBlob struct {
	Path string
	Text string
}

// CommitMapping is one entry of the Rewrite Mapper's output (spec §4.5): a
// relation between zero or more original commits and zero or one new
// commit, tagged with the kind that determines how the Rewriting Engine
// processes it.
type CommitMapping struct {
	Kind MappingKind

	// Originals are the source commit ids this mapping consumes, in the
	// order they contributed (oldest first) - significant for KindSquash's
	// last-writer-wins tie-break (spec §4.5 "the later original in the
	// squash order wins").
	Originals []string

	// New is the produced commit id. Empty for KindDrop,
	// KindWorkingLogMigration, and KindSplit (which uses Targets instead,
	// since one original maps to several new commits).
	New string

	// Targets holds the produced commit ids for KindSplit, in new-history
	// order; unused for every other kind.
	Targets []string

	// ConflictResolvedPaths restricts attribution to these paths for
	// KindConflictResolved (the lines a human resolved during the merge).
	ConflictResolvedPaths []string
}

// Operation identifies which history-rewriting operation produced a
// RewriteEvent, purely for logging/diagnostics; the mapping kind itself
// (not the operation name) drives engine dispatch.
type Operation string

const (
	OpRebase           Operation = "rebase"
	OpSquash           Operation = "squash"
	OpCommitSplit      Operation = "commit-split"
	OpAmend            Operation = "amend"
	OpCherryPick       Operation = "cherry-pick"
	OpCherryPickNoCmt  Operation = "cherry-pick-no-commit"
	OpMerge            Operation = "merge"
	OpMergeSquash      Operation = "merge-squash"
	OpResetSoftMixed   Operation = "reset-soft-mixed"
	OpResetHard        Operation = "reset-hard"
	OpResetPartial     Operation = "reset-partial"
	OpStashPush        Operation = "stash-push"
	OpStashPop         Operation = "stash-pop"
	OpStashApply       Operation = "stash-apply"
	OpRebaseAbort      Operation = "rebase-abort"
)

// RewriteEvent is the snapshot the caller (the out-of-scope VCS wrapper)
// hands to the Rewrite Mapper: the operation kind plus the original/new
// commit id correspondence it observed via hooks.
type RewriteEvent struct {
	Operation Operation

	// OriginalCommits are the commit ids that existed before the operation,
	// in original history order (oldest first).
	OriginalCommits []string

	// NewCommits are the commit ids that exist after the operation, in new
	// history order (oldest first).
	NewCommits []string

	// Relation maps each new commit id to the original commit ids it
	// descends from, when the caller can determine this (e.g. from rebase
	// todo list bookkeeping or content-hash matching). A new commit absent
	// from Relation but present in NewCommits is treated as having no
	// identifiable originals (KindEdit with zero originals is invalid;
	// callers must supply at least one candidate when known).
	Relation map[string][]string

	// ConflictResolvedPaths, for OpMerge, lists the paths where the merge
	// required human conflict resolution (spec §4.5 "merge commit gets
	// attributions only for conflict-resolution lines").
	ConflictResolvedPaths []string

	// StashID identifies the stash entry for stash operations.
	StashID string

	// PathSpec restricts a reset to specific paths (spec §4.5 "Partial
	// reset (pathspec)"); empty means the whole tree.
	PathSpec []string

	// HumanEditedAfterRewrite marks new commits (by id) where the human
	// made additional changes on top of the pure rewrite - used to
	// distinguish KindEdit from KindRename for rebase/cherry-pick.
	HumanEditedAfterRewrite map[string]bool
}

// Map runs the Rewrite Mapper (spec §4.5): classifies ev into one or more
// CommitMapping entries, one per distinct original/new relation. Returns
// nil (no mappings, no notes changed) for an aborted or incomplete
// operation.
func Map(ev RewriteEvent) []CommitMapping {
	switch ev.Operation {
	case OpRebaseAbort:
		return nil

	case OpResetHard:
		// Working Log is cleared by the caller; existing notes are left
		// untouched (spec §4.5: "none"). No mapping to emit.
		return nil

	case OpResetSoftMixed, OpResetPartial:
		return []CommitMapping{{
			Kind:      KindWorkingLogMigration,
			Originals: ev.OriginalCommits,
		}}

	case OpCherryPickNoCmt, OpMergeSquash:
		return []CommitMapping{{
			Kind:      KindWorkingLogMigration,
			Originals: ev.OriginalCommits,
		}}

	case OpStashPush, OpStashPop, OpStashApply:
		// Stash transitions are handled directly by workinglog's
		// Snapshot/RestoreFromStash, not by the commit-mapping engine: no
		// commit mapping applies (spec §4.5 "no mapping needed" / "-").
		return nil

	case OpMerge:
		if len(ev.NewCommits) != 1 {
			return nil
		}
		return []CommitMapping{{
			Kind:                  KindConflictResolved,
			New:                   ev.NewCommits[0],
			ConflictResolvedPaths: ev.ConflictResolvedPaths,
		}}

	default:
		return mapByRelation(ev)
	}
}

// mapByRelation handles the operations whose mapping is purely a function
// of the new→original relation: rebase, squash, split, drop, edit,
// cherry-pick, amend.
func mapByRelation(ev RewriteEvent) []CommitMapping {
	var mappings []CommitMapping

	originalUsed := make(map[string]bool)

	for _, newCommit := range ev.NewCommits {
		originals := ev.Relation[newCommit]
		for _, o := range originals {
			originalUsed[o] = true
		}

		switch {
		case len(originals) == 0:
			// No identifiable original: treat as a fresh edit with no prior
			// attribution to carry (the caller found no content match).
			continue
		case len(originals) == 1:
			kind := KindRename
			if ev.HumanEditedAfterRewrite[newCommit] {
				kind = KindEdit
			}
			mappings = append(mappings, CommitMapping{
				Kind:      kind,
				Originals: originals,
				New:       newCommit,
			})
		default:
			mappings = append(mappings, CommitMapping{
				Kind:      KindSquash,
				Originals: originals,
				New:       newCommit,
			})
		}
	}

	// A single original mapped to multiple new commits is a split; detect it
	// by inverting the relation, and drop the per-target rename/edit entries
	// mapByRelation emitted above in favor of one KindSplit entry carrying
	// all targets.
	byOriginal := make(map[string][]string)
	for _, newCommit := range ev.NewCommits {
		for _, o := range ev.Relation[newCommit] {
			byOriginal[o] = append(byOriginal[o], newCommit)
		}
	}
	splitOriginals := make(map[string]bool)
	for original, news := range byOriginal {
		if len(news) > 1 {
			splitOriginals[original] = true
		}
	}
	if len(splitOriginals) > 0 {
		filtered := mappings[:0]
		for _, m := range mappings {
			if (m.Kind == KindRename || m.Kind == KindEdit) && len(m.Originals) == 1 && splitOriginals[m.Originals[0]] {
				continue
			}
			filtered = append(filtered, m)
		}
		mappings = filtered
		for original := range splitOriginals {
			mappings = append(mappings, CommitMapping{
				Kind:      KindSplit,
				Originals: []string{original},
				Targets:   byOriginal[original],
			})
		}
	}

	for _, original := range ev.OriginalCommits {
		if !originalUsed[original] {
			mappings = append(mappings, CommitMapping{Kind: KindDrop, Originals: []string{original}})
		}
	}

	return mappings
}
