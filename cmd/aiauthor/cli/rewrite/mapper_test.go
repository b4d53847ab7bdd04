package rewrite

import (
	"reflect"
	"sort"
	"testing"
)

func kindsOf(mappings []CommitMapping) []MappingKind {
	out := make([]MappingKind, len(mappings))
	for i, m := range mappings {
		out[i] = m.Kind
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestMapRebaseNoConflictsIsRename(t *testing.T) {
	ev := RewriteEvent{
		Operation:       OpRebase,
		OriginalCommits: []string{"o1"},
		NewCommits:      []string{"n1"},
		Relation:        map[string][]string{"n1": {"o1"}},
	}
	got := Map(ev)
	if len(got) != 1 || got[0].Kind != KindRename || got[0].New != "n1" || got[0].Originals[0] != "o1" {
		t.Fatalf("Map(rebase) = %+v, want single rename o1->n1", got)
	}
}

func TestMapRebaseWithHumanEditIsEdit(t *testing.T) {
	ev := RewriteEvent{
		Operation:               OpRebase,
		OriginalCommits:         []string{"o1"},
		NewCommits:              []string{"n1"},
		Relation:                map[string][]string{"n1": {"o1"}},
		HumanEditedAfterRewrite: map[string]bool{"n1": true},
	}
	got := Map(ev)
	if len(got) != 1 || got[0].Kind != KindEdit {
		t.Fatalf("Map(rebase+human edit) = %+v, want single edit", got)
	}
}

func TestMapSquashIsNToOne(t *testing.T) {
	ev := RewriteEvent{
		Operation:       OpRebase,
		OriginalCommits: []string{"o1", "o2"},
		NewCommits:      []string{"n1"},
		Relation:        map[string][]string{"n1": {"o1", "o2"}},
	}
	got := Map(ev)
	if len(got) != 1 || got[0].Kind != KindSquash || !reflect.DeepEqual(got[0].Originals, []string{"o1", "o2"}) {
		t.Fatalf("Map(squash) = %+v, want one squash [o1 o2] -> n1", got)
	}
}

func TestMapSplitIsOneToN(t *testing.T) {
	ev := RewriteEvent{
		Operation:       OpCommitSplit,
		OriginalCommits: []string{"o1"},
		NewCommits:      []string{"n1", "n2"},
		Relation:        map[string][]string{"n1": {"o1"}, "n2": {"o1"}},
	}
	got := Map(ev)
	if len(got) != 1 || got[0].Kind != KindSplit {
		t.Fatalf("Map(split) = %+v, want one KindSplit entry", got)
	}
	sort.Strings(got[0].Targets)
	if !reflect.DeepEqual(got[0].Targets, []string{"n1", "n2"}) {
		t.Fatalf("split targets = %v, want [n1 n2]", got[0].Targets)
	}
}

func TestMapDropForOriginalAbsentFromResult(t *testing.T) {
	ev := RewriteEvent{
		Operation:       OpRebase,
		OriginalCommits: []string{"o1", "o2"},
		NewCommits:      []string{"n1"},
		Relation:        map[string][]string{"n1": {"o1"}},
	}
	got := Map(ev)
	var foundDrop bool
	for _, m := range got {
		if m.Kind == KindDrop && len(m.Originals) == 1 && m.Originals[0] == "o2" {
			foundDrop = true
		}
	}
	if !foundDrop {
		t.Fatalf("Map() = %+v, want a KindDrop entry for o2", got)
	}
}

func TestMapResetSoftMixedIsWorkingLogMigration(t *testing.T) {
	ev := RewriteEvent{Operation: OpResetSoftMixed, OriginalCommits: []string{"o1", "o2"}}
	got := Map(ev)
	if len(got) != 1 || got[0].Kind != KindWorkingLogMigration {
		t.Fatalf("Map(reset soft/mixed) = %+v, want working-log-migration", got)
	}
}

func TestMapResetHardEmitsNoMapping(t *testing.T) {
	if got := Map(RewriteEvent{Operation: OpResetHard}); got != nil {
		t.Fatalf("Map(reset hard) = %+v, want nil", got)
	}
}

func TestMapCherryPickNoCommitIsWorkingLogMigration(t *testing.T) {
	ev := RewriteEvent{Operation: OpCherryPickNoCmt, OriginalCommits: []string{"o1"}}
	got := Map(ev)
	if len(got) != 1 || got[0].Kind != KindWorkingLogMigration {
		t.Fatalf("Map(cherry-pick --no-commit) = %+v, want working-log-migration", got)
	}
}

func TestMapMergeSquashIsWorkingLogMigration(t *testing.T) {
	ev := RewriteEvent{Operation: OpMergeSquash, OriginalCommits: []string{"o1", "o2"}}
	got := Map(ev)
	if len(got) != 1 || got[0].Kind != KindWorkingLogMigration {
		t.Fatalf("Map(merge --squash) = %+v, want working-log-migration", got)
	}
}

func TestMapMergeIsConflictResolved(t *testing.T) {
	ev := RewriteEvent{
		Operation:             OpMerge,
		NewCommits:            []string{"m1"},
		ConflictResolvedPaths: []string{"a.txt"},
	}
	got := Map(ev)
	if len(got) != 1 || got[0].Kind != KindConflictResolved || got[0].New != "m1" {
		t.Fatalf("Map(merge) = %+v, want conflict-resolved for m1", got)
	}
	if !reflect.DeepEqual(got[0].ConflictResolvedPaths, []string{"a.txt"}) {
		t.Fatalf("ConflictResolvedPaths = %v, want [a.txt]", got[0].ConflictResolvedPaths)
	}
}

func TestMapStashOperationsEmitNoMapping(t *testing.T) {
	for _, op := range []Operation{OpStashPush, OpStashPop, OpStashApply} {
		if got := Map(RewriteEvent{Operation: op, StashID: "s1"}); got != nil {
			t.Errorf("Map(%s) = %+v, want nil", op, got)
		}
	}
}

func TestMapRebaseAbortEmitsNoMapping(t *testing.T) {
	if got := Map(RewriteEvent{Operation: OpRebaseAbort}); got != nil {
		t.Fatalf("Map(rebase-abort) = %+v, want nil", got)
	}
}

func TestMapMixedRebaseEmitsRenameSquashAndDropTogether(t *testing.T) {
	ev := RewriteEvent{
		Operation:       OpRebase,
		OriginalCommits: []string{"o1", "o2", "o3", "o4"},
		NewCommits:      []string{"n1", "n2"},
		Relation: map[string][]string{
			"n1": {"o1"},
			"n2": {"o2", "o3"},
		},
	}
	got := kindsOf(Map(ev))
	want := []MappingKind{KindDrop, KindRename, KindSquash}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
}
