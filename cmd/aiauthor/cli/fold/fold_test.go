package fold

import (
	"context"
	"testing"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/checkpoint"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
)

const (
	s1 = sessionid.Hash("d9978a8723e02b52")
	s2 = sessionid.Hash("1111111111111111")
)

func assertAttributed(t *testing.T, result *Result, session sessionid.Hash, want rangeset.Set) {
	t.Helper()
	got := result.Attributed[session]
	if !rangeset.Equal(got, want) {
		t.Errorf("attributed[%s] = %v, want %v", session, got, want)
	}
}

// Scenario 1 (spec §8): simple AI addition into an empty file.
func TestScenarioSimpleAIAddition(t *testing.T) {
	checkpoints := []checkpoint.Checkpoint{
		{Seq: 1, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "", PostImage: "x\ny\nz\n"},
	}
	result, err := Path(context.Background(), checkpoints, "", "x\ny\nz\n", nil)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	assertAttributed(t, result, s1, rangeset.Span(1, 3))
	c := result.Counters[s1]
	if c.TotalAdditions != 3 || c.AcceptedLines != 3 || c.OverridenLines != 0 {
		t.Errorf("counters = %+v, want additions=3 accepted=3 overridden=0", c)
	}
}

// Scenario 2 (spec §8): human overrides one AI-attributed line, then the AI
// adds a further line; final attribution is 1,3-4 with one overridden line.
func TestScenarioHumanOverrideOfAI(t *testing.T) {
	checkpoints := []checkpoint.Checkpoint{
		{Seq: 1, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "", PostImage: "x\ny\nz\n"},
		{Seq: 2, Kind: checkpoint.KindHuman, Path: "a.txt", PreImage: "x\ny\nz\n", PostImage: "x\nY\nz\n"},
		{Seq: 3, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "x\nY\nz\n", PostImage: "x\nY\nz\nw\n"},
	}
	result, err := Path(context.Background(), checkpoints, "", "x\nY\nz\nw\n", nil)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	assertAttributed(t, result, s1, rangeset.New(rangeset.Range{Start: 1, End: 1}, rangeset.Range{Start: 3, End: 4}))
	c := result.Counters[s1]
	if c.OverridenLines != 1 {
		t.Errorf("OverridenLines = %d, want 1", c.OverridenLines)
	}
}

// TestScenarioHumanOverrideOfAIAcrossTwoCommits is scenario 2 replayed as two
// real, separate commits rather than one fold.Path call: the first commit's
// attribution (1-3, all s1) is only available to the second commit's fold
// via seedAttributed, exactly as workinglog.DrainToCommit wires it in after
// loading the first commit's Authorship Log from notes. This is the shape
// the maintainer review flagged as missing from the single-call version of
// this scenario above.
func TestScenarioHumanOverrideOfAIAcrossTwoCommits(t *testing.T) {
	firstCommit := []checkpoint.Checkpoint{
		{Seq: 1, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "", PostImage: "x\ny\nz\n"},
	}
	commit1, err := Path(context.Background(), firstCommit, "", "x\ny\nz\n", nil)
	if err != nil {
		t.Fatalf("Path(commit1): %v", err)
	}
	assertAttributed(t, commit1, s1, rangeset.Span(1, 3))

	// checkpoint.Store.ClearUpTo purges commit1's checkpoints once commit1
	// lands; commit2's fold only ever sees its own two checkpoints.
	secondCommit := []checkpoint.Checkpoint{
		{Seq: 2, Kind: checkpoint.KindHuman, Path: "a.txt", PreImage: "x\ny\nz\n", PostImage: "x\nY\nz\n"},
		{Seq: 3, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "x\nY\nz\n", PostImage: "x\nY\nz\nw\n"},
	}
	commit2, err := Path(context.Background(), secondCommit, "x\ny\nz\n", "x\nY\nz\nw\n", commit1.Attributed)
	if err != nil {
		t.Fatalf("Path(commit2): %v", err)
	}
	assertAttributed(t, commit2, s1, rangeset.New(rangeset.Range{Start: 1, End: 1}, rangeset.Range{Start: 3, End: 4}))
	c := commit2.Counters[s1]
	if c.OverridenLines != 1 {
		t.Errorf("OverridenLines = %d, want 1", c.OverridenLines)
	}
}

// Scenario 4 (spec §8): split of one AI commit into two - folding D1's
// portion and D2's portion independently against their respective committed
// blobs each yield the corresponding half of the original range.
func TestScenarioSplitOfOneAICommit(t *testing.T) {
	d1 := []checkpoint.Checkpoint{
		{Seq: 1, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "", PostImage: "1\n2\n3\n4\n5\n"},
	}
	result1, err := Path(context.Background(), d1, "", "1\n2\n3\n4\n5\n", nil)
	if err != nil {
		t.Fatalf("Path(D1): %v", err)
	}
	assertAttributed(t, result1, s1, rangeset.Span(1, 5))

	d2 := []checkpoint.Checkpoint{
		{Seq: 2, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "1\n2\n3\n4\n5\n", PostImage: "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"},
	}
	result2, err := Path(context.Background(), d2, "1\n2\n3\n4\n5\n", "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n", nil)
	if err != nil {
		t.Fatalf("Path(D2): %v", err)
	}
	assertAttributed(t, result2, s1, rangeset.Span(6, 10))
}

func TestLastWriterWinsOnSameLinesNoInterveningHumanEdit(t *testing.T) {
	checkpoints := []checkpoint.Checkpoint{
		{Seq: 1, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "", PostImage: "1\n2\n3\n4\n5\n"},
		{Seq: 2, Kind: checkpoint.KindAI, Session: s2, Path: "a.txt", PreImage: "1\n2\n3\n4\n5\n", PostImage: "1\n2\nX\nY\nZ\n"},
	}
	result, err := Path(context.Background(), checkpoints, "", "1\n2\nX\nY\nZ\n", nil)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	assertAttributed(t, result, s1, rangeset.Span(1, 2))
	assertAttributed(t, result, s2, rangeset.Span(3, 5))
}

func TestDriftBetweenLastCheckpointAndCommittedBlobGoesToNoSession(t *testing.T) {
	checkpoints := []checkpoint.Checkpoint{
		{Seq: 1, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "", PostImage: "1\n2\n3\n"},
	}
	// Blob committed differs from the last checkpoint's post-image: an
	// out-of-band edit happened after the last recorded checkpoint.
	result, err := Path(context.Background(), checkpoints, "", "1\n2\n3\n4\n", nil)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	assertAttributed(t, result, s1, rangeset.Span(1, 3))
}

func TestEmptyCheckpointSequenceYieldsEmptyResult(t *testing.T) {
	result, err := Path(context.Background(), nil, "", "anything\n", nil)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if len(result.Attributed) != 0 || len(result.Counters) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

// TestEmptyCheckpointSequenceWithSeedReprojectsAndSubtractsDrift covers a
// commit that touched a path with no recorded checkpoint activity at all
// (e.g. an external edit bypassing the VCS wrapper's hooks): the path's
// seeded prior attribution must still reproject against the baseline-to-
// committed diff, with any lines that diff touches falling back to no
// session, mirroring the within-commit drift case above.
func TestEmptyCheckpointSequenceWithSeedReprojectsAndSubtractsDrift(t *testing.T) {
	seed := map[sessionid.Hash]rangeset.Set{s1: rangeset.Span(1, 3)}
	result, err := Path(context.Background(), nil, "1\n2\n3\n", "1\n2\n3\n4\n", seed)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	assertAttributed(t, result, s1, rangeset.Span(1, 3))
}

// TestStaleCheckpointIsSkippedAndFoldContinues covers spec §7/§9
// StaleCheckpoint: a checkpoint whose PreImage doesn't match the running
// post-image (here, a checkpoint recorded against content that was never
// actually the path's state) is skipped rather than corrupting the fold,
// and folding continues with the checkpoints that do line up.
func TestStaleCheckpointIsSkippedAndFoldContinues(t *testing.T) {
	checkpoints := []checkpoint.Checkpoint{
		{Seq: 1, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "", PostImage: "1\n2\n3\n"},
		// Stale: PreImage doesn't match seq 1's PostImage.
		{Seq: 2, Kind: checkpoint.KindAI, Session: s2, Path: "a.txt", PreImage: "not-the-real-state\n", PostImage: "1\n2\n3\n4\n5\n"},
		{Seq: 3, Kind: checkpoint.KindAI, Session: s1, Path: "a.txt", PreImage: "1\n2\n3\n", PostImage: "1\n2\n3\n4\n"},
	}
	result, err := Path(context.Background(), checkpoints, "", "1\n2\n3\n4\n", nil)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	assertAttributed(t, result, s1, rangeset.Span(1, 4))
	if _, tracked := result.Attributed[s2]; tracked && result.Attributed[s2].Len() != 0 {
		t.Errorf("stale checkpoint's session s2 should not have been attributed any lines, got %v", result.Attributed[s2])
	}
}
