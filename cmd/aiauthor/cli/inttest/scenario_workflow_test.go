//go:build integration

package inttest

import (
	"strings"
	"testing"
)

// TestCheckpointThenCommitThenBlameRoundTrips drives the full recording path
// a VCS wrapper exercises around one commit: enable tracking, record a
// checkpoint for an AI-authored edit, run the post-commit hook, then read
// the resulting attribution back via blame.
func TestCheckpointThenCommitThenBlameRoundTrips(t *testing.T) {
	dir := initRepo(t)

	runAiauthor(t, dir, "", "enable")

	checkpointPayload := `{"kind":"ai","pre_image":"","post_image":"package main\n"}`
	runAiauthor(t, dir, checkpointPayload, "hooks", "checkpoint", "main.go", "0123456789abcdef")

	writeFile(t, dir, "main.go", "package main\n")
	run(t, dir, "git", "add", "main.go")
	run(t, dir, "git", "commit", "-m", "add main")
	run(t, dir, "git", "--no-pager", "log", "-1", "--format=%H") // sanity: commit landed

	runAiauthor(t, dir, "", "hooks", "post-commit")

	blameOut := runAiauthor(t, dir, "", "blame", "main.go")
	if !strings.Contains(blameOut, "0123456789abcdef") {
		t.Errorf("blame output = %q, want it to mention the recorded session", blameOut)
	}
}

// TestAttributionSurvivesASecondCommit drives two real sequential commits
// through the compiled binary: the first commit records an AI-authored
// file, the second has the AI append a line on top of it. The second
// commit's blame output must still mention the first commit's session,
// confirming attribution accumulates across commits rather than resetting
// once the checkpoint store is cleared after each commit.
func TestAttributionSurvivesASecondCommit(t *testing.T) {
	dir := initRepo(t)
	runAiauthor(t, dir, "", "enable")

	firstPayload := `{"kind":"ai","pre_image":"","post_image":"package main\n"}`
	runAiauthor(t, dir, firstPayload, "hooks", "checkpoint", "main.go", "0123456789abcdef")
	writeFile(t, dir, "main.go", "package main\n")
	run(t, dir, "git", "add", "main.go")
	run(t, dir, "git", "commit", "-m", "first")
	runAiauthor(t, dir, "", "hooks", "post-commit")

	secondPayload := `{"kind":"ai","pre_image":"package main\n","post_image":"package main\n\nfunc main() {}\n"}`
	runAiauthor(t, dir, secondPayload, "hooks", "checkpoint", "main.go", "0123456789abcdef")
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	run(t, dir, "git", "add", "main.go")
	run(t, dir, "git", "commit", "-m", "second")
	runAiauthor(t, dir, "", "hooks", "post-commit")

	blameOut := runAiauthor(t, dir, "", "blame", "main.go")
	if !strings.Contains(blameOut, "0123456789abcdef") {
		t.Errorf("blame output after second commit = %q, want it to still mention the first commit's session", blameOut)
	}
}

// TestDisableSkipsCheckpointRecording confirms a disabled repository never
// records a checkpoint, so post-commit finds nothing to attribute.
func TestDisableSkipsCheckpointRecording(t *testing.T) {
	dir := initRepo(t)

	runAiauthor(t, dir, "", "disable")

	checkpointPayload := `{"kind":"ai","pre_image":"","post_image":"x\n"}`
	runAiauthor(t, dir, checkpointPayload, "hooks", "checkpoint", "x.txt", "0123456789abcdef")

	writeFile(t, dir, "x.txt", "x\n")
	run(t, dir, "git", "add", "x.txt")
	run(t, dir, "git", "commit", "-m", "add x")

	runAiauthor(t, dir, "", "hooks", "post-commit")

	blameOut := runAiauthor(t, dir, "", "blame", "x.txt")
	if !strings.Contains(blameOut, "no authorship log recorded") {
		t.Errorf("blame output = %q, want no-log message since tracking was disabled", blameOut)
	}
}
