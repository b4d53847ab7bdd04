package notesstore

import (
	"testing"

	"github.com/go-git/go-git/v5"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/authorshiplog"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
)

func newTestRepo(t *testing.T) *git.Repository {
	t.Helper()
	repo, err := git.PlainInit(t.TempDir(), false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return repo
}

func sampleLog(baseSHA string) *authorshiplog.AuthorshipLog {
	log := authorshiplog.NewLog(baseSHA)
	session := sessionid.Hash("0123456789abcdef")
	log.Prompts[session] = &authorshiplog.PromptRecord{AgentID: sessionid.AgentID{Tool: "t", ID: "i", Model: "m"}}
	log.AppendAttestation("a.txt", session, rangeset.Span(1, 3))
	return log
}

func TestPutGetRoundTrip(t *testing.T) {
	store := New(newTestRepo(t))
	want := sampleLog("c1")

	if err := store.Put(string(Authorship), "c1", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(string(Authorship), "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil after Put")
	}
	if got.BaseCommitSHA != want.BaseCommitSHA || len(got.Files) != len(want.Files) {
		t.Fatalf("Get() = %+v, want %+v", got, want)
	}
}

func TestGetOnMissingKeyReturnsNilNoError(t *testing.T) {
	store := New(newTestRepo(t))
	got, err := store.Get(string(Authorship), "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get(missing key) = %+v, want nil", got)
	}
}

func TestPutIsTotalOverwrite(t *testing.T) {
	store := New(newTestRepo(t))
	if err := store.Put(string(Authorship), "c1", sampleLog("c1")); err != nil {
		t.Fatalf("Put 1: %v", err)
	}

	replacement := authorshiplog.NewLog("c1")
	if err := store.Put(string(Authorship), "c1", replacement); err != nil {
		t.Fatalf("Put 2: %v", err)
	}

	got, err := store.Get(string(Authorship), "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Files) != 0 {
		t.Fatalf("Get() after overwrite = %+v, want no files", got.Files)
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	store := New(newTestRepo(t))
	if err := store.Put(string(Authorship), "c1", sampleLog("c1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(string(Authorship), "c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := store.Get(string(Authorship), "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get() after Delete = %+v, want nil", got)
	}
}

func TestListReturnsAllKeysSorted(t *testing.T) {
	store := New(newTestRepo(t))
	for _, key := range []string{"c3", "c1", "c2"} {
		if err := store.Put(string(Authorship), key, sampleLog(key)); err != nil {
			t.Fatalf("Put(%s): %v", key, err)
		}
	}
	keys, err := store.List(string(Authorship))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"c1", "c2", "c3"}
	if len(keys) != len(want) {
		t.Fatalf("List() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("List() = %v, want %v", keys, want)
		}
	}
}

func TestNamespacesAreIndependentKeyspaces(t *testing.T) {
	store := New(newTestRepo(t))
	if err := store.Put(string(Authorship), "c1", sampleLog("c1")); err != nil {
		t.Fatalf("Put(authorship): %v", err)
	}
	got, err := store.Get(string(StashScope), "c1")
	if err != nil {
		t.Fatalf("Get(stash-scope): %v", err)
	}
	if got != nil {
		t.Fatalf("Get(stash-scope, c1) = %+v, want nil (separate keyspace from authorship)", got)
	}
}
