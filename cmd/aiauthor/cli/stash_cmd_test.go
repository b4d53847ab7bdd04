package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/notesstore"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/workinglog"
)

func TestStashPushThenPopRoundTripsWorkingLog(t *testing.T) {
	initCLITestRepo(t)
	commitFile(t, "a.txt", "one\n", "first")

	wlPath, err := paths.WorkingLogPath()
	require.NoError(t, err)
	mgr := workinglog.NewManager(wlPath)

	session := sessionid.Compute("claude-code", "sess-stash")
	require.NoError(t, mgr.Ingest("a.txt", session, rangeset.Set{{Start: 1, End: 1}}, nil))

	push := newStashPushCmd()
	require.NoError(t, push.RunE(push, []string{"stash-1"}))

	cleared, err := mgr.Load()
	require.NoError(t, err)
	assert.Empty(t, cleared.Files)

	pop := newStashPopCmd()
	require.NoError(t, pop.RunE(pop, []string{"stash-1"}))

	restored, err := mgr.Load()
	require.NoError(t, err)
	require.Len(t, restored.Files, 1)
	assert.Equal(t, "a.txt", restored.Files[0].Path)

	repo, err := openRepository()
	require.NoError(t, err)
	store := notesstore.New(repo)
	remaining, err := store.Get(string(notesstore.StashScope), "stash-1")
	require.NoError(t, err)
	assert.Nil(t, remaining, "pop must delete the stash-scope entry")
}

func TestStashApplyKeepsEntryForLaterPop(t *testing.T) {
	initCLITestRepo(t)
	commitFile(t, "a.txt", "one\n", "first")

	wlPath, err := paths.WorkingLogPath()
	require.NoError(t, err)
	mgr := workinglog.NewManager(wlPath)

	session := sessionid.Compute("claude-code", "sess-stash-apply")
	require.NoError(t, mgr.Ingest("a.txt", session, rangeset.Set{{Start: 1, End: 1}}, nil))

	push := newStashPushCmd()
	require.NoError(t, push.RunE(push, []string{"stash-2"}))

	apply := newStashApplyCmd()
	require.NoError(t, apply.RunE(apply, []string{"stash-2"}))

	repo, err := openRepository()
	require.NoError(t, err)
	store := notesstore.New(repo)
	remaining, err := store.Get(string(notesstore.StashScope), "stash-2")
	require.NoError(t, err)
	assert.NotNil(t, remaining, "apply must preserve the stash-scope entry")
}
