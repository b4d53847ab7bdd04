package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/authorshiplog"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/notesstore"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/workinglog"
)

func TestResetSoftMigratesUnwoundCommitIntoWorkingLog(t *testing.T) {
	initCLITestRepo(t)
	commitID := commitFile(t, "a.txt", "one\n", "first")

	repo, err := openRepository()
	require.NoError(t, err)
	notes := notesstore.New(repo)

	session := sessionid.Compute("claude-code", "sess-reset-soft")
	log := authorshiplog.NewLog(commitID)
	log.AppendAttestation("a.txt", session, rangeset.Set{{Start: 1, End: 1}})
	log.EnsurePromptsForAttestations()
	require.NoError(t, notes.Put(string(notesstore.Authorship), commitID, log))

	cmd := newResetSoftCmd()
	cmd.SetIn(strings.NewReader(commitID + "\n"))
	require.NoError(t, runResetSoft(cmd))

	wlPath, err := paths.WorkingLogPath()
	require.NoError(t, err)
	wl, err := workinglog.NewManager(wlPath).Load()
	require.NoError(t, err)
	require.Len(t, wl.Files, 1)
	assert.Equal(t, "a.txt", wl.Files[0].Path)
}

func TestResetSoftNoUnwoundCommitsIsANoOp(t *testing.T) {
	initCLITestRepo(t)
	commitFile(t, "a.txt", "one\n", "first")

	cmd := newResetSoftCmd()
	cmd.SetIn(strings.NewReader(""))
	require.NoError(t, runResetSoft(cmd))

	wlPath, err := paths.WorkingLogPath()
	require.NoError(t, err)
	wl, err := workinglog.NewManager(wlPath).Load()
	require.NoError(t, err)
	assert.Empty(t, wl.Files)
}

func TestResetHardClearsWorkingLog(t *testing.T) {
	initCLITestRepo(t)
	commitFile(t, "a.txt", "one\n", "first")

	wlPath, err := paths.WorkingLogPath()
	require.NoError(t, err)
	mgr := workinglog.NewManager(wlPath)
	session := sessionid.Compute("claude-code", "sess-reset-hard")
	require.NoError(t, mgr.Ingest("a.txt", session, rangeset.Set{{Start: 1, End: 1}}, nil))

	cmd := newResetHardCmd()
	require.NoError(t, runResetHard(cmd))

	wl, err := mgr.Load()
	require.NoError(t, err)
	assert.Empty(t, wl.Files)
}

func TestResetPartialOnlyMigratesNamedPaths(t *testing.T) {
	initCLITestRepo(t)
	commitFile(t, "a.txt", "one\n", "first")
	commitID := commitFile(t, "b.txt", "two\n", "second")

	repo, err := openRepository()
	require.NoError(t, err)
	notes := notesstore.New(repo)

	sessA := sessionid.Compute("claude-code", "sess-a")
	sessB := sessionid.Compute("claude-code", "sess-b")
	log := authorshiplog.NewLog(commitID)
	log.AppendAttestation("a.txt", sessA, rangeset.Set{{Start: 1, End: 1}})
	log.AppendAttestation("b.txt", sessB, rangeset.Set{{Start: 1, End: 1}})
	log.EnsurePromptsForAttestations()
	require.NoError(t, notes.Put(string(notesstore.Authorship), commitID, log))

	cmd := newResetPartialCmd()
	cmd.SetIn(strings.NewReader(commitID + "\n"))
	require.NoError(t, runResetPartial(cmd, []string{"b.txt"}))

	wlPath, err := paths.WorkingLogPath()
	require.NoError(t, err)
	wl, err := workinglog.NewManager(wlPath).Load()
	require.NoError(t, err)
	require.Len(t, wl.Files, 1)
	assert.Equal(t, "b.txt", wl.Files[0].Path)
}
