package cli

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/checkpoint"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/config"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
)

func TestIngestCmdRecordsCheckpointAndPrintsSequence(t *testing.T) {
	initCLITestRepo(t)

	cmd := newIngestCmd()
	cmd.SetIn(strings.NewReader(`{"kind":"ai","pre_image":"a\n","post_image":"a\nb\n"}`))
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)

	err := runIngest(cmd, "main.go", "0123456789abcdef")
	require.NoError(t, err)

	seq, convErr := strconv.Atoi(strings.TrimSpace(stdout.String()))
	require.NoError(t, convErr)
	assert.Equal(t, 1, seq)

	dir, err := paths.CheckpointsPath()
	require.NoError(t, err)
	store := checkpoint.NewFileStore(dir)
	cps, err := store.Range(context.Background(), []string{"main.go"}, 0)
	require.NoError(t, err)
	require.Len(t, cps, 1)
	assert.Equal(t, checkpoint.KindAI, cps[0].Kind)
	assert.Equal(t, "main.go", cps[0].Path)
}

func TestIngestCmdSkipsWhenDisabled(t *testing.T) {
	initCLITestRepo(t)

	settings, err := config.Load()
	require.NoError(t, err)
	settings.Enabled = false
	require.NoError(t, config.Save(settings))

	cmd := newIngestCmd()
	cmd.SetIn(strings.NewReader(`{"kind":"ai","pre_image":"","post_image":"x\n"}`))
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)

	err = runIngest(cmd, "main.go", "0123456789abcdef")
	require.NoError(t, err)
	assert.Empty(t, stdout.String())
}

func TestIngestCmdRejectsMalformedSessionHash(t *testing.T) {
	initCLITestRepo(t)

	cmd := newIngestCmd()
	cmd.SetIn(strings.NewReader(`{"kind":"ai","pre_image":"","post_image":"x\n"}`))
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)

	err := runIngest(cmd, "main.go", "not-hex!!")
	assert.Error(t, err)
}
