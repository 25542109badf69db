package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/memorylane/internal/storage"
)

func TestPurge_WithoutAllFlag_Errors(t *testing.T) {
	err := RunWithArgs("test", []string{"purge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge requires --all flag for safety")
}

func TestPurge_Confirmed(t *testing.T) {
	e := newTestEnv(t)
	seed(t, e, "1", storage.TypeNote, "t", "text", "general", "2024-01-01T00:00:00.000Z")

	cmd := &PurgeCommand{All: true, globals: &GlobalFlags{}, stdin: strings.NewReader("PURGE\n")}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.confirm())
		require.NoError(t, cmd.executeWith(e))
	})
	assert.Contains(t, output, `Type "PURGE" to confirm`)
	assert.Contains(t, output, "Purged all data")

	all, err := e.coord.GetSavedContent(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	stats, err := e.coord.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ItemCount)
}

func TestPurge_WrongConfirmationAborts(t *testing.T) {
	cmd := &PurgeCommand{All: true, globals: &GlobalFlags{}, stdin: strings.NewReader("yes\n")}
	var err error
	captureOutput(t, func() { err = cmd.confirm() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation text did not match")

	cmd.stdin = strings.NewReader("")
	captureOutput(t, func() { err = cmd.confirm() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input received")
}

func TestPurge_JSONOutput(t *testing.T) {
	e := newTestEnv(t)
	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{JSON: true}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.confirm())
		require.NoError(t, cmd.executeWith(e))
	})

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, true, result["purged"])
	assert.NotEmpty(t, result["timestamp"])
}
