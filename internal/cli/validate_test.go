package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidBeatmap(t *testing.T) {
	path := writeBeatmap(t, "song.yaml", validBeatmapYAML)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestValidateValidBeatmapJSON(t *testing.T) {
	path := writeBeatmap(t, "song.yaml", validBeatmapYAML)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateLegacyBeatmap(t *testing.T) {
	path := writeBeatmap(t, "song.txt", validBeatmapLegacy)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestValidateInvalidBeatmap(t *testing.T) {
	path := writeBeatmap(t, "bad.yaml", invalidBeatmapYAML)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "error")
}

func TestValidateMissingFile(t *testing.T) {
	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/beatmap.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
