package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRequiresPortFlag(t *testing.T) {
	path := writeBeatmap(t, "song.yaml", validBeatmapYAML)

	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestRunMissingBeatmap(t *testing.T) {
	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		"/nonexistent/beatmap.yaml", "--port", "/dev/null")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunUnopenablePortFailsSession(t *testing.T) {
	path := writeBeatmap(t, "song.yaml", validBeatmapYAML)

	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		path, "--port", "/nonexistent/ttyUSB99")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "session error")
}

func TestRunRejectsBadTuning(t *testing.T) {
	path := writeBeatmap(t, "song.yaml", validBeatmapYAML)

	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		path, "--port", "/dev/null", "--min-bpm", "300")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
