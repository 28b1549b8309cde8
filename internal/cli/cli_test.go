package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const validBeatmapYAML = `bpm: 120
seconds_per_slot: 0.01
tracks:
  kick: [1, 0, 1, 0]
  snare: [0, 1, 0, 1]
`

const invalidBeatmapYAML = `bpm: -10
seconds_per_slot: 0.5
tracks:
  kick: [1, 0]
`

const validBeatmapLegacy = `# drum_sync_data export
bpm: 110
sensor_rate_hz: 200
samples_per_array_element: 100
beat_array_kick: 1,0,0,1
beat_array_snare: 0,1,0,0
`

// writeBeatmap drops beatmap content into a temp file and returns its
// path.
func writeBeatmap(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs a command with captured output.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
