package score

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument_Conforming(t *testing.T) {
	data, err := os.ReadFile("testdata/basic.yaml")
	require.NoError(t, err)

	errs := ValidateDocument("basic.yaml", data)
	assert.Empty(t, errs)
}

func TestValidateDocument_Violations(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{
			name: "negative bpm",
			doc:  "bpm: -5\nseconds_per_slot: 0.5\ntracks:\n  kick: [1]\n",
		},
		{
			name: "zero slot time",
			doc:  "bpm: 120\nseconds_per_slot: 0\ntracks:\n  kick: [1]\n",
		},
		{
			name: "flag out of range",
			doc:  "bpm: 120\nseconds_per_slot: 0.5\ntracks:\n  kick: [1, 3]\n",
		},
		{
			name: "empty track",
			doc:  "bpm: 120\nseconds_per_slot: 0.5\ntracks:\n  kick: []\n",
		},
		{
			name: "missing tracks",
			doc:  "bpm: 120\nseconds_per_slot: 0.5\n",
		},
		{
			name: "bpm not a number",
			doc:  "bpm: fast\nseconds_per_slot: 0.5\ntracks:\n  kick: [1]\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateDocument("test.yaml", []byte(tc.doc))
			require.NotEmpty(t, errs, "expected schema violations")
			for _, e := range errs {
				assert.Equal(t, ErrSchemaViolation, e.Code)
				assert.NotEmpty(t, e.Message)
			}
		})
	}
}

func TestValidateDocument_NotYAML(t *testing.T) {
	errs := ValidateDocument("test.yaml", []byte("\t{unbalanced"))
	assert.NotEmpty(t, errs)
}
