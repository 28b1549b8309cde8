package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ProducesValidV7(t *testing.T) {
	g := UUIDv7Generator{}

	token := g.Generate()
	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	g := UUIDv7Generator{}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := g.Generate()
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestFixedGenerator_InOrder(t *testing.T) {
	g := NewFixedGenerator("s-1", "s-2")

	assert.Equal(t, "s-1", g.Generate())
	assert.Equal(t, "s-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
