package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drumsync/drumsync/internal/engine"
	"github.com/drumsync/drumsync/internal/score"
)

func scriptEvents() []engine.Event {
	return []engine.Event{
		{Time: 0.1, Instrument: score.Kick},
		{Time: 0.6, Instrument: score.Snare},
		{Time: 1.1, Instrument: score.Kick},
	}
}

func TestScriptSource_ReplaysInOrder(t *testing.T) {
	src := NewScriptSource(scriptEvents())
	assert.False(t, src.Finished())

	var got []engine.Event
	err := src.Run(context.Background(), func(ev engine.Event) bool {
		got = append(got, ev)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, scriptEvents(), got)
	assert.True(t, src.Finished())
}

func TestScriptSource_CopiesInput(t *testing.T) {
	events := scriptEvents()
	src := NewScriptSource(events)
	events[0].Instrument = score.Hit

	var got []engine.Event
	require.NoError(t, src.Run(context.Background(), func(ev engine.Event) bool {
		got = append(got, ev)
		return true
	}))
	assert.Equal(t, score.Kick, got[0].Instrument)
}

func TestScriptSource_EmitRefusalStopsReplay(t *testing.T) {
	src := NewScriptSource(scriptEvents())

	var count int
	err := src.Run(context.Background(), func(engine.Event) bool {
		count++
		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, src.Finished())
}

func TestScriptSource_StopBeforeRun(t *testing.T) {
	src := NewScriptSource(scriptEvents())
	src.Stop()
	src.Stop()

	var count int
	err := src.Run(context.Background(), func(engine.Event) bool {
		count++
		return true
	})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, src.Finished())
}

func TestScriptSource_CancelledContext(t *testing.T) {
	src := NewScriptSource(scriptEvents())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := src.Run(ctx, func(engine.Event) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScriptSource_EmptyScript(t *testing.T) {
	src := NewScriptSource(nil)
	require.NoError(t, src.Run(context.Background(), func(engine.Event) bool { return true }))
	assert.True(t, src.Finished())
}
