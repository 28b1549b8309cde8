// Package source provides event producers for the engine: a serial
// hardware reader, a simulated performer, and a scripted replay double.
// All of them satisfy the engine.Source contract.
package source

import (
	"strings"

	"github.com/drumsync/drumsync/internal/score"
)

// Sensor lines are tagged with a single letter naming the instrument
// that was struck. The tag is the first field of the line; anything
// after it (raw sensor readings) is ignored.
var tagInstruments = map[string]score.Instrument{
	"K": score.Kick,
	"S": score.Snare,
	"H": score.Hit,
}

// instrumentForLine classifies one sensor line. Returns false for blank
// lines and unknown tags.
func instrumentForLine(line string) (score.Instrument, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	inst, ok := tagInstruments[strings.ToUpper(fields[0])]
	return inst, ok
}
