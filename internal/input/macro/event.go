package macro

import (
	"sort"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
)

// Event is one entry of a keystroke timeline.
type Event = keymap.MacroStep

// Rebase returns a copy of events ordered by timestamp (stable) with the
// first event moved to offset 0.
func Rebase(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	if len(out) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampUS < out[j].TimestampUS })
	origin := out[0].TimestampUS
	for i := range out {
		out[i].TimestampUS -= origin
	}
	return out
}

// Normalize returns a copy of events with every code passed through n.
// A nil n uses the default table.
func Normalize(events []Event, n *key.Normalizer) []Event {
	if n == nil {
		n = key.Default()
	}
	out := make([]Event, len(events))
	for i, e := range events {
		e.Code = n.Normalize(string(e.Code))
		out[i] = e
	}
	return out
}
