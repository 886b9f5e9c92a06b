package macro

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
	"github.com/dshills/keyforge/internal/script"
)

// ErrNoMacro is returned when a script has no macro bound to the trigger.
var ErrNoMacro = errors.New("no macro for trigger")

// EncodeOptions control how a timeline is rendered.
type EncodeOptions struct {
	// Name is written as the macro display name.
	Name string

	// IncludeComments adds a summary line and per-step notes.
	IncludeComments bool

	// Device wraps the macro in a device block for this pattern.
	Device string
}

// Encode renders events as a macro block bound to trigger. Timestamps are
// re-based so the first event is at offset 0. An empty timeline yields a
// placeholder comment.
func Encode(events []Event, trigger key.ID, opts EncodeOptions) string {
	if len(events) == 0 {
		return fmt.Sprintf("// macro for %s: no events recorded\n", script.CommentText(string(trigger)))
	}
	events = Rebase(events)

	var b strings.Builder
	if opts.IncludeComments {
		stats := TimelineStats(events)
		label := opts.Name
		if label == "" {
			label = trigger.Name()
		}
		fmt.Fprintf(&b, "// %s: %d events over %d ms\n", script.CommentText(label), stats.Steps, stats.EstimatedDurationMS)
	}

	var comment func(int) string
	if opts.IncludeComments {
		notes := stepNotes(events)
		comment = func(i int) string { return notes[i] }
	}
	block := script.MacroBlock(trigger, opts.Name, events, comment)

	if opts.Device == "" {
		b.WriteString(block)
		b.WriteByte('\n')
		return b.String()
	}

	fmt.Fprintf(&b, "device_start(%s);\n", script.Quote(opts.Device))
	for _, line := range strings.Split(block, "\n") {
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("device_end();\n")
	return b.String()
}

// stepNotes labels a press immediately followed by the release of the same
// key as a tap. Other presses and releases are labelled hold and let go.
func stepNotes(events []Event) []string {
	notes := make([]string, len(events))
	for i := 0; i < len(events); i++ {
		e := events[i]
		if e.Value == keymap.Press && i+1 < len(events) &&
			events[i+1].Code == e.Code && events[i+1].Value == keymap.Release {
			notes[i] = "tap " + e.Code.Name()
			i++
			continue
		}
		if e.Value == keymap.Press {
			notes[i] = "hold " + e.Code.Name()
		} else {
			notes[i] = "let go " + e.Code.Name()
		}
	}
	return notes
}

// DecodeScript parses src and returns the timeline of the macro bound to
// trigger. Layers are searched in order. Parse diagnostics are returned
// alongside the timeline.
func DecodeScript(src string, trigger key.ID) ([]Event, script.Diagnostics, error) {
	cfg, diags := script.Parse(src)
	trigger = key.Normalize(string(trigger))

	for _, l := range cfg.Layers {
		m, ok := l.Mappings[trigger]
		if !ok {
			continue
		}
		mac, ok := m.(keymap.Macro)
		if !ok {
			return nil, diags, fmt.Errorf("%w: %s is mapped to a %s", ErrNoMacro, trigger, m.Kind())
		}
		out := make([]Event, len(mac.Steps))
		copy(out, mac.Steps)
		return out, diags, nil
	}
	return nil, diags, fmt.Errorf("%w: %s", ErrNoMacro, trigger)
}
