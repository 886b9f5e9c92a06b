package macro

import (
	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
)

// DefaultKeystrokeDelayUS is the spacing between synthesized events.
const DefaultKeystrokeDelayUS uint64 = 10_000

// Stats summarizes a text conversion or a timeline.
type Stats struct {
	Characters            int    `json:"characters"`
	SupportedCharacters   int    `json:"supportedCharacters"`
	UnsupportedCharacters int    `json:"unsupportedCharacters"`
	Steps                 int    `json:"steps"`
	EstimatedDurationMS   uint64 `json:"estimatedDurationMs"`
}

// TimelineStats returns step count and duration for events. Character
// counts are zero.
func TimelineStats(events []Event) Stats {
	s := Stats{Steps: len(events)}
	if n := len(events); n > 0 {
		s.EstimatedDurationMS = (events[n-1].TimestampUS - events[0].TimestampUS) / 1000
	}
	return s
}

// TextConverter synthesizes keystroke timelines from literal text.
// Output depends only on the input text and the converter settings.
type TextConverter struct {
	chars      key.CharMap
	delayUS    uint64
	normalizer *key.Normalizer
}

// TextOption configures a TextConverter.
type TextOption func(*TextConverter)

// WithCharMap sets the character table.
func WithCharMap(m key.CharMap) TextOption {
	return func(c *TextConverter) {
		if m != nil {
			c.chars = m
		}
	}
}

// WithKeystrokeDelay sets the fixed spacing between events in microseconds.
func WithKeystrokeDelay(us uint64) TextOption {
	return func(c *TextConverter) {
		c.delayUS = us
	}
}

// WithTextNormalizer sets the normalizer applied to character table keys.
func WithTextNormalizer(n *key.Normalizer) TextOption {
	return func(c *TextConverter) {
		if n != nil {
			c.normalizer = n
		}
	}
}

// NewTextConverter creates a converter for a US layout with a 10 ms delay.
func NewTextConverter(opts ...TextOption) *TextConverter {
	c := &TextConverter{
		chars:      key.USChars(),
		delayUS:    DefaultKeystrokeDelayUS,
		normalizer: key.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultConverter = NewTextConverter()

// TextToEvents converts text with the default converter.
func TextToEvents(text string) []Event {
	events, _ := defaultConverter.Convert(text)
	return events
}

// Convert returns the timeline that types text and its stats. Characters
// that need Shift are wrapped in a Shift press and release. Unsupported
// characters are skipped and counted.
func (c *TextConverter) Convert(text string) ([]Event, Stats) {
	var (
		events []Event
		stats  Stats
		t      uint64
	)
	emit := func(code key.ID, v keymap.Value) {
		if len(events) > 0 {
			t += c.delayUS
		}
		events = append(events, Event{Code: code, Value: v, TimestampUS: t})
	}

	for _, r := range text {
		stats.Characters++
		ch, ok := c.chars.Lookup(r)
		if !ok {
			stats.UnsupportedCharacters++
			continue
		}
		stats.SupportedCharacters++

		code := c.normalizer.Normalize(string(ch.Key))
		if ch.Shift {
			emit(key.LShift, keymap.Press)
		}
		emit(code, keymap.Press)
		emit(code, keymap.Release)
		if ch.Shift {
			emit(key.LShift, keymap.Release)
		}
	}

	if events == nil {
		events = []Event{}
	}
	stats.Steps = len(events)
	stats.EstimatedDurationMS = t / 1000
	return events, stats
}

// Stats returns the conversion stats for text without keeping the timeline.
func (c *TextConverter) Stats(text string) Stats {
	_, s := c.Convert(text)
	return s
}
