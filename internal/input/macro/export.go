package macro

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
)

// ErrInvalidTemplate is returned when a template document cannot be read.
var ErrInvalidTemplate = errors.New("invalid macro template")

// Document is the JSON export of a recorded or synthesized macro.
type Document struct {
	MacroName  string     `json:"macroName"`
	TriggerKey key.ID     `json:"triggerKey"`
	RecordedAt time.Time  `json:"recordedAt"`
	Stats      Stats      `json:"stats"`
	Events     []docEvent `json:"events"`
}

type docEvent struct {
	Event               docKey `json:"event"`
	RelativeTimestampUS uint64 `json:"relative_timestamp_us"`
}

type docKey struct {
	Code  key.ID `json:"code"`
	Value string `json:"value"`
}

// NewDocument builds an export document. Events are re-based.
func NewDocument(name string, trigger key.ID, recordedAt time.Time, events []Event) *Document {
	events = Rebase(events)
	doc := &Document{
		MacroName:  name,
		TriggerKey: trigger,
		RecordedAt: recordedAt.UTC(),
		Stats:      TimelineStats(events),
		Events:     make([]docEvent, len(events)),
	}
	for i, e := range events {
		doc.Events[i] = docEvent{
			Event:               docKey{Code: e.Code, Value: e.Value.String()},
			RelativeTimestampUS: e.TimestampUS,
		}
	}
	return doc
}

// Timeline returns the document's events.
func (d *Document) Timeline() []Event {
	out := make([]Event, len(d.Events))
	for i, e := range d.Events {
		v := keymap.Release
		if strings.EqualFold(e.Event.Value, "press") {
			v = keymap.Press
		}
		out[i] = Event{Code: e.Event.Code, Value: v, TimestampUS: e.RelativeTimestampUS}
	}
	return out
}

// Export encodes the document as indented JSON.
func (d *Document) Export() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal macro: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the document to path atomically using a temp file and rename.
func (d *Document) Save(path string) error {
	data, err := d.Export()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Template is a timeline loaded from a document.
type Template struct {
	Name       string
	Trigger    key.ID
	RecordedAt time.Time
	Events     []Event
}

// LoadTemplate reads a document produced by Export, or a hand-written one.
// It accepts relative_timestamp_us or the older timestamp_us field, values
// given as "Press"/"Release", 1/0 or true/false, and flat events without
// the nested "event" object. Key repeats (value 2) are dropped. Codes are
// normalized with n (nil means the default table) and the timeline is
// re-based.
func LoadTemplate(data []byte, n *key.Normalizer) (*Template, error) {
	if n == nil {
		n = key.Default()
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidTemplate)
	}
	root := gjson.ParseBytes(data)

	list := root.Get("events")
	if !list.Exists() && root.IsArray() {
		list = root
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: missing events array", ErrInvalidTemplate)
	}

	tpl := &Template{Name: root.Get("macroName").String()}
	if trig := root.Get("triggerKey"); trig.Exists() && trig.String() != "" {
		tpl.Trigger = n.Normalize(trig.String())
	}
	if at := root.Get("recordedAt"); at.Exists() {
		if t, err := time.Parse(time.RFC3339Nano, at.String()); err == nil {
			tpl.RecordedAt = t
		}
	}

	var (
		err error
		idx = -1
	)
	events := make([]Event, 0, len(list.Array()))
	list.ForEach(func(_, item gjson.Result) bool {
		idx++
		ev := item.Get("event")
		if !ev.Exists() {
			ev = item
		}

		code := ev.Get("code").String()
		if code == "" {
			err = fmt.Errorf("%w: event %d has no code", ErrInvalidTemplate, idx)
			return false
		}

		v, keep, verr := parseValue(ev.Get("value"))
		if verr != nil {
			err = fmt.Errorf("%w: event %d: %v", ErrInvalidTemplate, idx, verr)
			return false
		}
		if !keep {
			return true
		}

		ts := item.Get("relative_timestamp_us")
		if !ts.Exists() {
			ts = item.Get("timestamp_us")
		}
		if ts.Exists() && ts.Type != gjson.Number {
			err = fmt.Errorf("%w: event %d timestamp is not a number", ErrInvalidTemplate, idx)
			return false
		}
		if ts.Num < 0 {
			err = fmt.Errorf("%w: event %d timestamp is negative", ErrInvalidTemplate, idx)
			return false
		}

		events = append(events, Event{
			Code:        n.Normalize(code),
			Value:       v,
			TimestampUS: ts.Uint(),
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	tpl.Events = Rebase(events)
	return tpl, nil
}

// LoadTemplateFile reads a template from path.
func LoadTemplateFile(path string, n *key.Normalizer) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read macro template: %w", err)
	}
	tpl, err := LoadTemplate(data, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tpl, nil
}

// parseValue returns the key direction and whether the event is kept.
func parseValue(r gjson.Result) (keymap.Value, bool, error) {
	switch r.Type {
	case gjson.String:
		switch strings.ToLower(r.String()) {
		case "press", "down", "pressed":
			return keymap.Press, true, nil
		case "release", "up", "released":
			return keymap.Release, true, nil
		case "repeat":
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("unknown value %q", r.String())
	case gjson.Number:
		switch r.Int() {
		case 1:
			return keymap.Press, true, nil
		case 0:
			return keymap.Release, true, nil
		case 2:
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("unknown value %d", r.Int())
	case gjson.True:
		return keymap.Press, true, nil
	case gjson.False:
		return keymap.Release, true, nil
	}
	return 0, false, errors.New("missing value")
}

// DefaultRecordingsDir returns the directory for saved recordings.
// On Unix-like systems: ~/.config/keyforge/macros
// On Windows: %APPDATA%/keyforge/macros
func DefaultRecordingsDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "keyforge", "macros"), nil
}
