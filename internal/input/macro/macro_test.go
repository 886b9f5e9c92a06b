package macro

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
)

// fakeClock advances by step on every call.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func press(code key.ID, us uint64) Event {
	return Event{Code: code, Value: keymap.Press, TimestampUS: us}
}

func release(code key.ID, us uint64) Event {
	return Event{Code: code, Value: keymap.Release, TimestampUS: us}
}

// ==================== Recorder Tests ====================

func TestRecorderLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), step: 5 * time.Millisecond}
	r := NewRecorder(WithClock(clock.Now))

	if r.State() != Idle {
		t.Fatalf("State() = %v, want idle", r.State())
	}
	if r.Record("VK_A", keymap.Press) {
		t.Error("Record() while idle should be ignored")
	}

	session, err := r.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if session == "" || r.Session() != session {
		t.Errorf("Session() = %q, want %q", r.Session(), session)
	}
	if _, err := r.Start(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Start() while recording error = %v, want ErrInvalidState", err)
	}

	r.Record("a", keymap.Press)
	r.Record("KeyA", keymap.Release)
	r.Record("VK_B", keymap.Press)

	if _, err := r.Encode("VK_F13", EncodeOptions{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Encode() while recording error = %v, want ErrInvalidState", err)
	}

	got, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	want := []Event{press("VK_A", 0), release("VK_A", 5000), press("VK_B", 10000)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stop() mismatch (-want +got):\n%s", diff)
	}
	if r.State() != Stopped {
		t.Errorf("State() = %v, want stopped", r.State())
	}
	if r.Record("VK_C", keymap.Press) {
		t.Error("Record() after Stop should be ignored")
	}
	if _, err := r.Stop(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Stop() error = %v, want ErrInvalidState", err)
	}

	src, err := r.Encode("VK_F13", EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(src, `macro_start("VK_F13");`) {
		t.Errorf("Encode() = %q", src)
	}

	r.Reset()
	if r.State() != Idle || r.Len() != 0 || r.Session() != "" {
		t.Error("Reset() should return to an empty idle recorder")
	}
}

func TestRecorderSessionsDiffer(t *testing.T) {
	r := NewRecorder()
	first, _ := r.Start()
	r.Stop()
	second, _ := r.Start()
	if first == second {
		t.Errorf("sessions should differ, both %q", first)
	}
}

func TestRecorderRecordAtClamps(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecorder()
	r.Start()
	r.RecordAt("VK_A", keymap.Press, base.Add(time.Second))
	r.RecordAt("VK_A", keymap.Release, base.Add(time.Second+20*time.Millisecond))
	r.RecordAt("VK_B", keymap.Press, base.Add(time.Second+10*time.Millisecond))
	got, _ := r.Stop()

	want := []Event{press("VK_A", 0), release("VK_A", 20000), press("VK_B", 20000)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorderEdits(t *testing.T) {
	r := NewRecorder()

	if err := r.Edit(nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Edit() while idle error = %v, want ErrInvalidState", err)
	}

	r.Start()
	r.Record("VK_A", keymap.Press)
	if err := r.ConfirmEdits(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ConfirmEdits() while recording error = %v, want ErrInvalidState", err)
	}
	r.Stop()

	edited := []Event{press("x", 1000), release("x", 3000)}
	if err := r.Edit(edited); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	pending, ok := r.Pending()
	if !ok {
		t.Fatal("Pending() = false after Edit")
	}
	wantPending := []Event{press("VK_X", 0), release("VK_X", 2000)}
	if diff := cmp.Diff(wantPending, pending); diff != "" {
		t.Errorf("Pending() mismatch (-want +got):\n%s", diff)
	}
	if got := r.Events(); len(got) != 1 || got[0].Code != "VK_A" {
		t.Errorf("Events() before confirm = %v, want original recording", got)
	}

	if err := r.DiscardEdits(); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Pending(); ok {
		t.Error("Pending() = true after DiscardEdits")
	}

	r.Edit(edited)
	if err := r.ConfirmEdits(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantPending, r.Events()); diff != "" {
		t.Errorf("Events() after confirm mismatch (-want +got):\n%s", diff)
	}

	r.Edit([]Event{press("VK_Z", 0)})
	r.Start()
	if _, ok := r.Pending(); ok {
		t.Error("Start() must drop unconfirmed edits")
	}
	if r.Len() != 0 {
		t.Error("Start() must clear the previous timeline")
	}
}

func TestRecorderConcurrentRecord(t *testing.T) {
	r := NewRecorder()
	r.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Record("VK_A", keymap.Press)
			}
		}()
	}
	wg.Wait()

	events, _ := r.Stop()
	if len(events) != 400 {
		t.Fatalf("recorded %d events, want 400", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].TimestampUS < events[i-1].TimestampUS {
			t.Fatalf("timestamp decreased at %d", i)
		}
	}
}

// ==================== Codec Tests ====================

func TestEncodeDecodeFourEvents(t *testing.T) {
	events := []Event{
		press("VK_A", 0),
		release("VK_A", 50000),
		press("VK_B", 100000),
		release("VK_B", 150000),
	}

	src := Encode(events, "VK_F13", EncodeOptions{Name: "ab"})
	want := `macro_start("VK_F13", "ab");
    press("VK_A");
    delay(50);
    release("VK_A");
    delay(50);
    press("VK_B");
    delay(50);
    release("VK_B");
macro_end();
`
	if diff := cmp.Diff(want, src); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}

	got, diags, err := DecodeScript(src, "VK_F13")
	if err != nil {
		t.Fatalf("DecodeScript() error = %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics:\n%s", diags)
	}
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("decoded timeline mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeRebases(t *testing.T) {
	events := []Event{press("VK_A", 2_000_000), release("VK_A", 2_030_000)}
	got, _, err := DecodeScript(Encode(events, "F13", EncodeOptions{}), "VK_F13")
	if err != nil {
		t.Fatal(err)
	}
	want := []Event{press("VK_A", 0), release("VK_A", 30000)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeEmpty(t *testing.T) {
	got := Encode(nil, "VK_F13", EncodeOptions{IncludeComments: true})
	if !strings.HasPrefix(got, "//") {
		t.Errorf("Encode(nil) = %q, want a comment", got)
	}
	if _, _, err := DecodeScript(got, "VK_F13"); !errors.Is(err, ErrNoMacro) {
		t.Errorf("DecodeScript(placeholder) error = %v, want ErrNoMacro", err)
	}
}

func TestEncodeComments(t *testing.T) {
	events := []Event{
		press("VK_LShift", 0),
		press("VK_H", 10000),
		release("VK_H", 20000),
		release("VK_LShift", 30000),
	}
	src := Encode(events, "VK_F13", EncodeOptions{Name: "shout", IncludeComments: true})

	for _, want := range []string{
		"// shout: 4 events over 30 ms",
		`press("VK_LShift"); // hold LShift`,
		`press("VK_H"); // tap H`,
		`release("VK_LShift"); // let go LShift`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("Encode() missing %q in:\n%s", want, src)
		}
	}

	got, _, err := DecodeScript(src, "VK_F13")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("comments changed the timeline (-want +got):\n%s", diff)
	}
}

func TestEncodeCommentsEscapeLineBreaks(t *testing.T) {
	events := []Event{
		press("VK_A", 0),
		release("VK_A", 10000),
		press("VK_X\rmap(\"VK_E\", \"VK_R\")", 20000),
	}
	name := "x\nmap(\"VK_Q\", \"VK_W\");\u2028y"
	src := Encode(events, "VK_F13", EncodeOptions{Name: name, IncludeComments: true})

	got, diags, err := DecodeScript(src, "VK_F13")
	if err != nil {
		t.Fatalf("DecodeScript() error = %v\n%s", err, src)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics:\n%s\n%s", diags, src)
	}
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("decoded timeline mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(src, "// x map(") {
		t.Errorf("summary line = %q", strings.SplitN(src, "\n", 2)[0])
	}
}

func TestEncodeDevice(t *testing.T) {
	events := []Event{press("VK_A", 0), release("VK_A", 0)}
	src := Encode(events, "VK_F13", EncodeOptions{Device: "*Numpad*"})
	if !strings.HasPrefix(src, `device_start("*Numpad*");`) || !strings.HasSuffix(src, "device_end();\n") {
		t.Errorf("Encode() with device = %q", src)
	}
	got, diags, err := DecodeScript(src, "VK_F13")
	if err != nil || len(diags) != 0 {
		t.Fatalf("DecodeScript() = %v, %v", diags, err)
	}
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeScriptWrongKind(t *testing.T) {
	_, _, err := DecodeScript(`map("VK_F13", "VK_A");`, "VK_F13")
	if !errors.Is(err, ErrNoMacro) {
		t.Errorf("DecodeScript() error = %v, want ErrNoMacro", err)
	}
}

// ==================== Text Tests ====================

func TestTextToEvents(t *testing.T) {
	want := []Event{
		press("VK_LShift", 0),
		press("VK_H", 10000),
		release("VK_H", 20000),
		release("VK_LShift", 30000),
		press("VK_I", 40000),
		release("VK_I", 50000),
	}

	first := TextToEvents("Hi")
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("TextToEvents(Hi) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, TextToEvents("Hi")); diff != "" {
		t.Errorf("TextToEvents is not deterministic:\n%s", diff)
	}
}

func TestTextConverterStats(t *testing.T) {
	tests := []struct {
		text string
		want Stats
	}{
		{"", Stats{}},
		{"a", Stats{Characters: 1, SupportedCharacters: 1, Steps: 2, EstimatedDurationMS: 10}},
		{"Hi", Stats{Characters: 2, SupportedCharacters: 2, Steps: 6, EstimatedDurationMS: 50}},
		{"café", Stats{Characters: 4, SupportedCharacters: 3, UnsupportedCharacters: 1, Steps: 6, EstimatedDurationMS: 50}},
	}

	c := NewTextConverter()
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, c.Stats(tt.text)); diff != "" {
			t.Errorf("Stats(%q) mismatch (-want +got):\n%s", tt.text, diff)
		}
	}
}

func TestTextConverterOptions(t *testing.T) {
	c := NewTextConverter(
		WithKeystrokeDelay(1000),
		WithCharMap(key.CharMap{'x': {Key: "KeyQ"}}),
	)
	events, stats := c.Convert("xa")
	want := []Event{press("VK_Q", 0), release("VK_Q", 1000)}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("Convert() mismatch (-want +got):\n%s", diff)
	}
	if stats.UnsupportedCharacters != 1 {
		t.Errorf("UnsupportedCharacters = %d, want 1", stats.UnsupportedCharacters)
	}
}

func TestTextRoundTripThroughScript(t *testing.T) {
	events := TextToEvents("Hello, World!")
	got, _, err := DecodeScript(Encode(events, "VK_F13", EncodeOptions{}), "VK_F13")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}
}

// ==================== Export Tests ====================

func TestExportLoadTemplate(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	events := []Event{press("VK_A", 0), release("VK_A", 50000)}
	doc := NewDocument("greet", "VK_F13", at, events)

	data, err := doc.Export()
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"macroName": "greet"`, `"triggerKey": "VK_F13"`, `"recordedAt"`, `"relative_timestamp_us": 50000`, `"value": "Press"`, `"estimatedDurationMs": 50`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("export missing %s:\n%s", field, data)
		}
	}

	tpl, err := LoadTemplate(data, nil)
	if err != nil {
		t.Fatalf("LoadTemplate() error = %v", err)
	}
	want := &Template{Name: "greet", Trigger: "VK_F13", RecordedAt: at, Events: events}
	if diff := cmp.Diff(want, tpl); diff != "" {
		t.Errorf("LoadTemplate() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(events, doc.Timeline()); diff != "" {
		t.Errorf("Timeline() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTemplateLenient(t *testing.T) {
	src := `{
  "triggerKey": "F14",
  "events": [
    {"code": "KEY_A", "value": 1, "timestamp_us": 1000500},
    {"code": "KEY_A", "value": 2, "timestamp_us": 1000600},
    {"event": {"code": "KeyA", "value": "release"}, "timestamp_us": 1020500},
    {"event": {"code": "b", "value": true}, "relative_timestamp_us": 1030500}
  ]
}`
	tpl, err := LoadTemplate([]byte(src), nil)
	if err != nil {
		t.Fatalf("LoadTemplate() error = %v", err)
	}
	if tpl.Trigger != "VK_F14" {
		t.Errorf("Trigger = %q, want VK_F14", tpl.Trigger)
	}
	want := []Event{press("VK_A", 0), release("VK_A", 20000), press("VK_B", 30000)}
	if diff := cmp.Diff(want, tpl.Events); diff != "" {
		t.Errorf("Events mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTemplateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"not json", `{"events": [`},
		{"no events", `{"macroName": "x"}`},
		{"missing code", `{"events": [{"event": {"value": "Press"}}]}`},
		{"bad value", `{"events": [{"event": {"code": "VK_A", "value": "Wiggle"}}]}`},
		{"missing value", `{"events": [{"event": {"code": "VK_A"}}]}`},
		{"negative time", `{"events": [{"event": {"code": "VK_A", "value": 1}, "relative_timestamp_us": -5}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTemplate([]byte(tt.src), nil); !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("LoadTemplate() error = %v, want ErrInvalidTemplate", err)
			}
		})
	}
}

func TestDocumentSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "macro.json")

	doc := NewDocument("x", "VK_F13", time.Time{}, TextToEvents("ok"))
	if err := doc.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	tpl, err := LoadTemplateFile(path, nil)
	if err != nil {
		t.Fatalf("LoadTemplateFile() error = %v", err)
	}
	if diff := cmp.Diff(TextToEvents("ok"), tpl.Events); diff != "" {
		t.Errorf("saved timeline mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorderDocument(t *testing.T) {
	r := NewRecorder()
	if _, err := r.Document("x", "VK_F13"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Document() while idle error = %v, want ErrInvalidState", err)
	}
	r.Start()
	r.Record("VK_A", keymap.Press)
	r.Stop()
	doc, err := r.Document("x", "VK_F13")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Stats.Steps != 1 || len(doc.Events) != 1 {
		t.Errorf("Document() = %+v", doc)
	}
}
