package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
	"github.com/dshills/keyforge/internal/input/macro"
)

func TestTranslate(t *testing.T) {
	chars := key.USChars()
	tests := []struct {
		name     string
		key      tcell.Key
		ch       rune
		mod      tcell.ModMask
		wantCode key.ID
		wantMods key.Modifier
		wantOK   bool
	}{
		{"lower", tcell.KeyRune, 'a', tcell.ModNone, "VK_A", 0, true},
		{"upper", tcell.KeyRune, 'A', tcell.ModNone, "VK_A", key.ModShift, true},
		{"shifted punct", tcell.KeyRune, '!', tcell.ModNone, "VK_Num1", key.ModShift, true},
		{"alt rune", tcell.KeyRune, 'x', tcell.ModAlt, "VK_X", key.ModAlt, true},
		{"enter", tcell.KeyEnter, 0, tcell.ModNone, key.Enter, 0, true},
		{"backspace2", tcell.KeyBackspace2, 0, tcell.ModNone, "VK_Backspace", 0, true},
		{"backtab", tcell.KeyBacktab, 0, tcell.ModNone, key.Tab, key.ModShift, true},
		{"arrow", tcell.KeyLeft, 0, tcell.ModShift, "VK_Left", key.ModShift, true},
		{"f5", tcell.KeyF5, 0, tcell.ModNone, "VK_F5", 0, true},
		{"f24", tcell.KeyF24, 0, tcell.ModNone, "VK_F24", 0, true},
		{"ctrl letter", tcell.KeyCtrlW, 0, tcell.ModNone, "VK_W", key.ModCtrl, true},
		{"unmapped rune", tcell.KeyRune, 'é', tcell.ModNone, "", 0, false},
		{"f30", tcell.KeyF30, 0, tcell.ModNone, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, mods, ok := Translate(tcell.NewEventKey(tt.key, tt.ch, tt.mod), chars)
			if ok != tt.wantOK || code != tt.wantCode || mods != tt.wantMods {
				t.Errorf("Translate() = %v, %v, %v; want %v, %v, %v",
					code, mods, ok, tt.wantCode, tt.wantMods, tt.wantOK)
			}
		})
	}
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(s.Fini)
	return s
}

type step struct {
	Code  key.ID
	Value keymap.Value
}

func steps(events []macro.Event) []step {
	out := make([]step, len(events))
	for i, ev := range events {
		out[i] = step{ev.Code, ev.Value}
	}
	return out
}

func TestRun(t *testing.T) {
	screen := newScreen(t)
	rec := macro.NewRecorder()
	c := New(screen, rec)

	screen.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'A', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'é', tcell.ModNone)
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyCtrlD, 0, tcell.ModNone)

	events, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []step{
		{"VK_A", keymap.Press},
		{"VK_A", keymap.Release},
		{key.LShift, keymap.Press},
		{"VK_A", keymap.Press},
		{"VK_A", keymap.Release},
		{key.LShift, keymap.Release},
		{key.Enter, keymap.Press},
		{key.Enter, keymap.Release},
	}
	if diff := cmp.Diff(want, steps(events)); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
	if events[0].TimestampUS != 0 {
		t.Errorf("first event at %dus, want 0", events[0].TimestampUS)
	}
	if got := events[1].TimestampUS; got < uint64(DefaultTapDuration.Microseconds()) {
		t.Errorf("release at %dus, want at least the tap duration", got)
	}
	if rec.State() != macro.Stopped {
		t.Errorf("State() = %v, want Stopped", rec.State())
	}
}

func TestRunStopKey(t *testing.T) {
	screen := newScreen(t)
	c := New(screen, macro.NewRecorder(), WithStopKey(tcell.KeyEscape), WithTapDuration(0))

	screen.InjectKey(tcell.KeyCtrlD, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	events, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []step{
		{key.LCtrl, keymap.Press},
		{"VK_D", keymap.Press},
		{"VK_D", keymap.Release},
		{key.LCtrl, keymap.Release},
	}
	if diff := cmp.Diff(want, steps(events)); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
	for _, ev := range events {
		if ev.TimestampUS != 0 {
			t.Errorf("event %v at %dus, want 0 with no tap duration", ev.Code, ev.TimestampUS)
		}
	}
}

func TestRunCanceled(t *testing.T) {
	screen := newScreen(t)
	c := New(screen, macro.NewRecorder())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, err := c.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(events) != 0 {
		t.Errorf("Run() = %v, want no events", events)
	}
}

func TestRunBusyRecorder(t *testing.T) {
	rec := macro.NewRecorder()
	if _, err := rec.Start(); err != nil {
		t.Fatal(err)
	}
	c := New(newScreen(t), rec)
	if _, err := c.Run(context.Background()); !errors.Is(err, macro.ErrInvalidState) {
		t.Errorf("Run() error = %v, want ErrInvalidState", err)
	}
}
