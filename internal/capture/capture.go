// Package capture records keystrokes typed into a terminal.
//
// Terminals report key presses, not separate press and release events, so
// every keystroke is recorded as a press followed by a release TapDuration
// later, wrapped in presses of any reported modifiers.
package capture

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
	"github.com/dshills/keyforge/internal/input/macro"
	"github.com/dshills/keyforge/internal/logging"
)

// DefaultTapDuration is the gap between a synthesized press and release.
const DefaultTapDuration = 10 * time.Millisecond

// Capture feeds terminal key events into a macro recorder.
type Capture struct {
	screen tcell.Screen
	rec    *macro.Recorder
	chars  key.CharMap
	stop   tcell.Key
	tap    time.Duration
	logger *zap.Logger
}

// Option configures a Capture.
type Option func(*Capture)

// WithStopKey sets the key that ends the capture. The default is Ctrl+D.
func WithStopKey(k tcell.Key) Option {
	return func(c *Capture) {
		c.stop = k
	}
}

// WithCharMap sets the table used to resolve typed characters.
func WithCharMap(m key.CharMap) Option {
	return func(c *Capture) {
		if m != nil {
			c.chars = m
		}
	}
}

// WithTapDuration sets the press-to-release gap.
func WithTapDuration(d time.Duration) Option {
	return func(c *Capture) {
		if d >= 0 {
			c.tap = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Capture) {
		c.logger = l
	}
}

// New creates a capture reading from screen, which must be initialized.
func New(screen tcell.Screen, rec *macro.Recorder, opts ...Option) *Capture {
	c := &Capture{
		screen: screen,
		rec:    rec,
		chars:  key.USChars(),
		stop:   tcell.KeyCtrlD,
		tap:    DefaultTapDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger).Named("capture")
	return c
}

// Run starts the recorder and records key events until the stop key is
// pressed, ctx is done, or the screen is finalized. It returns the
// recorded timeline.
func (c *Capture) Run(ctx context.Context) ([]macro.Event, error) {
	session, err := c.rec.Start()
	if err != nil {
		return nil, err
	}
	c.logger.Info("recording started", zap.String("session", session))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-done:
		}
	}()

	c.status()
	for {
		ev := c.screen.PollEvent()
		if ev == nil {
			break
		}
		if _, ok := ev.(*tcell.EventInterrupt); ok && ctx.Err() != nil {
			break
		}
		kev, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		if c.isStop(kev) {
			break
		}
		if !c.record(kev) {
			c.logger.Debug("key ignored", zap.String("key", kev.Name()))
		}
		c.status()
	}

	events, err := c.rec.Stop()
	if err != nil {
		return nil, err
	}
	c.logger.Info("recording stopped", zap.String("session", session), zap.Int("events", len(events)))
	return events, ctx.Err()
}

func (c *Capture) record(ev *tcell.EventKey) bool {
	code, mods, ok := Translate(ev, c.chars)
	if !ok {
		return false
	}

	c.logger.Debug("key", zap.String("code", string(code)), zap.Stringer("mods", mods))

	at := ev.When()
	up := at.Add(c.tap)
	keys := mods.Keys()
	for _, m := range keys {
		c.rec.RecordAt(m, keymap.Press, at)
	}
	c.rec.RecordAt(code, keymap.Press, at)
	c.rec.RecordAt(code, keymap.Release, up)
	for i := len(keys) - 1; i >= 0; i-- {
		c.rec.RecordAt(keys[i], keymap.Release, up)
	}
	return true
}

// isStop reports whether ev is the stop key. Control keys may arrive as
// a rune with the Ctrl modifier.
func (c *Capture) isStop(ev *tcell.EventKey) bool {
	if ev.Key() == c.stop {
		return true
	}
	if c.stop < tcell.KeyCtrlA || c.stop > tcell.KeyCtrlZ {
		return false
	}
	return ev.Key() == tcell.KeyRune && ev.Modifiers()&tcell.ModCtrl != 0 &&
		unicode.ToLower(ev.Rune()) == 'a'+rune(c.stop-tcell.KeyCtrlA)
}

func (c *Capture) status() {
	msg := fmt.Sprintf("recording: %d events (%s to stop)", c.rec.Len(), tcell.KeyNames[c.stop])
	c.screen.Clear()
	for i, r := range msg {
		c.screen.SetContent(i, 0, r, nil, tcell.StyleDefault)
	}
	c.screen.Show()
}

var specialKeys = map[tcell.Key]key.ID{
	tcell.KeyEnter:      key.Enter,
	tcell.KeyTab:        key.Tab,
	tcell.KeyBacktab:    key.Tab,
	tcell.KeyBackspace:  "VK_Backspace",
	tcell.KeyBackspace2: "VK_Backspace",
	tcell.KeyEscape:     key.Escape,
	tcell.KeyDelete:     "VK_Delete",
	tcell.KeyInsert:     "VK_Insert",
	tcell.KeyHome:       "VK_Home",
	tcell.KeyEnd:        "VK_End",
	tcell.KeyPgUp:       "VK_PageUp",
	tcell.KeyPgDn:       "VK_PageDown",
	tcell.KeyUp:         "VK_Up",
	tcell.KeyDown:       "VK_Down",
	tcell.KeyLeft:       "VK_Left",
	tcell.KeyRight:      "VK_Right",
	tcell.KeyPrint:      "VK_PrintScreen",
	tcell.KeyPause:      "VK_Pause",
	tcell.KeyCtrlSpace:  key.Space,
}

// Translate maps a terminal key event to a key and the modifiers held
// with it. ok is false for events with no key equivalent.
func Translate(ev *tcell.EventKey, chars key.CharMap) (code key.ID, mods key.Modifier, ok bool) {
	mods = modifiersOf(ev.Modifiers())

	switch k := ev.Key(); {
	case k == tcell.KeyRune:
		c, found := chars.Lookup(ev.Rune())
		if !found {
			return "", 0, false
		}
		if c.Shift {
			mods = mods.With(key.ModShift)
		}
		return key.Normalize(string(c.Key)), mods, true

	case k >= tcell.KeyF1 && k <= tcell.KeyF24:
		return key.ID(fmt.Sprintf("%sF%d", key.Prefix, k-tcell.KeyF1+1)), mods, true

	default:
		if id, found := specialKeys[k]; found {
			if k == tcell.KeyBacktab {
				mods = mods.With(key.ModShift)
			}
			if k == tcell.KeyCtrlSpace {
				mods = mods.With(key.ModCtrl)
			}
			return id, mods, true
		}
		if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
			return key.ID(fmt.Sprintf("%s%c", key.Prefix, 'A'+rune(k-tcell.KeyCtrlA))), mods.With(key.ModCtrl), true
		}
	}
	return "", 0, false
}

func modifiersOf(m tcell.ModMask) key.Modifier {
	var out key.Modifier
	if m&tcell.ModShift != 0 {
		out = out.With(key.ModShift)
	}
	if m&tcell.ModCtrl != 0 {
		out = out.With(key.ModCtrl)
	}
	if m&tcell.ModAlt != 0 {
		out = out.With(key.ModAlt)
	}
	if m&tcell.ModMeta != 0 {
		out = out.With(key.ModMeta)
	}
	return out
}
