package keymap

import (
	"fmt"

	"github.com/dshills/keyforge/internal/input/key"
)

// DefaultThresholdMS is the tap/hold threshold used when none is given.
const DefaultThresholdMS uint32 = 200

// Kind identifies a Mapping variant.
type Kind uint8

const (
	KindSimple Kind = iota
	KindTapHold
	KindMacro
	KindLayerSwitch
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindTapHold:
		return "tap_hold"
	case KindMacro:
		return "macro"
	case KindLayerSwitch:
		return "layer_switch"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Mapping is the action bound to a key on a layer.
// The set of implementations is closed: Simple, TapHold, Macro, LayerSwitch.
type Mapping interface {
	Kind() Kind
	isMapping()
}

// Simple remaps a key to another key.
type Simple struct {
	Tap key.ID
}

// TapHold emits Tap on a quick press and Hold once ThresholdMS elapses.
type TapHold struct {
	Tap         key.ID
	Hold        key.ID
	ThresholdMS uint32
}

// Macro emits a timed sequence of key events.
type Macro struct {
	Steps []MacroStep
}

// LayerSwitch activates Target while the key is in effect.
type LayerSwitch struct {
	Target LayerID
}

func (Simple) Kind() Kind      { return KindSimple }
func (TapHold) Kind() Kind     { return KindTapHold }
func (Macro) Kind() Kind       { return KindMacro }
func (LayerSwitch) Kind() Kind { return KindLayerSwitch }

func (Simple) isMapping()      {}
func (TapHold) isMapping()     {}
func (Macro) isMapping()       {}
func (LayerSwitch) isMapping() {}

// Value is the direction of a key event.
type Value uint8

const (
	Release Value = 0
	Press   Value = 1
)

// String returns "Press" or "Release".
func (v Value) String() string {
	if v == Press {
		return "Press"
	}
	return "Release"
}

// MacroStep is one event in a macro or recorded timeline.
// TimestampUS is relative to the first step and never decreases.
type MacroStep struct {
	Code        key.ID
	Value       Value
	TimestampUS uint64
}

// Tap returns a press and release of code at offset us.
func Tap(code key.ID, us uint64) []MacroStep {
	return []MacroStep{
		{Code: code, Value: Press, TimestampUS: us},
		{Code: code, Value: Release, TimestampUS: us},
	}
}

// Chord returns the steps for pressing code while holding mods, all at offset 0.
// Modifiers are pressed in order and released in reverse.
func Chord(code key.ID, mods ...key.ID) Macro {
	steps := make([]MacroStep, 0, 2*len(mods)+2)
	for _, m := range mods {
		steps = append(steps, MacroStep{Code: m, Value: Press})
	}
	steps = append(steps, Tap(code, 0)...)
	for i := len(mods) - 1; i >= 0; i-- {
		steps = append(steps, MacroStep{Code: mods[i], Value: Release})
	}
	return Macro{Steps: steps}
}

// DurationUS returns the offset of the last step.
func (m Macro) DurationUS() uint64 {
	if len(m.Steps) == 0 {
		return 0
	}
	return m.Steps[len(m.Steps)-1].TimestampUS
}

// Validate checks the structural invariants of a mapping.
func Validate(m Mapping) error {
	switch v := m.(type) {
	case Simple:
		if v.Tap == "" {
			return fmt.Errorf("%w: empty tap key", ErrInvalidMapping)
		}
	case TapHold:
		if v.Tap == "" || v.Hold == "" {
			return fmt.Errorf("%w: tap_hold needs both keys", ErrInvalidMapping)
		}
		if v.ThresholdMS == 0 {
			return fmt.Errorf("%w: tap_hold threshold must be positive", ErrInvalidMapping)
		}
	case Macro:
		var last uint64
		for i, s := range v.Steps {
			if s.Code == "" {
				return fmt.Errorf("%w: macro step %d has no key", ErrInvalidMapping, i)
			}
			if s.TimestampUS < last {
				return fmt.Errorf("%w: macro step %d goes back in time", ErrInvalidMapping, i)
			}
			last = s.TimestampUS
		}
	case LayerSwitch:
		if v.Target == "" {
			return fmt.Errorf("%w: empty layer target", ErrInvalidMapping)
		}
	case nil:
		return fmt.Errorf("%w: nil mapping", ErrInvalidMapping)
	}
	return nil
}

func cloneMapping(m Mapping) Mapping {
	if mac, ok := m.(Macro); ok {
		steps := make([]MacroStep, len(mac.Steps))
		copy(steps, mac.Steps)
		return Macro{Steps: steps}
	}
	return m
}

// normalizeMapping returns a copy of m with canonical key ids.
func normalizeMapping(m Mapping) Mapping {
	switch v := m.(type) {
	case Simple:
		return Simple{Tap: normalizeKey(v.Tap)}
	case TapHold:
		v.Tap = normalizeKey(v.Tap)
		v.Hold = normalizeKey(v.Hold)
		return v
	case Macro:
		steps := make([]MacroStep, len(v.Steps))
		for i, s := range v.Steps {
			s.Code = normalizeKey(s.Code)
			steps[i] = s
		}
		return Macro{Steps: steps}
	}
	return m
}

// EqualMappings reports whether a and b are the same variant with the same fields.
func EqualMappings(a, b Mapping) bool {
	switch av := a.(type) {
	case Simple:
		bv, ok := b.(Simple)
		return ok && av == bv
	case TapHold:
		bv, ok := b.(TapHold)
		return ok && av == bv
	case LayerSwitch:
		bv, ok := b.(LayerSwitch)
		return ok && av == bv
	case Macro:
		bv, ok := b.(Macro)
		if !ok || len(av.Steps) != len(bv.Steps) {
			return false
		}
		for i := range av.Steps {
			if av.Steps[i] != bv.Steps[i] {
				return false
			}
		}
		return true
	}
	return a == nil && b == nil
}
