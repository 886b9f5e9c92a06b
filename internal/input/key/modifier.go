package key

import "strings"

// Modifier is a set of physical modifier keys held around an output key.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModShift indicates the Shift key.
	ModShift Modifier = 1 << iota

	// ModCtrl indicates the Control key.
	ModCtrl

	// ModAlt indicates the Alt key (Option on macOS).
	ModAlt

	// ModMeta indicates the Meta key (Cmd on macOS, Win on Windows).
	ModMeta
)

// Has returns true if m contains the specified modifier.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// With returns a new Modifier with the specified modifier added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// Keys returns the left-hand physical keys for m in press order
// (Ctrl, Alt, Shift, Meta).
func (m Modifier) Keys() []ID {
	var keys []ID
	if m.Has(ModCtrl) {
		keys = append(keys, LCtrl)
	}
	if m.Has(ModAlt) {
		keys = append(keys, LAlt)
	}
	if m.Has(ModShift) {
		keys = append(keys, LShift)
	}
	if m.Has(ModMeta) {
		keys = append(keys, LMeta)
	}
	return keys
}

// String returns a human-readable representation like "Ctrl+Alt".
func (m Modifier) String() string {
	if m == ModNone {
		return ""
	}

	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "Ctrl")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "Alt")
	}
	if m.Has(ModShift) {
		parts = append(parts, "Shift")
	}
	if m.Has(ModMeta) {
		parts = append(parts, "Meta")
	}
	return strings.Join(parts, "+")
}
