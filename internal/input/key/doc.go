// Package key provides canonical key identifiers and alias resolution.
//
// Every physical or virtual key is represented by a single canonical
// identifier, an ID carrying the "VK_" prefix:
//
//   - Letters: VK_A ... VK_Z
//   - Top-row digits: VK_Num0 ... VK_Num9
//   - Numeric pad: VK_Numpad0 ... VK_Numpad9, VK_NumpadAdd, VK_NumpadEnter, ...
//   - Physical modifiers: VK_LShift, VK_RCtrl, VK_LAlt, VK_LMeta, ...
//
// # Normalization
//
// Normalize maps any known spelling of a key to its canonical ID. Browser
// KeyboardEvent.code values ("KeyA", "Digit1", "Numpad1"), Linux evdev
// names ("KEY_A", "KEY_KP1"), short names ("Esc", "Ctrl") and bare
// characters ("a", "1") are all resolved through a fixed alias table.
// Unknown strings are prefixed, strings that already carry the prefix
// are returned unchanged. Normalize never fails and is idempotent:
//
//	key.Normalize(key.Normalize(s)) == key.Normalize(s)
//
// The alias table is read-only after construction. Layout overlays
// (see NewNormalizer) build a separate table and never mutate the default.
//
// # Characters
//
// CharMap resolves printable characters to the key that types them on a
// US layout, plus whether Shift is required. It backs text-to-macro
// conversion.
package key
