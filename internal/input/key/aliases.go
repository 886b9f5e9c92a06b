package key

import "fmt"

// canonicalNames lists every key name the built-in table knows, without prefix.
var canonicalNames = func() []string {
	names := make([]string, 0, 128)
	for c := 'A'; c <= 'Z'; c++ {
		names = append(names, string(c))
	}
	for d := 0; d <= 9; d++ {
		names = append(names, fmt.Sprintf("Num%d", d))
	}
	for f := 1; f <= 24; f++ {
		names = append(names, fmt.Sprintf("F%d", f))
	}
	for d := 0; d <= 9; d++ {
		names = append(names, fmt.Sprintf("Numpad%d", d))
	}
	names = append(names,
		"NumpadAdd", "NumpadSubtract", "NumpadMultiply", "NumpadDivide",
		"NumpadDecimal", "NumpadEnter", "NumpadEqual", "NumLock",

		"LShift", "RShift", "LCtrl", "RCtrl", "LAlt", "RAlt", "LMeta", "RMeta",

		"Escape", "Enter", "Backspace", "Tab", "Space", "CapsLock", "ScrollLock",
		"PrintScreen", "Pause", "Insert", "Delete", "Home", "End", "PageUp", "PageDown",
		"Left", "Right", "Up", "Down", "Menu",

		"LeftBracket", "RightBracket", "Backslash", "Semicolon", "Quote", "Comma",
		"Period", "Slash", "Grave", "Minus", "Equal", "IntlBackslash",

		"Mute", "VolumeUp", "VolumeDown", "MediaPlayPause", "MediaStop",
		"MediaNext", "MediaPrevious",
	)
	return names
}()

var canonicalSet = func() map[ID]struct{} {
	set := make(map[ID]struct{}, len(canonicalNames))
	for _, name := range canonicalNames {
		set[ID(Prefix+name)] = struct{}{}
	}
	return set
}()

// namedAliases holds spellings that are not derived mechanically.
// Keys are raw spellings, values are canonical names without prefix.
var namedAliases = map[string]string{
	// Short and legacy names
	"Esc":        "Escape",
	"Return":     "Enter",
	"Del":        "Delete",
	"Ins":        "Insert",
	"BS":         "Backspace",
	"PgUp":       "PageUp",
	"PgDn":       "PageDown",
	"PrtSc":      "PrintScreen",
	"Apps":       "Menu",
	"Ctrl":       "LCtrl",
	"Control":    "LCtrl",
	"Shift":      "LShift",
	"Alt":        "LAlt",
	"Option":     "LAlt",
	"Meta":       "LMeta",
	"Win":        "LMeta",
	"Cmd":        "LMeta",
	"Super":      "LMeta",
	"AltGr":      "RAlt",
	"LControl":   "LCtrl",
	"RControl":   "RCtrl",
	"LWin":       "LMeta",
	"RWin":       "RMeta",
	"LeftShift":  "LShift",
	"RightShift": "RShift",
	"Apostrophe": "Quote",
	"Backtick":   "Grave",
	"LeftBrace":  "LeftBracket",
	"RightBrace": "RightBracket",

	// Browser KeyboardEvent.code
	"ShiftLeft":          "LShift",
	"ShiftRight":         "RShift",
	"ControlLeft":        "LCtrl",
	"ControlRight":       "RCtrl",
	"AltLeft":            "LAlt",
	"AltRight":           "RAlt",
	"MetaLeft":           "LMeta",
	"MetaRight":          "RMeta",
	"OSLeft":             "LMeta",
	"OSRight":            "RMeta",
	"ArrowLeft":          "Left",
	"ArrowRight":         "Right",
	"ArrowUp":            "Up",
	"ArrowDown":          "Down",
	"BracketLeft":        "LeftBracket",
	"BracketRight":       "RightBracket",
	"Backquote":          "Grave",
	"ContextMenu":        "Menu",
	"NumpadComma":        "NumpadDecimal",
	"AudioVolumeMute":    "Mute",
	"AudioVolumeUp":      "VolumeUp",
	"AudioVolumeDown":    "VolumeDown",
	"MediaTrackNext":     "MediaNext",
	"MediaTrackPrevious": "MediaPrevious",

	// Linux evdev
	"KEY_ESC":          "Escape",
	"KEY_ENTER":        "Enter",
	"KEY_BACKSPACE":    "Backspace",
	"KEY_TAB":          "Tab",
	"KEY_SPACE":        "Space",
	"KEY_CAPSLOCK":     "CapsLock",
	"KEY_SCROLLLOCK":   "ScrollLock",
	"KEY_SYSRQ":        "PrintScreen",
	"KEY_PAUSE":        "Pause",
	"KEY_INSERT":       "Insert",
	"KEY_DELETE":       "Delete",
	"KEY_HOME":         "Home",
	"KEY_END":          "End",
	"KEY_PAGEUP":       "PageUp",
	"KEY_PAGEDOWN":     "PageDown",
	"KEY_LEFT":         "Left",
	"KEY_RIGHT":        "Right",
	"KEY_UP":           "Up",
	"KEY_DOWN":         "Down",
	"KEY_COMPOSE":      "Menu",
	"KEY_LEFTSHIFT":    "LShift",
	"KEY_RIGHTSHIFT":   "RShift",
	"KEY_LEFTCTRL":     "LCtrl",
	"KEY_RIGHTCTRL":    "RCtrl",
	"KEY_LEFTALT":      "LAlt",
	"KEY_RIGHTALT":     "RAlt",
	"KEY_LEFTMETA":     "LMeta",
	"KEY_RIGHTMETA":    "RMeta",
	"KEY_LEFTBRACE":    "LeftBracket",
	"KEY_RIGHTBRACE":   "RightBracket",
	"KEY_BACKSLASH":    "Backslash",
	"KEY_SEMICOLON":    "Semicolon",
	"KEY_APOSTROPHE":   "Quote",
	"KEY_COMMA":        "Comma",
	"KEY_DOT":          "Period",
	"KEY_SLASH":        "Slash",
	"KEY_GRAVE":        "Grave",
	"KEY_MINUS":        "Minus",
	"KEY_EQUAL":        "Equal",
	"KEY_102ND":        "IntlBackslash",
	"KEY_NUMLOCK":      "NumLock",
	"KEY_KPPLUS":       "NumpadAdd",
	"KEY_KPMINUS":      "NumpadSubtract",
	"KEY_KPASTERISK":   "NumpadMultiply",
	"KEY_KPSLASH":      "NumpadDivide",
	"KEY_KPDOT":        "NumpadDecimal",
	"KEY_KPENTER":      "NumpadEnter",
	"KEY_KPEQUAL":      "NumpadEqual",
	"KEY_MUTE":         "Mute",
	"KEY_VOLUMEUP":     "VolumeUp",
	"KEY_VOLUMEDOWN":   "VolumeDown",
	"KEY_PLAYPAUSE":    "MediaPlayPause",
	"KEY_STOPCD":       "MediaStop",
	"KEY_NEXTSONG":     "MediaNext",
	"KEY_PREVIOUSSONG": "MediaPrevious",
}

// baseAliases builds a fresh copy of the built-in alias table.
// Every value is a canonical identifier; no value is itself an alias key
// mapping elsewhere, which is what keeps Normalize idempotent.
func baseAliases() map[string]ID {
	table := make(map[string]ID, 512)
	set := func(raw, name string) {
		table[raw] = ID(Prefix + name)
	}

	for c := 'A'; c <= 'Z'; c++ {
		upper := string(c)
		set(upper, upper)
		set(string(c+'a'-'A'), upper)
		set("Key"+upper, upper)
		set("KEY_"+upper, upper)
	}

	for d := 0; d <= 9; d++ {
		top := fmt.Sprintf("Num%d", d)
		pad := fmt.Sprintf("Numpad%d", d)
		set(fmt.Sprintf("%d", d), top)
		set(fmt.Sprintf("Digit%d", d), top)
		set(fmt.Sprintf("KEY_%d", d), top)
		set(fmt.Sprintf("%s%d", Prefix, d), top)
		set(pad, pad)
		set(fmt.Sprintf("KP%d", d), pad)
		set(fmt.Sprintf("KEY_KP%d", d), pad)
	}

	for f := 1; f <= 24; f++ {
		name := fmt.Sprintf("F%d", f)
		set(fmt.Sprintf("KEY_F%d", f), name)
	}

	for raw, name := range namedAliases {
		set(raw, name)
		// Prefixed short forms such as VK_Esc resolve the same way.
		if len(raw) < 4 || raw[:4] != "KEY_" {
			set(Prefix+raw, name)
		}
	}

	return table
}
