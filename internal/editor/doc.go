// Package editor keeps a keymap configuration and its script text in sync.
//
// A Session owns one configuration. Script text set with SetScript is
// parsed after a quiet period (500 ms by default), so typing does not
// re-parse on every keystroke. Model edits made with Edit regenerate the
// script at once.
//
//	s := editor.NewSession(editor.OnUpdate(func(u editor.Update) {
//		for _, d := range u.Diagnostics {
//			fmt.Println(d)
//		}
//	}))
//	defer s.Close()
//	s.SetScript(src)
//
// Preferences stores UI state (favorite keys, recent keys, view mode) in an
// injected key-value store. The core packages never touch persistent state.
package editor
