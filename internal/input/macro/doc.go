// Package macro converts keystroke timelines to and from macro scripts.
//
// A timeline is an ordered list of Events, each a key press or release with
// a microsecond offset from the first event. Timelines come from three
// places:
//
//   - a Recorder fed by a capture source (see the capture package),
//   - literal text, through TextConverter,
//   - a JSON template or earlier export, through LoadTemplate.
//
// Encode renders a timeline as a macro_start ... macro_end block bound to a
// trigger key, using the same emission form as the script generator.
// DecodeScript goes the other way.
//
// # Recording
//
// A Recorder moves through three states:
//
//	Idle -> Recording -> Stopped
//
// Events are accepted only while Recording. The recorded timeline can be
// edited and encoded only once Stopped. Starting a new recording discards
// any edits that were not confirmed.
//
//	rec := macro.NewRecorder()
//	rec.Start()
//	rec.Record("VK_A", keymap.Press)
//	rec.Record("VK_A", keymap.Release)
//	rec.Stop()
//	src, err := rec.Encode("VK_F13", macro.EncodeOptions{IncludeComments: true})
//
// # Thread Safety
//
// Recorder is safe for concurrent use. Encode, DecodeScript and the text
// converter are pure functions.
package macro
