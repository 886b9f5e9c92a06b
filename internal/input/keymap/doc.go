// Package keymap provides the configuration model edited by keyforge.
//
// A Configuration is an ordered list of layers plus the modifier and lock
// definitions the layers can refer to. The first layer is always the base
// layer. Each layer maps canonical key identifiers to exactly one Mapping.
//
// # Mappings
//
// Mapping is a closed set of variants:
//
//	Simple      - emit another key
//	TapHold     - one key on tap, another once the threshold elapses
//	Macro       - an ordered, timed sequence of press/release steps
//	LayerSwitch - activate another layer
//
// Code that consumes a Mapping should switch over the concrete types; no
// other implementations exist outside this package.
//
// # Usage
//
//	cfg := keymap.Empty()
//	nav, _ := cfg.AddLayer("Nav")
//	cfg.SetMapping(keymap.BaseLayerID, "VK_CapsLock", keymap.LayerSwitch{Target: nav.ID}, "")
//	cfg.SetMapping(nav.ID, "VK_H", keymap.Simple{Tap: "VK_Left"}, "")
//
// Keys passed to the model are expected to be canonical already (see the
// key package). The model never normalizes on its own.
package keymap
