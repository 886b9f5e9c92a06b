// Package layout loads keyboard layout overlays.
//
// An overlay adds key aliases for a locale or a physical layout, and
// characters its keys type. Overlays are data files in TOML or YAML, or
// small Lua scripts for layouts that are easier to generate:
//
//	# de.toml
//	name = "german"
//
//	[aliases]
//	KeyZ = "VK_Y"
//	KeyY = "VK_Z"
//
//	[[chars]]
//	char = "z"
//	key = "VK_Y"
//
// The same overlay in Lua:
//
//	name("german")
//	alias("KeyZ", "VK_Y")
//	alias("KeyY", "VK_Z")
//	char("z", "VK_Y")
//
// Build applies overlays in order on top of the built-in tables.
package layout
