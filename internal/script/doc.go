// Package script converts between configuration scripts and the keymap model.
//
// A script is a sequence of function-call statements terminated by ';':
//
//	define_modifier("MD_00", "Fn", "VK_RAlt");
//	layer_start("base");
//	    map("VK_CapsLock", "VK_Escape");
//	    map("VK_2", with_shift("VK_1"));
//	    tap_hold("VK_Space", "VK_Space", "VK_LCtrl", 200);
//	    map("VK_F1", layer_switch("nav"));
//	    macro_start("VK_F13");
//	        press("VK_A");
//	        delay(50);
//	        release("VK_A");
//	    macro_end();
//	layer_end();
//
// Parse never fails. Each statement is parsed on its own, and a statement
// that cannot be understood produces one Diagnostic and is skipped, so a
// single pass reports every problem in the source.
//
// Generate is the inverse of Parse. Its output is deterministic and parses
// back into a configuration equal to the input.
package script
