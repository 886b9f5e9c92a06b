// Package store provides persistence for editor state.
//
// KV stores hold small JSON values such as preferences. MemoryStore keeps
// them in memory, FileStore keeps them in a single JSON document on disk.
// ScriptDir stores script sources as files in a directory.
//
//	kv, err := store.OpenFile("~/.config/keyforge/prefs.json")
//	if err != nil {
//		return err
//	}
//	kv.Set("view_mode", []byte(`"split"`))
package store
