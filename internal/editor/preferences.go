package editor

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/keyforge/internal/input/key"
)

// KV is the key-value store that holds preferences. Values are raw JSON.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// ViewMode selects how the configuration is presented.
type ViewMode string

const (
	ViewVisual ViewMode = "visual"
	ViewCode   ViewMode = "code"
	ViewSplit  ViewMode = "split"
)

// Valid reports whether m is a known mode.
func (m ViewMode) Valid() bool {
	switch m {
	case ViewVisual, ViewCode, ViewSplit:
		return true
	}
	return false
}

// Preference keys.
const (
	keyFavorites = "favorite_keys"
	keyRecent    = "recent_keys"
	keyViewMode  = "view_mode"
)

// DefaultMaxRecent is the number of recent keys kept.
const DefaultMaxRecent = 10

// Preferences stores favorite keys, recently used keys and the view mode.
type Preferences struct {
	kv        KV
	maxRecent int
}

// NewPreferences creates preferences backed by kv.
func NewPreferences(kv KV) *Preferences {
	return &Preferences{kv: kv, maxRecent: DefaultMaxRecent}
}

// Favorites returns the favorite keys in the order they were added.
func (p *Preferences) Favorites() ([]key.ID, error) {
	return p.keys(keyFavorites)
}

// ToggleFavorite adds k to the favorites, or removes it when present.
// It reports whether k is a favorite afterwards.
func (p *Preferences) ToggleFavorite(k key.ID) (bool, error) {
	favs, err := p.Favorites()
	if err != nil {
		return false, err
	}
	k = key.Normalize(string(k))

	for i, f := range favs {
		if f == k {
			favs = append(favs[:i], favs[i+1:]...)
			return false, p.setKeys(keyFavorites, favs)
		}
	}
	return true, p.setKeys(keyFavorites, append(favs, k))
}

// IsFavorite reports whether k is a favorite.
func (p *Preferences) IsFavorite(k key.ID) (bool, error) {
	favs, err := p.Favorites()
	if err != nil {
		return false, err
	}
	k = key.Normalize(string(k))
	for _, f := range favs {
		if f == k {
			return true, nil
		}
	}
	return false, nil
}

// Recent returns recently used keys, most recent first.
func (p *Preferences) Recent() ([]key.ID, error) {
	return p.keys(keyRecent)
}

// Touch moves k to the front of the recent list.
func (p *Preferences) Touch(k key.ID) error {
	recent, err := p.Recent()
	if err != nil {
		return err
	}
	k = key.Normalize(string(k))

	out := make([]key.ID, 0, len(recent)+1)
	out = append(out, k)
	for _, r := range recent {
		if r != k {
			out = append(out, r)
		}
	}
	if len(out) > p.maxRecent {
		out = out[:p.maxRecent]
	}
	return p.setKeys(keyRecent, out)
}

// ViewMode returns the stored view mode, or ViewVisual when unset or
// unknown.
func (p *Preferences) ViewMode() (ViewMode, error) {
	raw, ok, err := p.kv.Get(keyViewMode)
	if err != nil || !ok {
		return ViewVisual, err
	}
	var m ViewMode
	if err := json.Unmarshal(raw, &m); err != nil || !m.Valid() {
		return ViewVisual, nil
	}
	return m, nil
}

// SetViewMode stores m.
func (p *Preferences) SetViewMode(m ViewMode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown view mode %q", m)
	}
	data, _ := json.Marshal(m)
	return p.kv.Set(keyViewMode, data)
}

func (p *Preferences) keys(name string) ([]key.ID, error) {
	raw, ok, err := p.kv.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	var ids []key.ID
	if err := json.Unmarshal(raw, &ids); err != nil {
		// A corrupt entry reads as empty and is overwritten on the next change.
		return nil, nil
	}
	return ids, nil
}

func (p *Preferences) setKeys(name string, ids []key.ID) error {
	if ids == nil {
		ids = []key.ID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := p.kv.Set(name, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
