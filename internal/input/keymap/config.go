package keymap

import (
	"fmt"

	"github.com/dshills/keyforge/internal/input/key"
)

// Configuration is the root of the editing model.
// The zero value is not usable; start from Empty.
type Configuration struct {
	// Layers in order. Layers[0] is the base layer.
	Layers []*Layer

	// Modifiers and Locks are keyed by their canonical id.
	Modifiers map[string]Definition
	Locks     map[string]Definition

	// CurrentLayer is the layer being edited.
	CurrentLayer LayerID

	// Dirty is set by every mutation and cleared by MarkClean.
	Dirty bool
}

// Empty returns a configuration with only the base layer.
func Empty() *Configuration {
	return &Configuration{
		Layers:       []*Layer{newLayer(string(BaseLayerID), true)},
		Modifiers:    make(map[string]Definition),
		Locks:        make(map[string]Definition),
		CurrentLayer: BaseLayerID,
	}
}

// Base returns the base layer.
func (c *Configuration) Base() *Layer {
	return c.Layers[0]
}

// LayerByID returns the layer with the given id, or nil.
func (c *Configuration) LayerByID(id LayerID) *Layer {
	for _, l := range c.Layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// LayerByName returns the layer whose name slugs to the same id, or nil.
func (c *Configuration) LayerByName(name string) *Layer {
	return c.LayerByID(Slug(name))
}

// MappingFor returns the mapping for a canonical key on a layer.
func (c *Configuration) MappingFor(layer LayerID, k key.ID) (Mapping, bool) {
	l := c.LayerByID(layer)
	if l == nil {
		return nil, false
	}
	m, ok := l.Mappings[k]
	return m, ok
}

// DeviceFor returns the device pattern a mapping is scoped to, or "".
func (c *Configuration) DeviceFor(layer LayerID, k key.ID) string {
	l := c.LayerByID(layer)
	if l == nil {
		return ""
	}
	return l.Devices[k]
}

// AddLayer appends a non-base layer named name.
func (c *Configuration) AddLayer(name string) (*Layer, error) {
	l := newLayer(name, false)
	if c.LayerByID(l.ID) != nil {
		return nil, fmt.Errorf("%w: %s", ErrLayerExists, l.ID)
	}
	c.Layers = append(c.Layers, l)
	c.Dirty = true
	return l, nil
}

// EnsureLayer returns the layer for name, creating it if needed.
// The second result reports whether the layer was created.
func (c *Configuration) EnsureLayer(name string) (*Layer, bool) {
	if l := c.LayerByName(name); l != nil {
		return l, false
	}
	l, _ := c.AddLayer(name)
	return l, true
}

// RemoveLayer deletes a non-base layer. LayerSwitch mappings and modifier
// holds elsewhere that target it are kept and show up in DanglingReferences.
func (c *Configuration) RemoveLayer(id LayerID) error {
	for i, l := range c.Layers {
		if l.ID != id {
			continue
		}
		if l.IsBase {
			return ErrBaseLayer
		}
		c.Layers = append(c.Layers[:i], c.Layers[i+1:]...)
		if c.CurrentLayer == id {
			c.CurrentLayer = c.Base().ID
		}
		c.Dirty = true
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoLayer, id)
}

// SetMapping binds m to k on layer, replacing any existing mapping.
// A non-empty device scopes the mapping to matching devices. Key ids in k
// and m are canonicalized with key.Normalize.
func (c *Configuration) SetMapping(layer LayerID, k key.ID, m Mapping, device string) (replaced bool, err error) {
	l := c.LayerByID(layer)
	if l == nil {
		return false, fmt.Errorf("%w: %s", ErrNoLayer, layer)
	}
	if err := Validate(m); err != nil {
		return false, fmt.Errorf("%s on %s: %w", k, layer, err)
	}
	k = key.Normalize(string(k))
	_, replaced = l.Mappings[k]
	l.Mappings[k] = normalizeMapping(m)
	if device != "" {
		l.Devices[k] = device
	} else {
		delete(l.Devices, k)
	}
	c.Dirty = true
	return replaced, nil
}

// DeleteMapping removes the mapping for k on layer.
func (c *Configuration) DeleteMapping(layer LayerID, k key.ID) bool {
	l := c.LayerByID(layer)
	if l == nil {
		return false
	}
	if _, ok := l.Mappings[k]; !ok {
		return false
	}
	delete(l.Mappings, k)
	delete(l.Devices, k)
	c.Dirty = true
	return true
}

// SetModifier adds or replaces a modifier definition.
func (c *Configuration) SetModifier(d Definition) (bool, error) {
	replaced, err := setDefinition(c.Modifiers, ModifierPrefix, d)
	if err == nil {
		c.Dirty = true
	}
	return replaced, err
}

// SetLock adds or replaces a lock definition.
func (c *Configuration) SetLock(d Definition) (bool, error) {
	replaced, err := setDefinition(c.Locks, LockPrefix, d)
	if err == nil {
		c.Dirty = true
	}
	return replaced, err
}

// SortedModifiers returns modifier definitions ordered by id.
func (c *Configuration) SortedModifiers() []Definition {
	return sortedDefinitions(c.Modifiers)
}

// SortedLocks returns lock definitions ordered by id.
func (c *Configuration) SortedLocks() []Definition {
	return sortedDefinitions(c.Locks)
}

// SetCurrentLayer selects the layer being edited.
func (c *Configuration) SetCurrentLayer(id LayerID) error {
	if c.LayerByID(id) == nil {
		return fmt.Errorf("%w: %s", ErrNoLayer, id)
	}
	c.CurrentLayer = id
	return nil
}

// MarkClean clears the dirty flag.
func (c *Configuration) MarkClean() {
	c.Dirty = false
}

// Reference locates a mapping that points at a layer, modifier or lock and
// where it points.
type Reference struct {
	Layer  LayerID
	Key    key.ID
	Target LayerID
	// Definition is the modifier or lock id named by a tap_hold hold or a
	// map target. It is empty for layer switches.
	Definition string
}

// DanglingReferences lists mappings whose target does not exist, in layer
// order and then key order. A LayerSwitch dangles when its layer is gone.
// A modifier or lock id used as a hold or map target dangles when it is
// neither defined nor the name of a layer.
func (c *Configuration) DanglingReferences() []Reference {
	var refs []Reference
	for _, l := range c.Layers {
		for _, k := range l.Keys() {
			switch m := l.Mappings[k].(type) {
			case LayerSwitch:
				if c.LayerByID(m.Target) == nil {
					refs = append(refs, Reference{Layer: l.ID, Key: k, Target: m.Target})
				}
			case TapHold:
				if ref, ok := c.danglingDefinition(l.ID, k, m.Hold); ok {
					refs = append(refs, ref)
				}
			case Simple:
				if ref, ok := c.danglingDefinition(l.ID, k, m.Tap); ok {
					refs = append(refs, ref)
				}
			}
		}
	}
	return refs
}

// Defined reports whether id names a modifier or lock definition, or a
// layer activated by it.
func (c *Configuration) Defined(id string) bool {
	if _, ok := c.Modifiers[id]; ok {
		return true
	}
	if _, ok := c.Locks[id]; ok {
		return true
	}
	return c.LayerByName(id) != nil
}

func (c *Configuration) danglingDefinition(layer LayerID, k, target key.ID) (Reference, bool) {
	id := string(target)
	if !IsDefinitionID(id) || c.Defined(id) {
		return Reference{}, false
	}
	return Reference{Layer: layer, Key: k, Target: Slug(id), Definition: id}, true
}

// Clone returns a deep copy.
func (c *Configuration) Clone() *Configuration {
	out := &Configuration{
		Layers:       make([]*Layer, len(c.Layers)),
		Modifiers:    make(map[string]Definition, len(c.Modifiers)),
		Locks:        make(map[string]Definition, len(c.Locks)),
		CurrentLayer: c.CurrentLayer,
		Dirty:        c.Dirty,
	}
	for i, l := range c.Layers {
		out.Layers[i] = l.clone()
	}
	for id, d := range c.Modifiers {
		out.Modifiers[id] = d
	}
	for id, d := range c.Locks {
		out.Locks[id] = d
	}
	return out
}

// Equal reports structural equality: layers in order, their mappings and
// device scopes, modifiers and locks. Dirty and CurrentLayer are ignored.
func (c *Configuration) Equal(o *Configuration) bool {
	if c == nil || o == nil {
		return c == o
	}
	if len(c.Layers) != len(o.Layers) {
		return false
	}
	for i := range c.Layers {
		if !c.Layers[i].equal(o.Layers[i]) {
			return false
		}
	}
	return equalDefinitions(c.Modifiers, o.Modifiers) && equalDefinitions(c.Locks, o.Locks)
}

func equalDefinitions(a, b map[string]Definition) bool {
	if len(a) != len(b) {
		return false
	}
	for id, d := range a {
		if od, ok := b[id]; !ok || od != d {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of the whole configuration.
func (c *Configuration) Validate() error {
	if len(c.Layers) == 0 || !c.Layers[0].IsBase {
		return fmt.Errorf("%w: first layer must be the base layer", ErrNoLayer)
	}
	seen := make(map[LayerID]bool, len(c.Layers))
	for i, l := range c.Layers {
		if i > 0 && l.IsBase {
			return fmt.Errorf("layer %s: only the first layer may be the base layer", l.ID)
		}
		if seen[l.ID] {
			return fmt.Errorf("%w: %s", ErrLayerExists, l.ID)
		}
		seen[l.ID] = true
		for _, k := range l.Keys() {
			if err := Validate(l.Mappings[k]); err != nil {
				return fmt.Errorf("layer %s, key %s: %w", l.ID, k, err)
			}
		}
	}
	return nil
}
