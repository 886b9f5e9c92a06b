package keymap

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dshills/keyforge/internal/input/key"
)

// LayerID identifies a layer within a Configuration.
type LayerID string

// BaseLayerID is the id (and name) of the base layer.
const BaseLayerID LayerID = "base"

// Layer is a named table of key mappings.
type Layer struct {
	// ID is unique within the configuration and derived from Name.
	ID LayerID

	// Name is the display name used in scripts.
	Name string

	// IsBase is set on exactly one layer, the first.
	IsBase bool

	// Mappings maps canonical keys to their action.
	Mappings map[key.ID]Mapping

	// Devices holds the device pattern for device-scoped mappings.
	// Keys absent from Devices apply to every device.
	Devices map[key.ID]string
}

func newLayer(name string, base bool) *Layer {
	return &Layer{
		ID:       Slug(name),
		Name:     name,
		IsBase:   base,
		Mappings: make(map[key.ID]Mapping),
		Devices:  make(map[key.ID]string),
	}
}

// Slug derives a layer id from a display name: lower-case letters and
// digits are kept, runs of anything else become a single '-'.
func Slug(name string) LayerID {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "layer"
	}
	return LayerID(s)
}

// Keys returns the mapped keys in identifier order.
func (l *Layer) Keys() []key.ID {
	keys := make([]key.ID, 0, len(l.Mappings))
	for k := range l.Mappings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of mappings.
func (l *Layer) Len() int {
	return len(l.Mappings)
}

func (l *Layer) clone() *Layer {
	c := &Layer{
		ID:       l.ID,
		Name:     l.Name,
		IsBase:   l.IsBase,
		Mappings: make(map[key.ID]Mapping, len(l.Mappings)),
		Devices:  make(map[key.ID]string, len(l.Devices)),
	}
	for k, m := range l.Mappings {
		c.Mappings[k] = cloneMapping(m)
	}
	for k, d := range l.Devices {
		c.Devices[k] = d
	}
	return c
}

func (l *Layer) equal(o *Layer) bool {
	if l.ID != o.ID || l.Name != o.Name || l.IsBase != o.IsBase {
		return false
	}
	if len(l.Mappings) != len(o.Mappings) || len(l.Devices) != len(o.Devices) {
		return false
	}
	for k, m := range l.Mappings {
		om, ok := o.Mappings[k]
		if !ok || !EqualMappings(m, om) {
			return false
		}
	}
	for k, d := range l.Devices {
		if o.Devices[k] != d {
			return false
		}
	}
	return true
}
