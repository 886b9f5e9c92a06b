package key

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Prefix is the namespace carried by every canonical key identifier.
const Prefix = "VK_"

// ID is a canonical key identifier such as "VK_A" or "VK_Numpad1".
// Values are produced by a Normalizer; other packages treat them as opaque.
type ID string

// String returns the identifier text.
func (id ID) String() string {
	return string(id)
}

// Name returns the identifier without its namespace prefix.
func (id ID) Name() string {
	return strings.TrimPrefix(string(id), Prefix)
}

// IsModifier returns true for the eight physical modifier keys.
func (id ID) IsModifier() bool {
	switch id {
	case LShift, RShift, LCtrl, RCtrl, LAlt, RAlt, LMeta, RMeta:
		return true
	}
	return false
}

// IsNumpad returns true for numeric-pad keys, including NumLock.
func (id ID) IsNumpad() bool {
	return strings.HasPrefix(string(id), Prefix+"Numpad") || id == NumLock
}

// Frequently referenced identifiers.
const (
	LShift ID = "VK_LShift"
	RShift ID = "VK_RShift"
	LCtrl  ID = "VK_LCtrl"
	RCtrl  ID = "VK_RCtrl"
	LAlt   ID = "VK_LAlt"
	RAlt   ID = "VK_RAlt"
	LMeta  ID = "VK_LMeta"
	RMeta  ID = "VK_RMeta"

	Enter   ID = "VK_Enter"
	Escape  ID = "VK_Escape"
	Space   ID = "VK_Space"
	Tab     ID = "VK_Tab"
	NumLock ID = "VK_NumLock"
)

// ErrAliasConflict is returned when an overlay would break idempotence.
var ErrAliasConflict = errors.New("alias conflict")

// Normalizer resolves raw key spellings to canonical identifiers.
// A Normalizer is immutable and safe for concurrent use.
type Normalizer struct {
	exact  map[string]ID
	folded map[string]ID
}

var defaultNormalizer = mustNormalizer(newNormalizer(baseAliases()))

// Default returns the normalizer backed by the built-in alias table.
func Default() *Normalizer {
	return defaultNormalizer
}

// Normalize resolves raw using the built-in alias table.
func Normalize(raw string) ID {
	return defaultNormalizer.Normalize(raw)
}

// NewNormalizer builds a normalizer from the built-in table with the given
// overlays applied in order. Overlay targets are themselves normalized
// against the built-in table, so {"KeyQ": "A"} maps KeyQ to VK_A.
// An overlay whose target is itself remapped to a different key would break
// idempotence and is rejected with ErrAliasConflict.
func NewNormalizer(overlays ...map[string]string) (*Normalizer, error) {
	table := baseAliases()
	for _, overlay := range overlays {
		raws := make([]string, 0, len(overlay))
		for raw := range overlay {
			raws = append(raws, raw)
		}
		sort.Strings(raws)
		for _, raw := range raws {
			raw := strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			table[raw] = defaultNormalizer.Normalize(overlay[raw])
		}
	}
	return newNormalizer(table)
}

func newNormalizer(table map[string]ID) (*Normalizer, error) {
	for raw, target := range table {
		if next, ok := table[string(target)]; ok && next != target {
			return nil, fmt.Errorf("%w: %q -> %s, but %s -> %s", ErrAliasConflict, raw, target, target, next)
		}
	}

	raws := make([]string, 0, len(table))
	for raw := range table {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	folded := make(map[string]ID, len(table))
	ambiguous := make(map[string]bool)
	add := func(k string, target ID) {
		k = strings.ToLower(k)
		if prev, ok := folded[k]; ok && prev != target {
			ambiguous[k] = true
			return
		}
		folded[k] = target
	}
	for _, raw := range raws {
		target := table[raw]
		add(raw, target)
		add(string(target), target)
	}
	for _, name := range canonicalNames {
		add(name, ID(Prefix+name))
		add(Prefix+name, ID(Prefix+name))
	}
	for k := range ambiguous {
		delete(folded, k)
	}

	return &Normalizer{exact: table, folded: folded}, nil
}

func mustNormalizer(n *Normalizer, err error) *Normalizer {
	if err != nil {
		panic("key: invalid built-in alias table: " + err.Error())
	}
	return n
}

// Normalize maps raw to its canonical identifier. It never fails:
// known aliases resolve through the table, prefixed strings are kept,
// anything else gets the prefix prepended.
func (n *Normalizer) Normalize(raw string) ID {
	s := strings.TrimSpace(raw)
	if id, ok := n.lookup(s); ok {
		return id
	}

	if len(s) >= len(Prefix) && strings.EqualFold(s[:len(Prefix)], Prefix) {
		s = Prefix + s[len(Prefix):]
		if id, ok := n.lookup(s); ok {
			return id
		}
		return ID(s)
	}

	prefixed := Prefix + s
	if id, ok := n.lookup(prefixed); ok {
		return id
	}
	return ID(prefixed)
}

func (n *Normalizer) lookup(s string) (ID, bool) {
	if id, ok := n.exact[s]; ok {
		return id, true
	}
	if id, ok := n.folded[strings.ToLower(s)]; ok {
		return id, true
	}
	return "", false
}

// Aliases returns a copy of the exact alias table.
func (n *Normalizer) Aliases() map[string]ID {
	out := make(map[string]ID, len(n.exact))
	for k, v := range n.exact {
		out[k] = v
	}
	return out
}

// Known reports whether id is one of the canonical identifiers the
// built-in table knows about.
func Known(id ID) bool {
	_, ok := canonicalSet[id]
	return ok
}

// Canonical returns every identifier the built-in table knows about, in
// table order.
func Canonical() []ID {
	out := make([]ID, len(canonicalNames))
	for i, name := range canonicalNames {
		out[i] = ID(Prefix + name)
	}
	return out
}
