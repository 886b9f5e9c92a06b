package keymap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/keyforge/internal/input/key"
)

// MaxDefinitions is the number of distinct modifier (or lock) bits.
const MaxDefinitions = 256

// Definition id prefixes.
const (
	ModifierPrefix = "MD_"
	LockPrefix     = "LK_"
)

// Definition describes a modifier or lock bit and the key that drives it.
type Definition struct {
	// ID is "MD_xx" or "LK_xx" where xx is the bit index in hex.
	ID string
	// Label is the human-readable name.
	Label string
	// Source is the key that holds (modifier) or toggles (lock) the bit.
	Source key.ID
}

// Index returns the bit index encoded in the definition id.
func (d Definition) Index() (uint8, error) {
	return parseDefinitionID(d.ID)
}

// ModifierID returns the modifier id for bit index i.
func ModifierID(i uint8) string {
	return fmt.Sprintf("%s%02X", ModifierPrefix, i)
}

// LockID returns the lock id for bit index i.
func LockID(i uint8) string {
	return fmt.Sprintf("%s%02X", LockPrefix, i)
}

func parseDefinitionID(id string) (uint8, error) {
	if len(id) != 5 || !(strings.HasPrefix(id, ModifierPrefix) || strings.HasPrefix(id, LockPrefix)) {
		return 0, fmt.Errorf("%w: %q is not MD_xx or LK_xx", ErrInvalidDefinition, id)
	}
	n, err := strconv.ParseUint(id[3:], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: bit index must be hex 00-FF", ErrInvalidDefinition, id)
	}
	return uint8(n), nil
}

// IsDefinitionID reports whether s is a modifier or lock id in any case.
func IsDefinitionID(s string) bool {
	_, err := parseDefinitionID(strings.ToUpper(s))
	return err == nil
}

// normalizeKey canonicalizes k with the default normalizer. Modifier and
// lock ids are upper-cased instead of prefixed.
func normalizeKey(k key.ID) key.ID {
	if IsDefinitionID(string(k)) {
		return key.ID(strings.ToUpper(string(k)))
	}
	return key.Normalize(string(k))
}

// CanonicalDefinitionID upper-cases the hex digits of id and checks its prefix.
func CanonicalDefinitionID(prefix, id string) (string, error) {
	if !strings.HasPrefix(strings.ToUpper(id), prefix) {
		return "", fmt.Errorf("%w: %q must start with %s", ErrInvalidDefinition, id, prefix)
	}
	n, err := parseDefinitionID(prefix + strings.ToUpper(id[len(prefix):]))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%02X", prefix, n), nil
}

func setDefinition(defs map[string]Definition, prefix string, d Definition) (bool, error) {
	id, err := CanonicalDefinitionID(prefix, d.ID)
	if err != nil {
		return false, err
	}
	d.ID = id
	if strings.TrimSpace(string(d.Source)) == "" {
		return false, fmt.Errorf("%w: %s has no source key", ErrInvalidDefinition, id)
	}
	d.Source = key.Normalize(string(d.Source))
	_, replaced := defs[id]
	defs[id] = d
	return replaced, nil
}

func sortedDefinitions(defs map[string]Definition) []Definition {
	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
