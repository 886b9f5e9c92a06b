package keymap

import "errors"

var (
	// ErrNoLayer is returned when a layer id is not part of the configuration.
	ErrNoLayer = errors.New("no such layer")

	// ErrLayerExists is returned when adding a layer whose id is taken.
	ErrLayerExists = errors.New("layer already exists")

	// ErrBaseLayer is returned when trying to remove the base layer.
	ErrBaseLayer = errors.New("base layer cannot be removed")

	// ErrInvalidMapping is returned for a mapping that breaks its invariants.
	ErrInvalidMapping = errors.New("invalid mapping")

	// ErrInvalidDefinition is returned for a malformed modifier or lock id.
	ErrInvalidDefinition = errors.New("invalid definition")
)
