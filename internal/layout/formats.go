package layout

import (
	"errors"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func parseTOML(path string, data []byte) (*Overlay, error) {
	var f fileOverlay
	if err := toml.Unmarshal(data, &f); err != nil {
		pe := &ParseError{Path: path, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return nil, pe
	}
	return f.overlay(path)
}

func parseYAML(path string, data []byte) (*Overlay, error) {
	var f fileOverlay
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return f.overlay(path)
}
