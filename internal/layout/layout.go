package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dshills/keyforge/internal/input/key"
)

var (
	// ErrUnsupportedFormat is returned for files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported layout format")

	// ErrNotFound is returned by Find when no overlay file matches.
	ErrNotFound = errors.New("layout not found")
)

// Extensions lists the recognized overlay file extensions in lookup order.
var Extensions = []string{".toml", ".yaml", ".yml", ".lua"}

// Overlay is one layout file.
type Overlay struct {
	Name    string
	Path    string
	Aliases map[string]string
	Chars   key.CharMap
}

// Layout is the result of applying overlays to the built-in tables.
type Layout struct {
	Names      []string
	Normalizer *key.Normalizer
	Chars      key.CharMap
}

// Default returns the built-in layout.
func Default() *Layout {
	return &Layout{Normalizer: key.Default(), Chars: key.USChars()}
}

// Build applies overlays in order. Later overlays win. Aliases that would
// make normalization non-idempotent are rejected with key.ErrAliasConflict.
func Build(overlays ...*Overlay) (*Layout, error) {
	aliases := make([]map[string]string, 0, len(overlays))
	l := &Layout{Chars: key.USChars()}
	for _, o := range overlays {
		aliases = append(aliases, o.Aliases)
		l.Names = append(l.Names, o.Name)
	}

	n, err := key.NewNormalizer(aliases...)
	if err != nil {
		return nil, err
	}
	l.Normalizer = n

	for _, o := range overlays {
		chars := make(key.CharMap, len(o.Chars))
		for r, c := range o.Chars {
			chars[r] = key.Char{Key: n.Normalize(string(c.Key)), Shift: c.Shift}
		}
		l.Chars = l.Chars.With(chars)
	}
	return l, nil
}

// LoadAll loads every path and builds the layout.
func LoadAll(paths []string) (*Layout, error) {
	overlays := make([]*Overlay, 0, len(paths))
	for _, p := range paths {
		o, err := Load(p)
		if err != nil {
			return nil, err
		}
		overlays = append(overlays, o)
	}
	l, err := Build(overlays...)
	if err != nil {
		return nil, fmt.Errorf("building layout: %w", err)
	}
	return l, nil
}

// Load reads an overlay. The format is chosen by file extension.
func Load(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout %s: %w", path, err)
	}

	var o *Overlay
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		o, err = parseTOML(path, data)
	case ".yaml", ".yml":
		o, err = parseYAML(path, data)
	case ".lua":
		o, err = runLua(path, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	o.Path = path
	if o.Name == "" {
		o.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return o, nil
}

// Find resolves a layout name to a file in dirs. A name that already
// carries a recognized extension is looked up as is.
func Find(name string, dirs []string) (string, error) {
	candidates := []string{name}
	if !hasExtension(name) {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, dir := range dirs {
		for _, c := range candidates {
			p := filepath.Join(dir, c)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func hasExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DefaultDir returns the user layout directory.
// On Unix-like systems: ~/.config/keyforge/layouts
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "keyforge", "layouts"), nil
}

// ParseError reports a malformed overlay file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// fileOverlay is the shared TOML and YAML shape.
type fileOverlay struct {
	Name    string            `toml:"name" yaml:"name"`
	Aliases map[string]string `toml:"aliases" yaml:"aliases"`
	Chars   []fileChar        `toml:"chars" yaml:"chars"`
}

type fileChar struct {
	Char  string `toml:"char" yaml:"char"`
	Key   string `toml:"key" yaml:"key"`
	Shift bool   `toml:"shift" yaml:"shift"`
}

func (f *fileOverlay) overlay(path string) (*Overlay, error) {
	o := &Overlay{
		Name:    f.Name,
		Aliases: make(map[string]string, len(f.Aliases)),
		Chars:   make(key.CharMap, len(f.Chars)),
	}
	for raw, target := range f.Aliases {
		o.Aliases[raw] = target
	}
	for i, c := range f.Chars {
		r, err := singleRune(c.Char)
		if err != nil {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("chars[%d]: %v", i, err)}
		}
		if strings.TrimSpace(c.Key) == "" {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("chars[%d]: missing key", i)}
		}
		o.Chars[r] = key.Char{Key: key.ID(c.Key), Shift: c.Shift}
	}
	return o, nil
}

func singleRune(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("char %q must be exactly one character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
