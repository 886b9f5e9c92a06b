// Package config provides keyforge application settings.
//
// Settings are layered: built-in defaults, then config.toml and
// config.yaml from the settings directory, then files given explicitly,
// then KEYFORGE_* environment variables. Later sources win. The merged
// result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/keyforge/internal/config/loader"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "KEYFORGE_"

// ErrInvalid is returned when merged settings fail validation.
var ErrInvalid = errors.New("invalid settings")

// Settings is the complete application configuration.
type Settings struct {
	Editor  EditorSettings  `toml:"editor"`
	Parser  ParserSettings  `toml:"parser"`
	Macro   MacroSettings   `toml:"macro"`
	Layout  LayoutSettings  `toml:"layout"`
	Logging LoggingSettings `toml:"logging"`
	Store   StoreSettings   `toml:"store"`

	// Sources lists the files that contributed, in merge order.
	Sources []string `toml:"-"`
}

// EditorSettings configure the script editing session.
type EditorSettings struct {
	DebounceMS int `toml:"debounceMs" validate:"gte=0,lte=60000"`
}

// Debounce returns the debounce period as a duration.
func (e EditorSettings) Debounce() time.Duration {
	return time.Duration(e.DebounceMS) * time.Millisecond
}

// ParserSettings configure script parsing.
type ParserSettings struct {
	DefaultThresholdMS uint32 `toml:"defaultThresholdMs" validate:"gt=0,lte=10000"`
}

// MacroSettings configure macro encoding and text conversion.
type MacroSettings struct {
	KeystrokeDelayMS int    `toml:"keystrokeDelayMs" validate:"gte=0,lte=10000"`
	Comments         bool   `toml:"comments"`
	RecordingsDir    string `toml:"recordingsDir"`
}

// LayoutSettings list the layout overlays to apply, in order.
type LayoutSettings struct {
	Files []string `toml:"files" validate:"dive,required"`
	Dirs  []string `toml:"dirs" validate:"dive,required"`
}

// LoggingSettings configure the logger.
type LoggingSettings struct {
	Level  string `toml:"level" validate:"oneof=debug info warn warning error"`
	Format string `toml:"format" validate:"oneof=console json"`
}

// StoreSettings locate persistent editor state.
type StoreSettings struct {
	Preferences string `toml:"preferences"`
	Scripts     string `toml:"scripts"`
}

// Defaults returns the built-in settings tree.
func Defaults() map[string]any {
	return map[string]any{
		"editor": map[string]any{
			"debounceMs": 500,
		},
		"parser": map[string]any{
			"defaultThresholdMs": 200,
		},
		"macro": map[string]any{
			"keystrokeDelayMs": 10,
			"comments":         false,
			"recordingsDir":    "",
		},
		"layout": map[string]any{
			"files": []any{},
			"dirs":  []any{},
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "console",
		},
		"store": map[string]any{
			"preferences": "",
			"scripts":     "",
		},
	}
}

// Default returns the built-in settings.
func Default() *Settings {
	s, err := decode(Defaults())
	if err != nil {
		panic("config: invalid defaults: " + err.Error())
	}
	return s
}

// Option configures Load.
type Option func(*options)

type options struct {
	fs      loader.FileSystem
	dir     string
	files   []string
	env     bool
	environ []string
}

// WithDir sets the settings directory searched for config.toml and
// config.yaml. An empty dir skips the directory.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithFiles adds settings files merged after the directory files.
func WithFiles(paths ...string) Option {
	return func(o *options) {
		o.files = append(o.files, paths...)
	}
}

// WithFS sets the file system used to read settings files.
func WithFS(fs loader.FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithEnv enables or disables KEYFORGE_* overrides.
func WithEnv(enable bool) Option {
	return func(o *options) {
		o.env = enable
	}
}

// WithEnviron reads overrides from environ instead of the process
// environment.
func WithEnviron(environ []string) Option {
	return func(o *options) {
		o.env = true
		o.environ = environ
	}
}

// DefaultDir returns the user settings directory.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "keyforge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "keyforge")
}

// Load merges all sources and returns validated settings.
func Load(opts ...Option) (*Settings, error) {
	o := options{fs: loader.DefaultFS(), dir: DefaultDir(), env: true}
	for _, opt := range opts {
		opt(&o)
	}

	merged := Defaults()
	var sources []string

	var paths []string
	if o.dir != "" {
		paths = append(paths, filepath.Join(o.dir, "config.toml"), filepath.Join(o.dir, "config.yaml"))
	}
	explicit := make(map[string]bool, len(o.files))
	for _, p := range o.files {
		explicit[p] = true
		paths = append(paths, p)
	}

	for _, p := range paths {
		l, err := loader.NewFileLoaderWithFS(o.fs, p)
		if err != nil {
			return nil, err
		}
		data, err := l.Load()
		if err != nil {
			return nil, err
		}
		if data == nil {
			if explicit[p] {
				return nil, fmt.Errorf("settings file %s: %w", p, os.ErrNotExist)
			}
			continue
		}
		merged = loader.DeepMerge(merged, data)
		sources = append(sources, p)
	}

	if o.env {
		env := loader.NewEnvLoader(EnvPrefix)
		if o.environ != nil {
			env = loader.NewEnvLoaderWithEnviron(EnvPrefix, o.environ)
		}
		data, err := env.Load()
		if err != nil {
			return nil, err
		}
		if data != nil {
			merged = loader.DeepMerge(merged, data)
			sources = append(sources, "env")
		}
	}

	s, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Sources = sources
	return s, nil
}

// decode converts a merged tree into Settings by round-tripping it
// through TOML, which applies the field tags and numeric conversions.
func decode(tree map[string]any) (*Settings, error) {
	data, err := toml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &s, nil
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Validate checks value ranges and enumerations.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Settings.")
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
