package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDefault(t *testing.T) {
	s := Default()
	want := &Settings{
		Editor:  EditorSettings{DebounceMS: 500},
		Parser:  ParserSettings{DefaultThresholdMS: 200},
		Macro:   MacroSettings{KeystrokeDelayMS: 10},
		Logging: LoggingSettings{Level: "info", Format: "console"},
	}
	if diff := cmp.Diff(want, s, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Default() mismatch (-want +got):\n%s", diff)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
	if s.Editor.Debounce() != 500*time.Millisecond {
		t.Errorf("Debounce() = %v", s.Editor.Debounce())
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[editor]
debounceMs = 250

[macro]
comments = true

[layout]
files = ["de.toml"]
`), 0o644)
	os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("editor:\n  debounceMs: 300\nlogging:\n  format: json\n"), 0o644)

	extra := filepath.Join(t.TempDir(), "ci.toml")
	os.WriteFile(extra, []byte("[parser]\ndefaultThresholdMs = 150\n"), 0o644)

	s, err := Load(
		WithDir(dir),
		WithFiles(extra),
		WithEnviron([]string{"KEYFORGE_LOG_LEVEL=debug", "KEYFORGE_EDITOR_DEBOUNCE_MS=100"}),
	)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Settings{
		Editor:  EditorSettings{DebounceMS: 100},
		Parser:  ParserSettings{DefaultThresholdMS: 150},
		Macro:   MacroSettings{KeystrokeDelayMS: 10, Comments: true},
		Layout:  LayoutSettings{Files: []string{"de.toml"}},
		Logging: LoggingSettings{Level: "debug", Format: "json"},
		Sources: []string{
			filepath.Join(dir, "config.toml"),
			filepath.Join(dir, "config.yaml"),
			extra,
			"env",
		},
	}
	if diff := cmp.Diff(want, s, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingDirIsDefault(t *testing.T) {
	s, err := Load(WithDir(filepath.Join(t.TempDir(), "none")), WithEnv(false))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), s, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(WithDir(""), WithEnv(false), WithFiles(filepath.Join(t.TempDir(), "gone.toml")))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"range", "[editor]\ndebounceMs = 999999\n", "editor.debounceMs must be at most 60000"},
		{"zero threshold", "[parser]\ndefaultThresholdMs = 0\n", "parser.defaultThresholdMs must be greater than 0"},
		{"level", "[logging]\nlevel = \"loud\"\n", "logging.level must be one of"},
		{"type", "[editor]\ndebounceMs = \"fast\"\n", ""},
		{"empty layout", "[layout]\nfiles = [\"\"]\n", "layout.files[0] is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.toml")
			os.WriteFile(path, []byte(tt.content), 0o644)

			_, err := Load(WithDir(""), WithEnv(false), WithFiles(path))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Load() error = %v, want ErrInvalid", err)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadUnsupportedFile(t *testing.T) {
	if _, err := Load(WithDir(""), WithEnv(false), WithFiles("settings.ini")); err == nil {
		t.Error("Load() with .ini file should fail")
	}
}
