package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScriptExt is the file extension used for stored scripts.
const ScriptExt = ".kf"

// ScriptDir stores scripts as files in a directory.
type ScriptDir struct {
	dir string
}

// NewScriptDir creates a store rooted at dir. The directory is created on
// the first Save.
func NewScriptDir(dir string) (*ScriptDir, error) {
	dir, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	return &ScriptDir{dir: dir}, nil
}

// Dir returns the root directory.
func (s *ScriptDir) Dir() string {
	return s.dir
}

// Path returns the file path used for name.
func (s *ScriptDir) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid script name %q", name)
	}
	if filepath.Ext(name) != ScriptExt {
		name += ScriptExt
	}
	return filepath.Join(s.dir, name), nil
}

// Load returns the source stored under name.
func (s *ScriptDir) Load(name string) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("script %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}

// Save writes src under name atomically.
func (s *ScriptDir) Save(name, src string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	return writeAtomic(path, []byte(src))
}

// List returns the stored script names without extension, sorted.
func (s *ScriptDir) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ScriptExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ScriptExt))
	}
	sort.Strings(names)
	return names, nil
}
