package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FileStore is a key-value store backed by one JSON object on disk.
// Every Set and Delete rewrites the file atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
	doc  []byte
}

// OpenFile opens the store at path. A missing file is an empty store.
// A leading "~/" is expanded to the home directory.
func OpenFile(path string) (*FileStore, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		data = []byte("{}")
	case err != nil:
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidValue)
	}
	return &FileStore{path: path, doc: data}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the raw JSON value for key.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := gjson.GetBytes(s.doc, escapePath(key))
	if !r.Exists() {
		return nil, false, nil
	}
	return []byte(r.Raw), true, nil
}

// Set stores a raw JSON value and writes the file.
func (s *FileStore) Set(key string, value []byte) error {
	if !gjson.ValidBytes(value) {
		return ErrInvalidValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.SetRawBytes(s.doc, escapePath(key), value)
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	if err := writeAtomic(s.path, doc); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// Delete removes key and writes the file.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := escapePath(key)
	if !gjson.GetBytes(s.doc, path).Exists() {
		return nil
	}
	doc, err := sjson.DeleteBytes(s.doc, path)
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	if err := writeAtomic(s.path, doc); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// Keys returns the top-level keys in sorted order.
func (s *FileStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	gjson.ParseBytes(s.doc).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

// escapePath makes key usable as a single gjson/sjson path component.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// writeAtomic writes data to path using a temp file and rename.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
