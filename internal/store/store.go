package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
)

// ErrNotFound is returned when a script does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidValue is returned when a value is not valid JSON.
var ErrInvalidValue = errors.New("value is not valid JSON")

// MemoryStore is an in-memory key-value store. The zero value is not
// ready for use; call NewMemoryStore.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get returns the raw JSON value for key.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set stores a raw JSON value.
func (s *MemoryStore) Set(key string, value []byte) error {
	if !gjson.ValidBytes(value) {
		return ErrInvalidValue
	}
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	s.data[key] = v
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
