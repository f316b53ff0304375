// Package prefs persists operator preferences (grouping, poll cadence,
// columns, view mode, sort) in a local key-value store. Values are plain
// JSON keyed by a fixed preference name.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tidwall/jsonc"
)

// Store is a key-value preference port with JSON-serializable values.
type Store interface {
	// Get decodes the value stored under name into dst. It reports false
	// if nothing is stored.
	Get(name string, dst any) (bool, error)
	Set(name string, value any) error
	Clear(name string) error
}

// MemoryStore keeps preferences in memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]json.RawMessage)}
}

// Get implements Store.
func (s *MemoryStore) Get(name string, dst any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.values[name]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode preference %s: %w", name, err)
	}
	return true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode preference %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = raw
	return nil
}

// SetRaw stores raw bytes under name without validation.
func (s *MemoryStore) SetRaw(name string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = json.RawMessage(raw)
}

// Clear implements Store.
func (s *MemoryStore) Clear(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
	return nil
}

// FileStore keeps preferences in one JSON document on disk. Comments and
// trailing commas are accepted on read; writes replace the file atomically.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the document at path. The file is
// created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// DefaultPath returns the per-user preference file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".fleetwatch", "prefs.json")
	}
	return filepath.Join(dir, "fleetwatch", "prefs.json")
}

// Get implements Store.
func (s *FileStore) Get(name string, dst any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return false, err
	}
	raw, ok := doc[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode preference %s: %w", name, err)
	}
	return true, nil
}

// Set implements Store.
func (s *FileStore) Set(name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode preference %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readOrEmpty()
	doc[name] = raw
	return s.write(doc)
}

// Clear implements Store.
func (s *FileStore) Clear(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readOrEmpty()
	if _, ok := doc[name]; !ok {
		return nil
	}
	delete(doc, name)
	return s.write(doc)
}

// Names lists the stored preference names, sorted.
func (s *FileStore) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences %s: %w", s.path, err)
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", s.path, err)
	}
	return doc, nil
}

// readOrEmpty starts over from an empty document when the file is unreadable,
// so a corrupt file is replaced by the next write.
func (s *FileStore) readOrEmpty() map[string]json.RawMessage {
	doc, err := s.read()
	if err != nil {
		return map[string]json.RawMessage{}
	}
	return doc
}

func (s *FileStore) write(doc map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preferences directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("create temp preferences file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace preferences %s: %w", s.path, err)
	}
	return nil
}
