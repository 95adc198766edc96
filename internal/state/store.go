package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes durable JSON state documents. Every write goes
// through a temp file and an atomic rename so readers in other loops never
// observe a partially written record.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of a named document.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Save marshals v and atomically replaces the named document.
func (s *Store) Save(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := s.Path(name)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file for %s: %w", name, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// Load unmarshals the named document into v. A missing document returns
// os.ErrNotExist so callers can fall back to defaults; a corrupt document
// returns a parse error and leaves v untouched.
func (s *Store) Load(name string, v interface{}) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the named document is present on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}
