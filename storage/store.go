// Package storage persists string-keyed mappings as JSON files under
// the bot's data directory.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists a string-keyed mapping as a single JSON file.
// It is the backing layer for the ledgers, the check-in tracker and the
// preset store; callers own the in-memory map and serialize their own
// access.
type FileStore[V any] struct {
	path string
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore[V any](path string) *FileStore[V] {
	return &FileStore[V]{path: path}
}

// Path returns the backing file path.
func (s *FileStore[V]) Path() string {
	return s.path
}

// Load reads the backing file into a fresh map. A missing or unparsable
// file yields an empty map; corruption is treated the same as no data.
func (s *FileStore[V]) Load() map[string]V {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return make(map[string]V)
	}

	var m map[string]V
	if err := json.Unmarshal(data, &m); err != nil {
		return make(map[string]V)
	}
	if m == nil {
		m = make(map[string]V)
	}
	return m
}

// Save serializes the full mapping and replaces the backing file.
// The write goes to a temp file in the same directory first and is
// renamed into place, so a crash mid-write never leaves a truncated file.
func (s *FileStore[V]) Save(m map[string]V) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(s.path), err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(s.path), err)
	}
	return nil
}
