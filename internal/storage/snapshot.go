// Package storage persists a database snapshot as one self-describing JSON
// file: every table's schema, constraint declarations and ordered row set.
// The file is meant to be hand-inspectable; values round-trip through the
// coercion layer on load.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/relsql/relsql/internal/record"
)

var ErrPersistence = errors.New("relsql: persistence error")

type TableSnapshot struct {
	Name   string        `json:"name"`
	Schema record.Schema `json:"schema"`
	Rows   []record.Row  `json:"rows"`
}

type Snapshot struct {
	Name   string          `json:"name,omitempty"`
	Tables []TableSnapshot `json:"tables"`
}

// Store reads and writes the snapshot file for one database.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Save writes a complete snapshot. The write is atomic from the caller's
// perspective: the snapshot goes to a temporary file in the same directory
// and is renamed over the target, so a crash mid-save never leaves a file
// Load cannot parse.
func (s *Store) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal snapshot: %w", ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Load reads the snapshot back. A missing file is an empty database, never
// an error; an unreadable or unparseable file fails with ErrPersistence
// rather than silently dropping data.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPersistence, s.path, err)
	}
	return &snap, nil
}
