// Package index implements the hash indexes backing PRIMARY KEY and UNIQUE
// columns. One Hash maps the canonical key of a column value to the position
// of the owning row inside the table's row slice.
package index

import (
	"errors"
	"fmt"
)

var ErrDuplicateKey = errors.New("relsql: duplicate key")

type Hash struct {
	entries map[string]int
}

func NewHash() *Hash {
	return &Hash{entries: make(map[string]int)}
}

func (h *Hash) Len() int { return len(h.entries) }

// Insert maps key to rowPos. Callers validate uniqueness through the table's
// constraint checks first; Insert still refuses to silently overwrite.
func (h *Hash) Insert(key string, rowPos int) error {
	if pos, ok := h.entries[key]; ok {
		return fmt.Errorf("%w: %q already at row %d", ErrDuplicateKey, key, pos)
	}
	h.entries[key] = rowPos
	return nil
}

func (h *Hash) Remove(key string) {
	delete(h.entries, key)
}

// Update moves the entry for a row whose indexed value changed.
func (h *Hash) Update(oldKey, newKey string, rowPos int) error {
	if oldKey == newKey {
		h.entries[newKey] = rowPos
		return nil
	}
	if pos, ok := h.entries[newKey]; ok && pos != rowPos {
		return fmt.Errorf("%w: %q already at row %d", ErrDuplicateKey, newKey, pos)
	}
	delete(h.entries, oldKey)
	h.entries[newKey] = rowPos
	return nil
}

// Lookup returns the row position holding key.
func (h *Hash) Lookup(key string) (int, bool) {
	pos, ok := h.entries[key]
	return pos, ok
}
