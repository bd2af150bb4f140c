// Package relsql is the top-level facade for the relsql engine.
package relsql

import "github.com/relsql/relsql/internal/engine"

// Database is the engine's shared database handle.
type Database = engine.Database

// Open loads (or starts empty) the database persisted at path. An empty
// path gives an in-memory database that is never saved.
func Open(name, path string) (*Database, error) {
	return engine.Open(name, path)
}
