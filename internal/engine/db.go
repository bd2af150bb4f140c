package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/relsql/relsql/internal/record"
	"github.com/relsql/relsql/internal/storage"
)

// Database is a named collection of tables and the engine's single shared
// mutable resource. One RWMutex guards it: readers may run concurrently with
// each other but never with a writer, and a writer holds exclusive access
// for the full mutate-plus-save sequence so a reader never observes an
// index/row mismatch mid-update.
type Database struct {
	Name string

	mu     sync.RWMutex
	store  *storage.Store
	tables map[string]*Table
	order  []string
}

// Open loads the database from its snapshot file, or starts empty when the
// file does not exist. path may be empty for an in-memory database that is
// never persisted. Indexes are rebuilt from row data, never trusted as
// stored.
func Open(name, path string) (*Database, error) {
	db := &Database{
		Name:   name,
		tables: make(map[string]*Table),
	}
	if path == "" {
		return db, nil
	}
	db.store = storage.NewStore(path)

	snap, err := db.store.Load()
	if err != nil {
		return nil, err
	}
	for _, ts := range snap.Tables {
		t, err := loadTable(ts)
		if err != nil {
			return nil, err
		}
		if _, exists := db.tables[t.Name]; exists {
			return nil, fmt.Errorf("%w: snapshot repeats table %q", storage.ErrPersistence, t.Name)
		}
		db.tables[t.Name] = t
		db.order = append(db.order, t.Name)
	}
	slog.Info("database opened", "name", name, "path", path, "tables", len(db.order))
	return db, nil
}

// loadTable reconstructs a table from its snapshot: stored values are pushed
// back through coercion (JSON numbers arrive as float64) and the indexes are
// rebuilt from the rows.
func loadTable(ts storage.TableSnapshot) (*Table, error) {
	t, err := NewTable(ts.Name, ts.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrPersistence, err)
	}
	for i, raw := range ts.Rows {
		if len(raw) != ts.Schema.NumCols() {
			return nil, fmt.Errorf("%w: table %q row %d has %d values, want %d",
				storage.ErrPersistence, ts.Name, i, len(raw), ts.Schema.NumCols())
		}
		row := make(record.Row, len(raw))
		for c, v := range raw {
			cv, err := record.Coerce(v, ts.Schema.Cols[c].Type)
			if err != nil {
				return nil, fmt.Errorf("%w: table %q row %d: %w",
					storage.ErrPersistence, ts.Name, i, err)
			}
			row[c] = cv
		}
		t.rows = append(t.rows, row)
	}
	if err := t.rebuildIndexes(); err != nil {
		return nil, fmt.Errorf("%w: table %q: %w", storage.ErrPersistence, ts.Name, err)
	}
	return t, nil
}

// save writes the full snapshot. Callers hold the write lock.
func (db *Database) save() error {
	if db.store == nil {
		return nil
	}
	snap := &storage.Snapshot{Name: db.Name}
	for _, name := range db.order {
		t := db.tables[name]
		snap.Tables = append(snap.Tables, storage.TableSnapshot{
			Name:   name,
			Schema: t.Schema,
			Rows:   t.rows,
		})
	}
	return db.store.Save(snap)
}

func (db *Database) table(name string) (*Table, error) {
	t, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// CreateTable adds an empty table and persists the new catalog.
func (db *Database) CreateTable(name string, schema record.Schema) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tables[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTable, name)
	}
	t, err := NewTable(name, schema)
	if err != nil {
		return err
	}
	db.tables[name] = t
	db.order = append(db.order, name)
	if err := db.save(); err != nil {
		delete(db.tables, name)
		db.order = db.order[:len(db.order)-1]
		return err
	}
	slog.Info("table created", "db", db.Name, "table", name, "columns", schema.NumCols())
	return nil
}

// Insert adds one row and persists. A rejected insert leaves rows, indexes
// and the snapshot file untouched.
func (db *Database) Insert(table string, values map[string]any) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.table(table)
	if err != nil {
		return 0, err
	}
	n := len(t.rows)
	pos, err := t.Insert(values)
	if err != nil {
		return 0, err
	}
	if err := db.save(); err != nil {
		t.rows = t.rows[:n]
		_ = t.rebuildIndexes()
		return 0, err
	}
	slog.Debug("row inserted", "db", db.Name, "table", table, "pos", pos)
	return pos, nil
}

// UpdateWhere mutates matching rows and persists when anything changed. A
// failed save restores the previous rows so memory never runs ahead of disk.
func (db *Database) UpdateWhere(table string, pred *Predicate, set map[string]any) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.table(table)
	if err != nil {
		return 0, err
	}
	prev := t.Rows()
	n, err := t.UpdateWhere(pred, set)
	if err != nil || n == 0 {
		return n, err
	}
	if err := db.save(); err != nil {
		t.rows = prev
		_ = t.rebuildIndexes()
		return 0, err
	}
	slog.Debug("rows updated", "db", db.Name, "table", table, "count", n)
	return n, nil
}

// DeleteWhere removes matching rows and persists when anything changed. A
// failed save restores the previous rows so memory never runs ahead of disk.
func (db *Database) DeleteWhere(table string, pred *Predicate) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.table(table)
	if err != nil {
		return 0, err
	}
	prev := t.Rows()
	n, err := t.DeleteWhere(pred)
	if err != nil || n == 0 {
		return n, err
	}
	if err := db.save(); err != nil {
		t.rows = prev
		_ = t.rebuildIndexes()
		return 0, err
	}
	slog.Debug("rows deleted", "db", db.Name, "table", table, "count", n)
	return n, nil
}

// Select returns copies of the rows of one table matching the optional
// predicate, in insertion order. An equality predicate on a constrained
// column takes the O(1) index path instead of a scan.
func (db *Database) Select(table string, pred *Predicate) (record.Schema, []record.Row, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, err := db.table(table)
	if err != nil {
		return record.Schema{}, nil, err
	}

	if pred != nil && pred.Op == OpEq {
		if _, indexed := t.indexes[pred.Column]; indexed {
			row, pos, err := t.LookupByKey(pred.Column, pred.Value)
			if err != nil {
				return record.Schema{}, nil, err
			}
			if pos < 0 {
				return t.Schema, nil, nil
			}
			return t.Schema, []record.Row{row}, nil
		}
	}

	var rows []record.Row
	err = t.Scan(pred, func(_ int, row record.Row) error {
		rows = append(rows, row.Clone())
		return nil
	})
	if err != nil {
		return record.Schema{}, nil, err
	}
	return t.Schema, rows, nil
}

// TableView is a consistent read snapshot of one table.
type TableView struct {
	Name   string
	Schema record.Schema
	Rows   []record.Row
}

// Read copies the named tables under a single read lock, so a two-table join
// always sees both sides from the same moment.
func (db *Database) Read(names ...string) ([]TableView, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	views := make([]TableView, 0, len(names))
	for _, name := range names {
		t, err := db.table(name)
		if err != nil {
			return nil, err
		}
		views = append(views, TableView{Name: name, Schema: t.Schema, Rows: t.Rows()})
	}
	return views, nil
}

// GetTable returns the live table for read-only introspection.
func (db *Database) GetTable(name string) (*Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.table(name)
}

// ListTables returns table names in creation order.
func (db *Database) ListTables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, len(db.order))
	copy(out, db.order)
	return out
}
