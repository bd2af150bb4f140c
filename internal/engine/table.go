package engine

import (
	"errors"
	"fmt"

	"github.com/relsql/relsql/internal/index"
	"github.com/relsql/relsql/internal/record"
)

var (
	ErrUnknownTable        = errors.New("relsql: unknown table")
	ErrDuplicateTable      = errors.New("relsql: duplicate table")
	ErrConstraintViolation = errors.New("relsql: constraint violation")
)

// Table is an ordered collection of rows conforming to a schema, backed by
// one hash index per constrained column. Table methods do no locking and no
// persistence; Database owns both.
type Table struct {
	Name   string
	Schema record.Schema

	rows    []record.Row
	indexes map[string]*index.Hash
}

func NewTable(name string, schema record.Schema) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("relsql: empty table name")
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}
	t := &Table{
		Name:    name,
		Schema:  schema,
		indexes: make(map[string]*index.Hash),
	}
	for _, col := range schema.Constrained() {
		t.indexes[col] = index.NewHash()
	}
	return t, nil
}

func (t *Table) NumRows() int { return len(t.rows) }

// Insert coerces values by declared type, enforces PK/UNIQUE constraints via
// the hash indexes, appends the row and updates the indexes. On any failure
// nothing is mutated. Every schema column must be supplied: rows are total.
func (t *Table) Insert(values map[string]any) (int, error) {
	for name := range values {
		if t.Schema.ColPos(name) < 0 {
			return 0, fmt.Errorf("%w: %q in table %q", record.ErrUnknownColumn, name, t.Name)
		}
	}

	row := make(record.Row, t.Schema.NumCols())
	for i, col := range t.Schema.Cols {
		raw, ok := values[col.Name]
		if !ok {
			return 0, fmt.Errorf("%w: missing value for column %q", ErrConstraintViolation, col.Name)
		}
		cv, err := record.Coerce(raw, col.Type)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", col.Name, err)
		}
		row[i] = cv
	}

	// Uniqueness goes through the indexes, never a full scan.
	keys := make(map[string]string, len(t.indexes))
	for _, name := range t.Schema.Constrained() {
		key := record.Text(row[t.Schema.ColPos(name)])
		if prev, ok := t.indexes[name].Lookup(key); ok {
			return 0, fmt.Errorf("%w: duplicate value %q for column %q (row %d)",
				ErrConstraintViolation, key, name, prev)
		}
		keys[name] = key
	}

	rowPos := len(t.rows)
	t.rows = append(t.rows, row)
	for name, key := range keys {
		if err := t.indexes[name].Insert(key, rowPos); err != nil {
			// Cannot happen after the lookups above; refuse a half-indexed row.
			t.rows = t.rows[:rowPos]
			_ = t.rebuildIndexes()
			return 0, err
		}
	}
	return rowPos, nil
}

// Scan walks rows in insertion order, calling fn for each row matching the
// optional predicate. Calling Scan again restarts from the first row.
func (t *Table) Scan(pred *Predicate, fn func(pos int, row record.Row) error) error {
	for pos, row := range t.rows {
		ok, err := t.match(row, pred)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(pos, row); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) match(row record.Row, p *Predicate) (bool, error) {
	if p == nil {
		return true, nil
	}
	pos := t.Schema.ColPos(p.Column)
	if pos < 0 {
		return false, fmt.Errorf("%w: %q in WHERE clause", record.ErrUnknownColumn, p.Column)
	}
	want, err := record.Coerce(p.Value, t.Schema.Cols[pos].Type)
	if err != nil {
		return false, fmt.Errorf("column %q: %w", p.Column, err)
	}
	return EvalOp(row[pos], p.Op, want)
}

// LookupByKey finds the row holding v in the named column: O(1) via the hash
// index when the column is constrained, a full scan otherwise. pos is -1
// when no row matches.
func (t *Table) LookupByKey(column string, v any) (record.Row, int, error) {
	cpos := t.Schema.ColPos(column)
	if cpos < 0 {
		return nil, -1, fmt.Errorf("%w: %q in table %q", record.ErrUnknownColumn, column, t.Name)
	}
	if idx, ok := t.indexes[column]; ok {
		key, err := record.Key(v, t.Schema.Cols[cpos].Type)
		if err != nil {
			return nil, -1, fmt.Errorf("column %q: %w", column, err)
		}
		rp, ok := idx.Lookup(key)
		if !ok {
			return nil, -1, nil
		}
		return t.rows[rp].Clone(), rp, nil
	}

	want, err := record.Coerce(v, t.Schema.Cols[cpos].Type)
	if err != nil {
		return nil, -1, fmt.Errorf("column %q: %w", column, err)
	}
	for rp, row := range t.rows {
		if record.Equal(row[cpos], want) {
			return row.Clone(), rp, nil
		}
	}
	return nil, -1, nil
}

// UpdateWhere mutates every row matching the predicate with the given
// assignments and returns the count changed.
//
// Partial-failure policy: validate all, then apply. Assignments are coerced
// and every prospective row is checked against the constraints before any
// row or index entry is touched, so a failed UPDATE mutates nothing.
func (t *Table) UpdateWhere(pred *Predicate, set map[string]any) (int, error) {
	if len(set) == 0 {
		return 0, fmt.Errorf("relsql: UPDATE with empty SET list")
	}

	typed := make(map[int]any, len(set))
	for name, raw := range set {
		cpos := t.Schema.ColPos(name)
		if cpos < 0 {
			return 0, fmt.Errorf("%w: %q in SET clause", record.ErrUnknownColumn, name)
		}
		cv, err := record.Coerce(raw, t.Schema.Cols[cpos].Type)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", name, err)
		}
		typed[cpos] = cv
	}

	var matched []int
	err := t.Scan(pred, func(pos int, _ record.Row) error {
		matched = append(matched, pos)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}

	for _, name := range t.Schema.Constrained() {
		cpos := t.Schema.ColPos(name)
		nv, changing := typed[cpos]
		if !changing {
			continue
		}
		newKey := record.Text(nv)
		// Assignments are literals, so all matched rows would receive the
		// same constrained value.
		if len(matched) > 1 {
			return 0, fmt.Errorf("%w: %d rows would share value %q for column %q",
				ErrConstraintViolation, len(matched), newKey, name)
		}
		// A row keeping its current value must not self-violate.
		if prev, ok := t.indexes[name].Lookup(newKey); ok && prev != matched[0] {
			return 0, fmt.Errorf("%w: duplicate value %q for column %q (row %d)",
				ErrConstraintViolation, newKey, name, prev)
		}
	}

	for _, rp := range matched {
		row := t.rows[rp]
		for cpos, nv := range typed {
			name := t.Schema.Cols[cpos].Name
			if idx, ok := t.indexes[name]; ok {
				if err := idx.Update(record.Text(row[cpos]), record.Text(nv), rp); err != nil {
					return 0, err
				}
			}
			row[cpos] = nv
		}
	}
	return len(matched), nil
}

// DeleteWhere removes matching rows and returns the count removed. Deleting
// shifts the positions of every later row, so the indexes are rebuilt from
// the surviving row data.
func (t *Table) DeleteWhere(pred *Predicate) (int, error) {
	del := make(map[int]bool)
	err := t.Scan(pred, func(pos int, _ record.Row) error {
		del[pos] = true
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(del) == 0 {
		return 0, nil
	}

	kept := make([]record.Row, 0, len(t.rows)-len(del))
	for pos, row := range t.rows {
		if !del[pos] {
			kept = append(kept, row)
		}
	}
	t.rows = kept
	if err := t.rebuildIndexes(); err != nil {
		return 0, err
	}
	return len(del), nil
}

// Rows returns an independent copy of the current row set in insertion order.
func (t *Table) Rows() []record.Row {
	out := make([]record.Row, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.Clone()
	}
	return out
}

// rebuildIndexes reconstructs every hash index from the row data. Used after
// deletes (row positions shift) and on snapshot load (stored indexes are
// never trusted).
func (t *Table) rebuildIndexes() error {
	for _, name := range t.Schema.Constrained() {
		t.indexes[name] = index.NewHash()
	}
	for rp, row := range t.rows {
		for _, name := range t.Schema.Constrained() {
			key := record.Text(row[t.Schema.ColPos(name)])
			if err := t.indexes[name].Insert(key, rp); err != nil {
				return fmt.Errorf("%w: column %q: %w", ErrConstraintViolation, name, err)
			}
		}
	}
	return nil
}
