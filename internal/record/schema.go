package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTypeMismatch  = errors.New("relsql: type mismatch")
	ErrUnknownColumn = errors.New("relsql: unknown column")
)

type ColumnType uint8

const (
	ColInt ColumnType = iota
	ColText
	ColBool
)

func (t ColumnType) String() string {
	switch t {
	case ColInt:
		return "INT"
	case ColText:
		return "TEXT"
	case ColBool:
		return "BOOLEAN"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint8(t))
	}
}

// ParseColumnType maps a type keyword to a ColumnType.
// Accepts INT, TEXT, BOOLEAN and short forms, case-insensitively.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INT", "INTEGER":
		return ColInt, nil
	case "TEXT":
		return ColText, nil
	case "BOOLEAN", "BOOL":
		return ColBool, nil
	default:
		return 0, fmt.Errorf("%w: unsupported column type %q", ErrTypeMismatch, s)
	}
}

// Column types persist as their SQL keyword so snapshot files stay
// hand-readable.
func (t ColumnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ColumnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ct, err := ParseColumnType(s)
	if err != nil {
		return err
	}
	*t = ct
	return nil
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Row holds one value per schema column, in schema order.
// Values are int64, string or bool after coercion.
type Row []any

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	cp := make(Row, len(r))
	copy(cp, r)
	return cp
}

// Schema is a table's ordered column list plus its constraint declarations.
type Schema struct {
	Cols       []Column `json:"columns"`
	PrimaryKey string   `json:"primary_key,omitempty"`
	Unique     []string `json:"unique,omitempty"`
}

func (s Schema) NumCols() int { return len(s.Cols) }

// ColPos returns the position of the named column, or -1.
func (s Schema) ColPos(name string) int {
	for i := range s.Cols {
		if s.Cols[i].Name == name {
			return i
		}
	}
	return -1
}

func (s Schema) ColType(name string) (ColumnType, bool) {
	pos := s.ColPos(name)
	if pos < 0 {
		return 0, false
	}
	return s.Cols[pos].Type, true
}

// Constrained returns the columns backed by a hash index: the primary key
// (if any) followed by the UNIQUE columns, without duplicates.
func (s Schema) Constrained() []string {
	var out []string
	seen := map[string]bool{}
	if s.PrimaryKey != "" {
		out = append(out, s.PrimaryKey)
		seen[s.PrimaryKey] = true
	}
	for _, c := range s.Unique {
		if !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}

// Validate checks structural invariants: at least one column, no duplicate
// column names, and every constrained name declared in the column list.
func (s Schema) Validate() error {
	if len(s.Cols) == 0 {
		return fmt.Errorf("relsql: schema has no columns")
	}
	seen := map[string]bool{}
	for _, c := range s.Cols {
		if c.Name == "" {
			return fmt.Errorf("relsql: schema has an unnamed column")
		}
		if seen[c.Name] {
			return fmt.Errorf("relsql: duplicate column %q", c.Name)
		}
		seen[c.Name] = true
	}
	for _, name := range s.Constrained() {
		if !seen[name] {
			return fmt.Errorf("%w: constraint references %q", ErrUnknownColumn, name)
		}
	}
	return nil
}
