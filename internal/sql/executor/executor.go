// Package executor interprets parsed statements against a database: it
// resolves predicates, projects columns and performs two-table nested-loop
// inner joins. It is the single entry point the REPL and TCP front ends
// call; they never reach into schema or constraint logic themselves.
package executor

import (
	"fmt"
	"log/slog"

	"github.com/relsql/relsql/internal/engine"
	"github.com/relsql/relsql/internal/record"
	"github.com/relsql/relsql/internal/sql/parser"
)

type Executor struct {
	db *engine.Database
}

func New(db *engine.Database) *Executor {
	return &Executor{db: db}
}

// Execute is the top-level entry: SQL string -> Result.
func (e *Executor) Execute(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return e.execCreateTable(s)
	case *parser.InsertStmt:
		return e.execInsert(s)
	case *parser.SelectStmt:
		if s.Join != nil {
			return e.execJoin(s)
		}
		return e.execSelect(s)
	case *parser.UpdateStmt:
		return e.execUpdate(s)
	case *parser.DeleteStmt:
		return e.execDelete(s)
	default:
		return nil, fmt.Errorf("relsql: unsupported statement type %T", stmt)
	}
}

func (e *Executor) execCreateTable(s *parser.CreateTableStmt) (*Result, error) {
	schema := record.Schema{
		PrimaryKey: s.PrimaryKey,
		Unique:     s.Unique,
	}
	for _, cd := range s.Columns {
		ct, err := record.ParseColumnType(cd.Type)
		if err != nil {
			return nil, err
		}
		schema.Cols = append(schema.Cols, record.Column{Name: cd.Name, Type: ct})
	}
	if err := e.db.CreateTable(s.TableName, schema); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (e *Executor) execInsert(s *parser.InsertStmt) (*Result, error) {
	values := make(map[string]any, len(s.Columns))
	for i, col := range s.Columns {
		if _, dup := values[col]; dup {
			return nil, fmt.Errorf("%w: column %q listed twice", parser.ErrSyntax, col)
		}
		values[col] = s.Values[i]
	}
	if _, err := e.db.Insert(s.TableName, values); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: 1}, nil
}

func (e *Executor) execSelect(s *parser.SelectStmt) (*Result, error) {
	pred, err := singleTablePredicate(s.Where, s.TableName)
	if err != nil {
		return nil, err
	}

	schema, rows, err := e.db.Select(s.TableName, pred)
	if err != nil {
		return nil, err
	}

	// Resolve the projection: * means all columns in schema order.
	var positions []int
	res := &Result{}
	if s.Star {
		positions = make([]int, schema.NumCols())
		for i, col := range schema.Cols {
			positions[i] = i
			res.Columns = append(res.Columns, col.Name)
		}
	} else {
		for _, ref := range s.Columns {
			if ref.Table != "" && ref.Table != s.TableName {
				return nil, fmt.Errorf("%w: %q", engine.ErrUnknownTable, ref.Table)
			}
			pos := schema.ColPos(ref.Column)
			if pos < 0 {
				return nil, fmt.Errorf("%w: %q", record.ErrUnknownColumn, ref.Column)
			}
			positions = append(positions, pos)
			res.Columns = append(res.Columns, ref.Column)
		}
	}

	for _, row := range rows {
		out := make([]any, len(positions))
		for i, pos := range positions {
			out[i] = row[pos]
		}
		res.Rows = append(res.Rows, out)
	}
	res.AffectedRows = int64(len(res.Rows))
	return res, nil
}

// execJoin performs a nested-loop inner join over exactly two tables. Join
// columns compare under coercion equality, so an integer key on one side
// matches its text representation on the other after a persistence round
// trip. Result order is deterministic: left row order outer, right inner.
func (e *Executor) execJoin(s *parser.SelectStmt) (*Result, error) {
	views, err := e.db.Read(s.TableName, s.Join.TableName)
	if err != nil {
		return nil, err
	}
	left, right := views[0], views[1]
	if left.Name == right.Name {
		return nil, fmt.Errorf("relsql: cannot join table %q with itself", left.Name)
	}

	cols := joinedColumns(left, right)

	lSide, lPos, err := bindJoinRef(s.Join.Left, left, right, 0)
	if err != nil {
		return nil, err
	}
	rSide, rPos, err := bindJoinRef(s.Join.Right, left, right, 1)
	if err != nil {
		return nil, err
	}
	if lSide == rSide {
		return nil, fmt.Errorf("%w: join condition must reference both tables", parser.ErrSyntax)
	}
	if lSide == 1 {
		// Condition written right-to-left; normalize so lPos indexes the
		// left table's rows.
		lPos, rPos = rPos, lPos
	}

	var wherePos = -1
	var whereVal any
	var whereOp string
	if s.Where != nil {
		wherePos, err = findJoined(cols, s.Where.Column)
		if err != nil {
			return nil, err
		}
		whereVal, err = record.Coerce(s.Where.Value, cols[wherePos].typ)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cols[wherePos].name, err)
		}
		whereOp = s.Where.Op
	}

	positions, names, err := joinProjection(s, cols)
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: names}

	for _, lrow := range left.Rows {
		for _, rrow := range right.Rows {
			if !record.Equal(lrow[lPos], rrow[rPos]) {
				continue
			}
			combined := make([]any, 0, len(cols))
			combined = append(combined, lrow...)
			combined = append(combined, rrow...)

			if wherePos >= 0 {
				ok, err := engine.EvalOp(combined[wherePos], whereOp, whereVal)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}

			out := make([]any, len(positions))
			for i, pos := range positions {
				out[i] = combined[pos]
			}
			res.Rows = append(res.Rows, out)
		}
	}
	res.AffectedRows = int64(len(res.Rows))

	slog.Debug("join executed",
		"left", left.Name, "right", right.Name, "rows", len(res.Rows))
	return res, nil
}

func (e *Executor) execUpdate(s *parser.UpdateStmt) (*Result, error) {
	pred, err := singleTablePredicate(s.Where, s.TableName)
	if err != nil {
		return nil, err
	}
	set := make(map[string]any, len(s.Assignments))
	for _, a := range s.Assignments {
		if _, dup := set[a.Column]; dup {
			return nil, fmt.Errorf("%w: column %q assigned twice", parser.ErrSyntax, a.Column)
		}
		set[a.Column] = a.Value
	}
	n, err := e.db.UpdateWhere(s.TableName, pred, set)
	if err != nil {
		return nil, err
	}
	return &Result{AffectedRows: int64(n)}, nil
}

func (e *Executor) execDelete(s *parser.DeleteStmt) (*Result, error) {
	pred, err := singleTablePredicate(s.Where, s.TableName)
	if err != nil {
		return nil, err
	}
	n, err := e.db.DeleteWhere(s.TableName, pred)
	if err != nil {
		return nil, err
	}
	return &Result{AffectedRows: int64(n)}, nil
}

// ----- helpers -----

func singleTablePredicate(w *parser.WhereClause, table string) (*engine.Predicate, error) {
	if w == nil {
		return nil, nil
	}
	if w.Column.Table != "" && w.Column.Table != table {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownTable, w.Column.Table)
	}
	return &engine.Predicate{Column: w.Column.Column, Op: w.Op, Value: w.Value}, nil
}

// joinedCol is one column of the combined row, qualified by its table to
// avoid collisions.
type joinedCol struct {
	name string // "table.column"
	col  string // bare column name
	typ  record.ColumnType
}

func joinedColumns(left, right engine.TableView) []joinedCol {
	cols := make([]joinedCol, 0, left.Schema.NumCols()+right.Schema.NumCols())
	for _, c := range left.Schema.Cols {
		cols = append(cols, joinedCol{name: left.Name + "." + c.Name, col: c.Name, typ: c.Type})
	}
	for _, c := range right.Schema.Cols {
		cols = append(cols, joinedCol{name: right.Name + "." + c.Name, col: c.Name, typ: c.Type})
	}
	return cols
}

// bindJoinRef resolves one side of the ON condition to (side, position
// within that side's rows). Qualified refs bind by table name; bare refs
// bind positionally to the side they were written on.
func bindJoinRef(ref parser.ColumnRef, left, right engine.TableView, side int) (int, int, error) {
	view := left
	switch ref.Table {
	case "":
		if side == 1 {
			view = right
		}
	case left.Name:
		view, side = left, 0
	case right.Name:
		view, side = right, 1
	default:
		return 0, 0, fmt.Errorf("%w: %q", engine.ErrUnknownTable, ref.Table)
	}
	pos := view.Schema.ColPos(ref.Column)
	if pos < 0 {
		return 0, 0, fmt.Errorf("%w: %q in table %q", record.ErrUnknownColumn, ref.Column, view.Name)
	}
	return side, pos, nil
}

// findJoined resolves a column reference against the combined column list.
// Bare names must be unambiguous across the two tables.
func findJoined(cols []joinedCol, ref parser.ColumnRef) (int, error) {
	if ref.Table != "" {
		want := ref.Table + "." + ref.Column
		for i, c := range cols {
			if c.name == want {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: %q", record.ErrUnknownColumn, want)
	}
	found := -1
	for i, c := range cols {
		if c.col == ref.Column {
			if found >= 0 {
				return -1, fmt.Errorf("%w: %q is ambiguous, qualify it with a table name",
					record.ErrUnknownColumn, ref.Column)
			}
			found = i
		}
	}
	if found < 0 {
		return -1, fmt.Errorf("%w: %q", record.ErrUnknownColumn, ref.Column)
	}
	return found, nil
}

// joinProjection maps the requested columns (or * for every qualified
// column) onto combined-row positions.
func joinProjection(s *parser.SelectStmt, cols []joinedCol) ([]int, []string, error) {
	if s.Star {
		positions := make([]int, len(cols))
		names := make([]string, len(cols))
		for i, c := range cols {
			positions[i] = i
			names[i] = c.name
		}
		return positions, names, nil
	}
	var positions []int
	var names []string
	for _, ref := range s.Columns {
		pos, err := findJoined(cols, ref)
		if err != nil {
			return nil, nil, err
		}
		positions = append(positions, pos)
		names = append(names, cols[pos].name)
	}
	return positions, names, nil
}
