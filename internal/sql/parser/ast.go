package parser

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// ----- CREATE TABLE -----

type ColumnDef struct {
	Name string
	Type string // "INT", "TEXT", "BOOLEAN"
}

type CreateTableStmt struct {
	TableName  string
	Columns    []ColumnDef
	PrimaryKey string // empty when not declared
	Unique     []string
}

func (*CreateTableStmt) stmtNode() {}

// ----- INSERT -----

type InsertStmt struct {
	TableName string
	Columns   []string
	Values    []any // literal values: int64, string or bool
}

func (*InsertStmt) stmtNode() {}

// ----- SELECT -----

// ColumnRef names a column, optionally qualified by its table.
type ColumnRef struct {
	Table  string
	Column string
}

func (r ColumnRef) String() string {
	if r.Table == "" {
		return r.Column
	}
	return r.Table + "." + r.Column
}

type WhereClause struct {
	Column ColumnRef
	Op     string // =, !=, <, <=, >, >=
	Value  any
}

type JoinClause struct {
	TableName string // right-hand table
	Left      ColumnRef
	Right     ColumnRef
}

type SelectStmt struct {
	TableName string
	Star      bool
	Columns   []ColumnRef // empty when Star
	Join      *JoinClause
	Where     *WhereClause
}

func (*SelectStmt) stmtNode() {}

// ----- UPDATE -----

type Assignment struct {
	Column string
	Value  any
}

type UpdateStmt struct {
	TableName   string
	Assignments []Assignment
	Where       *WhereClause
}

func (*UpdateStmt) stmtNode() {}

// ----- DELETE -----

type DeleteStmt struct {
	TableName string
	Where     *WhereClause
}

func (*DeleteStmt) stmtNode() {}
