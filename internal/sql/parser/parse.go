package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrSyntax marks every malformed statement. The wrapped message names the
// expected token so the caller can present it.
var ErrSyntax = errors.New("relsql: syntax error")

// Column type keywords accepted by CREATE TABLE.
var columnTypes = map[string]bool{
	"INT": true, "INTEGER": true, "TEXT": true, "BOOLEAN": true, "BOOL": true,
}

// Parse turns a raw command string into a structured statement. Keywords are
// case-insensitive; a trailing ';' is allowed but not required.
func Parse(sql string) (Statement, error) {
	toks, err := lex(sql)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}

	if p.peek().kind != tokWord {
		return nil, p.expected("CREATE, INSERT, SELECT, UPDATE or DELETE")
	}

	var stmt Statement
	switch strings.ToUpper(p.peek().text) {
	case "CREATE":
		stmt, err = p.parseCreateTable()
	case "INSERT":
		stmt, err = p.parseInsert()
	case "SELECT":
		stmt, err = p.parseSelect()
	case "UPDATE":
		stmt, err = p.parseUpdate()
	case "DELETE":
		stmt, err = p.parseDelete()
	default:
		return nil, p.expected("CREATE, INSERT, SELECT, UPDATE or DELETE")
	}
	if err != nil {
		return nil, err
	}

	p.acceptSymbol(";")
	if p.peek().kind != tokEOF {
		return nil, p.expected("end of statement")
	}
	return stmt, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expected(what string) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrSyntax, what, p.peek().describe())
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.peek().kind == tokWord && strings.EqualFold(p.peek().text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.expected(kw)
	}
	return nil
}

func (p *parser) acceptSymbol(sym string) bool {
	if p.peek().kind == tokSymbol && p.peek().text == sym {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectSymbol(sym string) error {
	if !p.acceptSymbol(sym) {
		return p.expected(fmt.Sprintf("%q", sym))
	}
	return nil
}

// ident consumes an identifier: first char letter or '_', rest
// letter/digit/'_'.
func (p *parser) ident() (string, error) {
	if p.peek().kind != tokWord {
		return "", p.expected("identifier")
	}
	id := p.peek().text
	for i, r := range id {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return "", p.expected("identifier")
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return "", p.expected("identifier")
		}
	}
	p.pos++
	return id, nil
}

// literal consumes one literal token. Quoted text stays text verbatim;
// unquoted words become bool for true/false (any case), int64 for integers
// and text otherwise.
func (p *parser) literal() (any, error) {
	switch p.peek().kind {
	case tokString:
		return p.next().text, nil
	case tokWord:
		w := p.next().text
		switch strings.ToUpper(w) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		case "NULL":
			return nil, fmt.Errorf("%w: NULL values are not supported", ErrSyntax)
		}
		if i, err := strconv.ParseInt(w, 10, 64); err == nil {
			return i, nil
		}
		return w, nil
	default:
		return nil, p.expected("literal")
	}
}

func (p *parser) columnRef() (ColumnRef, error) {
	first, err := p.ident()
	if err != nil {
		return ColumnRef{}, err
	}
	if !p.acceptSymbol(".") {
		return ColumnRef{Column: first}, nil
	}
	col, err := p.ident()
	if err != nil {
		return ColumnRef{}, err
	}
	return ColumnRef{Table: first, Column: col}, nil
}

// ----- CREATE TABLE name (col type, ...) [PRIMARY KEY (col)] [UNIQUE (col, ...)] -----

func (p *parser) parseCreateTable() (Statement, error) {
	if err := p.expectKeyword("CREATE"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}

	var cols []ColumnDef
	for {
		colName, err := p.ident()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokWord {
			return nil, p.expected("column type (INT, TEXT or BOOLEAN)")
		}
		typ := strings.ToUpper(p.next().text)
		if !columnTypes[typ] {
			return nil, fmt.Errorf("%w: expected column type (INT, TEXT or BOOLEAN), got %q", ErrSyntax, typ)
		}
		cols = append(cols, ColumnDef{Name: colName, Type: typ})
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	stmt := &CreateTableStmt{TableName: name, Columns: cols}

	if p.acceptKeyword("PRIMARY") {
		if err := p.expectKeyword("KEY"); err != nil {
			return nil, err
		}
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		pk, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		stmt.PrimaryKey = pk
	}

	if p.acceptKeyword("UNIQUE") {
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		for {
			col, err := p.ident()
			if err != nil {
				return nil, err
			}
			stmt.Unique = append(stmt.Unique, col)
			if p.acceptSymbol(",") {
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

// ----- INSERT INTO name (cols...) VALUES (literals...) -----

func (p *parser) parseInsert() (Statement, error) {
	if err := p.expectKeyword("INSERT"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		col, err := p.ident()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var vals []any
	for {
		v, err := p.literal()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	if len(cols) != len(vals) {
		return nil, fmt.Errorf("%w: %d columns but %d values", ErrSyntax, len(cols), len(vals))
	}
	return &InsertStmt{TableName: name, Columns: cols, Values: vals}, nil
}

// ----- SELECT cols|* FROM name [JOIN other ON l.col = r.col] [WHERE col op literal] -----

func (p *parser) parseSelect() (Statement, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	stmt := &SelectStmt{}
	if p.acceptSymbol("*") {
		stmt.Star = true
	} else {
		for {
			ref, err := p.columnRef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, ref)
			if p.acceptSymbol(",") {
				continue
			}
			break
		}
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	stmt.TableName = name

	if p.acceptKeyword("JOIN") {
		other, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		left, err := p.columnRef()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		right, err := p.columnRef()
		if err != nil {
			return nil, err
		}
		stmt.Join = &JoinClause{TableName: other, Left: left, Right: right}
	}

	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	stmt.Where = where
	return stmt, nil
}

// ----- UPDATE name SET col=literal[, ...] [WHERE ...] -----

func (p *parser) parseUpdate() (Statement, error) {
	if err := p.expectKeyword("UPDATE"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}

	var assigns []Assignment
	for {
		col, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		v, err := p.literal()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, Assignment{Column: col, Value: v})
		if p.acceptSymbol(",") {
			continue
		}
		break
	}

	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	return &UpdateStmt{TableName: name, Assignments: assigns, Where: where}, nil
}

// ----- DELETE FROM name [WHERE ...] -----

func (p *parser) parseDelete() (Statement, error) {
	if err := p.expectKeyword("DELETE"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	return &DeleteStmt{TableName: name, Where: where}, nil
}

// parseWhere consumes an optional WHERE col op literal clause.
func (p *parser) parseWhere() (*WhereClause, error) {
	if !p.acceptKeyword("WHERE") {
		return nil, nil
	}
	ref, err := p.columnRef()
	if err != nil {
		return nil, err
	}
	op, err := p.compareOp()
	if err != nil {
		return nil, err
	}
	v, err := p.literal()
	if err != nil {
		return nil, err
	}
	return &WhereClause{Column: ref, Op: op, Value: v}, nil
}

func (p *parser) compareOp() (string, error) {
	if p.peek().kind == tokSymbol {
		switch p.peek().text {
		case "=", "!=", "<", "<=", ">", ">=":
			return p.next().text, nil
		}
	}
	return "", p.expected("comparison operator (=, !=, <, <=, >, >=)")
}
