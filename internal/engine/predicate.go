package engine

import (
	"fmt"

	"github.com/relsql/relsql/internal/record"
)

// Comparison operators accepted in WHERE clauses.
const (
	OpEq = "="
	OpNe = "!="
	OpLt = "<"
	OpLe = "<="
	OpGt = ">"
	OpGe = ">="
)

// Predicate is a single WHERE condition: column, operator, literal.
type Predicate struct {
	Column string
	Op     string
	Value  any
}

// EvalOp compares two typed values under op. Equality is coercion-aware
// (record.Equal); ordering is numeric for integers and lexicographic for
// text (record.Compare).
func EvalOp(got any, op string, want any) (bool, error) {
	switch op {
	case OpEq:
		return record.Equal(got, want), nil
	case OpNe:
		return !record.Equal(got, want), nil
	case OpLt, OpLe, OpGt, OpGe:
		c, err := record.Compare(got, want)
		if err != nil {
			return false, err
		}
		switch op {
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	default:
		return false, fmt.Errorf("relsql: unsupported operator %q", op)
	}
}
