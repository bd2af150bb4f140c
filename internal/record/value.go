package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coerce converts a raw value into the in-memory representation for t:
// int64 for INT, string for TEXT, bool for BOOLEAN.
//
// Raw values arrive from two ingress points and the representations differ:
// the parser produces int64/string/bool from literal tokens, while the
// snapshot loader produces float64/string/bool from JSON. Both funnel
// through here so the rest of the engine only ever sees canonical values.
func Coerce(raw any, t ColumnType) (any, error) {
	switch t {
	case ColInt:
		return coerceInt(raw)
	case ColText:
		return coerceText(raw)
	case ColBool:
		return coerceBool(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported column type %v", ErrTypeMismatch, t)
	}
}

func coerceInt(raw any) (any, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		// JSON numbers decode as float64; only integral values are valid INTs.
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %v is not an integer", ErrTypeMismatch, v)
		}
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot convert %q to INT", ErrTypeMismatch, v)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %T to INT", ErrTypeMismatch, raw)
	}
}

func coerceText(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %T to TEXT", ErrTypeMismatch, raw)
	}
}

func coerceBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		default:
			return nil, fmt.Errorf("%w: invalid BOOLEAN value %q", ErrTypeMismatch, v)
		}
	case int64:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, fmt.Errorf("%w: invalid BOOLEAN value %d", ErrTypeMismatch, v)
	case float64:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, fmt.Errorf("%w: invalid BOOLEAN value %v", ErrTypeMismatch, v)
	default:
		return nil, fmt.Errorf("%w: cannot convert %T to BOOLEAN", ErrTypeMismatch, raw)
	}
}

// Key returns the canonical index key for v under column type t.
// Two values that Coerce to the same typed value produce the same key.
func Key(v any, t ColumnType) (string, error) {
	cv, err := Coerce(v, t)
	if err != nil {
		return "", err
	}
	return Text(cv), nil
}

// Text renders a typed value in its canonical text form, the same form
// comparisons and the snapshot format round-trip through.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Equal reports whether a and b denote the same logical value. Two coerced
// values of the same type compare directly, so TEXT values "5" and "05" stay
// distinct even though both read as integers. The integer and boolean bridges
// apply only to mixed representations: persisted values round-trip through
// text, so integer 1 must equal the text "1" and boolean true must equal the
// token "True".
func Equal(a, b any) bool {
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return as == bs
		}
	}
	if ai, aok := asInt(a); aok {
		if bi, bok := asInt(b); bok {
			return ai == bi
		}
	}
	if ab, aok := asBool(a); aok {
		if bb, bok := asBool(b); bok {
			return ab == bb
		}
	}
	return Text(a) == Text(b)
}

// Compare orders a and b: lexicographically when both sides are text,
// numerically when both sides read as integers, lexicographically on the text
// form otherwise. Booleans do not order.
func Compare(a, b any) (int, error) {
	if _, aok := a.(bool); aok {
		return 0, fmt.Errorf("%w: BOOLEAN values have no ordering", ErrTypeMismatch)
	}
	if _, bok := b.(bool); bok {
		return 0, fmt.Errorf("%w: BOOLEAN values have no ordering", ErrTypeMismatch)
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), nil
		}
	}
	if ai, aok := asInt(a); aok {
		if bi, bok := asInt(b); bok {
			switch {
			case ai < bi:
				return -1, nil
			case ai > bi:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	return strings.Compare(Text(a), Text(b)), nil
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		if x == math.Trunc(x) {
			return int64(x), true
		}
		return 0, false
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}
