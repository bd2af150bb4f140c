package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relsql/relsql/internal/record"
)

func usersSchema() record.Schema {
	return record.Schema{
		Cols: []record.Column{
			{Name: "id", Type: record.ColInt},
			{Name: "username", Type: record.ColText},
		},
		PrimaryKey: "id",
		Unique:     []string{"username"},
	}
}

func newUsersTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable("users", usersSchema())
	require.NoError(t, err)
	return tbl
}

func TestNewTable_InvalidSchema(t *testing.T) {
	_, err := NewTable("users", record.Schema{
		Cols:       []record.Column{{Name: "id", Type: record.ColInt}},
		PrimaryKey: "missing",
	})
	require.ErrorIs(t, err, record.ErrUnknownColumn)
}

func TestTableInsert_Constraints(t *testing.T) {
	tbl := newUsersTable(t)

	_, err := tbl.Insert(map[string]any{"id": int64(1), "username": "bob"})
	require.NoError(t, err)

	// PK collision
	_, err = tbl.Insert(map[string]any{"id": int64(1), "username": "alice"})
	require.ErrorIs(t, err, ErrConstraintViolation)

	// unique collision
	_, err = tbl.Insert(map[string]any{"id": int64(2), "username": "bob"})
	require.ErrorIs(t, err, ErrConstraintViolation)

	// nothing was added
	assert.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, 1, tbl.indexes["id"].Len())
	assert.Equal(t, 1, tbl.indexes["username"].Len())
}

func TestTableInsert_TypeMismatch(t *testing.T) {
	tbl := newUsersTable(t)

	_, err := tbl.Insert(map[string]any{"id": "x", "username": "bob2"})
	require.ErrorIs(t, err, record.ErrTypeMismatch)
	assert.Equal(t, 0, tbl.NumRows())

	// a numeric token is a valid TEXT value
	_, err = tbl.Insert(map[string]any{"id": int64(1), "username": int64(42)})
	require.NoError(t, err)
	row, _, err := tbl.LookupByKey("id", int64(1))
	require.NoError(t, err)
	assert.Equal(t, "42", row[1])
}

func TestTableInsert_MissingAndUnknownColumns(t *testing.T) {
	tbl := newUsersTable(t)

	_, err := tbl.Insert(map[string]any{"id": int64(1)})
	require.ErrorIs(t, err, ErrConstraintViolation)

	_, err = tbl.Insert(map[string]any{"id": int64(1), "username": "bob", "age": int64(3)})
	require.ErrorIs(t, err, record.ErrUnknownColumn)

	assert.Equal(t, 0, tbl.NumRows())
}

func TestTableInsert_CoercedKeyCollision(t *testing.T) {
	tbl := newUsersTable(t)

	_, err := tbl.Insert(map[string]any{"id": int64(1), "username": "bob"})
	require.NoError(t, err)

	// "1" coerces to the same INT key as 1
	_, err = tbl.Insert(map[string]any{"id": "1", "username": "alice"})
	require.ErrorIs(t, err, ErrConstraintViolation)
}

func TestTableScan_Predicates(t *testing.T) {
	tbl := newUsersTable(t)
	for i, name := range []string{"bob", "alice", "carol"} {
		_, err := tbl.Insert(map[string]any{"id": int64(i + 1), "username": name})
		require.NoError(t, err)
	}

	collect := func(pred *Predicate) []string {
		var out []string
		err := tbl.Scan(pred, func(_ int, row record.Row) error {
			out = append(out, row[1].(string))
			return nil
		})
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, []string{"bob", "alice", "carol"}, collect(nil))
	assert.Equal(t, []string{"alice"}, collect(&Predicate{Column: "username", Op: OpEq, Value: "alice"}))
	assert.Equal(t, []string{"bob", "carol"}, collect(&Predicate{Column: "username", Op: OpNe, Value: "alice"}))
	assert.Equal(t, []string{"carol"}, collect(&Predicate{Column: "id", Op: OpGt, Value: int64(2)}))
	assert.Equal(t, []string{"bob", "alice"}, collect(&Predicate{Column: "id", Op: OpLe, Value: "2"}))

	err := tbl.Scan(&Predicate{Column: "nope", Op: OpEq, Value: int64(1)}, func(int, record.Row) error { return nil })
	require.ErrorIs(t, err, record.ErrUnknownColumn)

	err = tbl.Scan(&Predicate{Column: "id", Op: OpEq, Value: "x"}, func(int, record.Row) error { return nil })
	require.ErrorIs(t, err, record.ErrTypeMismatch)
}

// A unique TEXT column admits distinct numeric-looking values, and the scan
// path agrees with the index fast path about which rows match.
func TestTextColumn_ScanAndIndexAgree(t *testing.T) {
	tbl, err := NewTable("items", record.Schema{
		Cols: []record.Column{
			{Name: "code", Type: record.ColText},
			{Name: "label", Type: record.ColText},
		},
		Unique: []string{"code"},
	})
	require.NoError(t, err)

	for _, code := range []string{"5", "05", "10"} {
		_, err := tbl.Insert(map[string]any{"code": code, "label": "item " + code})
		require.NoError(t, err, "code=%s", code)
	}

	collect := func(pred *Predicate) []string {
		var out []string
		err := tbl.Scan(pred, func(_ int, row record.Row) error {
			out = append(out, row[0].(string))
			return nil
		})
		require.NoError(t, err)
		return out
	}

	// exactly one row matches "5", the same row the index returns
	assert.Equal(t, []string{"5"}, collect(&Predicate{Column: "code", Op: OpEq, Value: "5"}))
	row, pos, err := tbl.LookupByKey("code", "5")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, "5", row[0])

	// lexicographic ordering: "10" sorts below "9"
	assert.Equal(t, []string{"5", "05", "10"},
		collect(&Predicate{Column: "code", Op: OpLt, Value: "9"}))
	assert.Empty(t, collect(&Predicate{Column: "code", Op: OpGt, Value: "9"}))
}

func TestLookupByKey(t *testing.T) {
	tbl, err := NewTable("todos", record.Schema{
		Cols: []record.Column{
			{Name: "id", Type: record.ColInt},
			{Name: "task", Type: record.ColText},
		},
		PrimaryKey: "id",
	})
	require.NoError(t, err)

	_, err = tbl.Insert(map[string]any{"id": int64(1), "task": "t1"})
	require.NoError(t, err)
	_, err = tbl.Insert(map[string]any{"id": int64(2), "task": "t2"})
	require.NoError(t, err)

	// indexed path, with a text representation of the key
	row, pos, err := tbl.LookupByKey("id", "2")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, "t2", row[1])

	// unindexed column falls back to a scan
	row, pos, err = tbl.LookupByKey("task", "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, int64(1), row[0])

	_, pos, err = tbl.LookupByKey("id", int64(99))
	require.NoError(t, err)
	assert.Equal(t, -1, pos)

	_, _, err = tbl.LookupByKey("nope", int64(1))
	require.ErrorIs(t, err, record.ErrUnknownColumn)
}

func TestUpdateWhere_ValidateAllThenApply(t *testing.T) {
	tbl := newUsersTable(t)
	_, err := tbl.Insert(map[string]any{"id": int64(1), "username": "bob"})
	require.NoError(t, err)
	_, err = tbl.Insert(map[string]any{"id": int64(2), "username": "alice"})
	require.NoError(t, err)

	// plain update on a constrained column
	n, err := tbl.UpdateWhere(
		&Predicate{Column: "id", Op: OpEq, Value: int64(1)},
		map[string]any{"username": "bobby"},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	row, pos, err := tbl.LookupByKey("username", "bobby")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, int64(1), row[0])
	_, pos, err = tbl.LookupByKey("username", "bob")
	require.NoError(t, err)
	assert.Equal(t, -1, pos)

	// collision with another row rejects without mutating
	n, err = tbl.UpdateWhere(
		&Predicate{Column: "id", Op: OpEq, Value: int64(1)},
		map[string]any{"username": "alice"},
	)
	require.ErrorIs(t, err, ErrConstraintViolation)
	assert.Equal(t, 0, n)
	row, _, err = tbl.LookupByKey("id", int64(1))
	require.NoError(t, err)
	assert.Equal(t, "bobby", row[1])

	// setting a unique column to its current value must not self-violate
	n, err = tbl.UpdateWhere(
		&Predicate{Column: "id", Op: OpEq, Value: int64(2)},
		map[string]any{"username": "alice"},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a multi-row update cannot assign one value to a constrained column
	_, err = tbl.UpdateWhere(nil, map[string]any{"username": "same"})
	require.ErrorIs(t, err, ErrConstraintViolation)

	// failed type coercion mutates nothing
	_, err = tbl.UpdateWhere(nil, map[string]any{"id": "x"})
	require.ErrorIs(t, err, record.ErrTypeMismatch)

	// unknown SET column
	_, err = tbl.UpdateWhere(nil, map[string]any{"nope": int64(1)})
	require.ErrorIs(t, err, record.ErrUnknownColumn)
}

func TestUpdateWhere_NoMatches(t *testing.T) {
	tbl := newUsersTable(t)
	_, err := tbl.Insert(map[string]any{"id": int64(1), "username": "bob"})
	require.NoError(t, err)

	n, err := tbl.UpdateWhere(
		&Predicate{Column: "id", Op: OpEq, Value: int64(99)},
		map[string]any{"username": "ghost"},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeleteWhere_RebuildsIndexes(t *testing.T) {
	tbl := newUsersTable(t)
	for i, name := range []string{"bob", "alice", "carol"} {
		_, err := tbl.Insert(map[string]any{"id": int64(i + 1), "username": name})
		require.NoError(t, err)
	}

	n, err := tbl.DeleteWhere(&Predicate{Column: "username", Op: OpEq, Value: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, tbl.NumRows())

	// positions shifted; the index must point at the new positions
	row, pos, err := tbl.LookupByKey("id", int64(3))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, "carol", row[1])

	_, pos, err = tbl.LookupByKey("id", int64(1))
	require.NoError(t, err)
	assert.Equal(t, -1, pos)

	// delete everything
	n, err = tbl.DeleteWhere(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, 0, tbl.indexes["id"].Len())
}

// Index/row agreement: after a mixed mutation sequence, every indexed lookup
// lands on a row that actually holds the looked-up value, and absent values
// are absent from the index.
func TestIndexRowAgreement_AfterMixedMutations(t *testing.T) {
	tbl := newUsersTable(t)

	for i := 1; i <= 5; i++ {
		_, err := tbl.Insert(map[string]any{"id": int64(i), "username": string(rune('a' + i))})
		require.NoError(t, err)
	}
	_, err := tbl.DeleteWhere(&Predicate{Column: "id", Op: OpLt, Value: int64(3)})
	require.NoError(t, err)
	_, err = tbl.UpdateWhere(&Predicate{Column: "id", Op: OpEq, Value: int64(4)}, map[string]any{"username": "zed"})
	require.NoError(t, err)
	_, err = tbl.Insert(map[string]any{"id": int64(9), "username": "nine"})
	require.NoError(t, err)

	seen := map[int64]string{}
	require.NoError(t, tbl.Scan(nil, func(pos int, row record.Row) error {
		id := row[0].(int64)
		seen[id] = row[1].(string)

		got, gotPos, err := tbl.LookupByKey("id", id)
		require.NoError(t, err)
		assert.Equal(t, pos, gotPos)
		assert.Equal(t, row[1], got[1])

		got, gotPos, err = tbl.LookupByKey("username", row[1])
		require.NoError(t, err)
		assert.Equal(t, pos, gotPos)
		assert.Equal(t, id, got[0])
		return nil
	}))
	assert.Len(t, seen, 4)
	assert.Equal(t, len(seen), tbl.indexes["id"].Len())
	assert.Equal(t, len(seen), tbl.indexes["username"].Len())

	for _, absent := range []int64{1, 2, 7} {
		_, pos, err := tbl.LookupByKey("id", absent)
		require.NoError(t, err)
		assert.Equal(t, -1, pos)
	}
}
