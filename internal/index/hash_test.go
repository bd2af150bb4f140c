package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_InsertLookup(t *testing.T) {
	h := NewHash()
	require.NoError(t, h.Insert("1", 0))
	require.NoError(t, h.Insert("2", 1))

	pos, ok := h.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	_, ok = h.Lookup("3")
	assert.False(t, ok)
	assert.Equal(t, 2, h.Len())
}

func TestHash_RejectDuplicate(t *testing.T) {
	h := NewHash()
	require.NoError(t, h.Insert("bob", 0))

	err := h.Insert("bob", 5)
	require.ErrorIs(t, err, ErrDuplicateKey)

	// original entry untouched
	pos, ok := h.Lookup("bob")
	require.True(t, ok)
	assert.Equal(t, 0, pos)
}

func TestHash_Remove(t *testing.T) {
	h := NewHash()
	require.NoError(t, h.Insert("bob", 0))
	h.Remove("bob")

	_, ok := h.Lookup("bob")
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())

	// removing an absent key is a no-op
	h.Remove("alice")
}

func TestHash_Update(t *testing.T) {
	h := NewHash()
	require.NoError(t, h.Insert("bob", 0))
	require.NoError(t, h.Insert("alice", 1))

	require.NoError(t, h.Update("bob", "bobby", 0))
	_, ok := h.Lookup("bob")
	assert.False(t, ok)
	pos, ok := h.Lookup("bobby")
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	// moving onto an existing key owned by another row fails
	err := h.Update("bobby", "alice", 0)
	require.ErrorIs(t, err, ErrDuplicateKey)

	// same-key update keeps the entry
	require.NoError(t, h.Update("alice", "alice", 1))
	pos, ok = h.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, 1, pos)
}
