package compound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToEntries(t *testing.T) {
	entries, err := ToEntries([]int32{0, 100}, []int32{100, 50}, []string{"/tsA", "/tsB"})
	require.NoError(t, err)
	assert.Equal(t, []Entry{{0, 100, "/tsA"}, {100, 50, "/tsB"}}, entries)

	b := FromEntries(entries)
	assert.Equal(t, 2, b.Len())
	again, err := b.Entries()
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestToEntriesShapeMismatch(t *testing.T) {
	_, err := ToEntries([]int32{1, 2, 3}, []int32{1, 2, 3}, []string{"/a", "/b"})
	require.ErrorIs(t, err, ErrShapeMismatch)
	var se *ShapeMismatchError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ShapeMismatchError{Offsets: 3, Sizes: 3, Paths: 2}, *se)
	assert.Contains(t, err.Error(), "Waves must have the same size")
	assert.Equal(t, -1, Batch{Offsets: []int32{1}}.Len())
}

func TestFromEntriesEmpty(t *testing.T) {
	b := FromEntries(nil)
	assert.NotNil(t, b.Offsets)
	assert.NotNil(t, b.Sizes)
	assert.NotNil(t, b.Paths)
	assert.Equal(t, 0, b.Len())
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrShapeMismatch, Kind(&ShapeMismatchError{}))
	assert.Equal(t, ErrSchema, Kind(&SchemaError{Msg: msgNotCompound}))
	assert.Equal(t, ErrResolution, Kind(&ResolutionError{Path: "/x", Err: errNullReference}))
	assert.Equal(t, ErrIO, Kind(&IOError{Op: "read /x", Err: ErrNotPresent}))
	assert.Nil(t, Kind(errNullReference))
	assert.Equal(t, "read /x: HDF5 data not present at given path.", (&IOError{Op: "read /x", Err: ErrNotPresent}).Error())
}
