package compound

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5compound/internal/container"
	"github.com/robert-malhotra/h5compound/internal/message"
)

// newFixture creates a file holding three int32 datasets /tsA, /tsB and
// /tsC and a group /acq, and returns its path.
func newFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.h5")
	f, err := container.Create(path)
	require.NoError(t, err)
	for _, name := range []string{"/tsA", "/tsB", "/tsC"} {
		_, err := f.CreateDataset(name, i32(), []uint64{4}, make([]byte, 16))
		require.NoError(t, err)
	}
	_, err = f.CreateGroup("/acq")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return path
}

// addDataset adds a dataset of dt holding data to an existing file.
func addDataset(t *testing.T, path, name string, dt *message.Datatype, rows uint64, data []byte, opts ...container.DatasetOption) {
	t.Helper()
	f, err := container.OpenReadWrite(path)
	require.NoError(t, err)
	_, err = f.CreateDataset(name, dt, []uint64{rows}, data, opts...)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

func TestWriteReadScenario(t *testing.T) {
	path := newFixture(t)
	e := New()

	require.NoError(t, e.WriteArrays(path, "/comp", []int32{0, 100}, []int32{100, 50}, []string{"/tsA", "/tsB"}))

	b, err := e.ReadArrays(path, "/comp")
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 100}, b.Offsets)
	assert.Equal(t, []int32{100, 50}, b.Sizes)
	assert.Equal(t, []string{"/tsA", "/tsB"}, b.Paths)

	require.NoError(t, e.WriteArrays(path, "/comp", []int32{150}, []int32{25}, []string{"/tsC"}))

	entries, err := e.ReadAll(path, "/comp")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Offset: 150, Size: 25, Path: "/tsC"}, entries[2])
	assert.Equal(t, Entry{Offset: 0, Size: 100, Path: "/tsA"}, entries[0])
}

func TestCreatedDatasetLayout(t *testing.T) {
	path := newFixture(t)
	require.NoError(t, New().WriteBatch(path, "/comp", []Entry{{0, 1, "/tsA"}}))

	f, err := container.Open(path)
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.OpenDataset("/comp")
	require.NoError(t, err)
	assert.True(t, ds.Chunked())
	assert.Equal(t, []uint64{1}, ds.Shape())
	assert.Equal(t, []uint64{message.Unlimited}, ds.MaxShape())
	assert.Equal(t, []uint64{1}, ds.Layout().ChunkDims)
	assert.EqualValues(t, RecordSize, ds.Layout().ElementSize)
	assert.True(t, RecordDatatype().Equal(ds.Datatype()))
}

func TestRoundTripManyRecords(t *testing.T) {
	path := newFixture(t)
	refs := []string{"/tsA", "/tsB", "/tsC", "/acq"}
	var want []Entry
	for i := 0; i < 150; i++ {
		want = append(want, Entry{Offset: int32(i * 10), Size: int32(-i), Path: refs[i%len(refs)]})
	}
	e := New()
	require.NoError(t, e.WriteBatch(path, "/acq/index", want))

	got, err := e.ReadAll(path, "/acq/index")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAppendPreservesPrefix(t *testing.T) {
	path := newFixture(t)
	e := New()
	b1 := []Entry{{0, 10, "/tsA"}, {10, 20, "/tsB"}, {30, 5, "/tsA"}}
	b2 := []Entry{{35, 1, "/tsC"}, {36, 2, "/tsB"}}
	b3 := make([]Entry, 70)
	for i := range b3 {
		b3[i] = Entry{Offset: int32(100 + i), Size: 1, Path: "/tsC"}
	}

	require.NoError(t, e.WriteBatch(path, "/comp", b1))
	require.NoError(t, e.WriteBatch(path, "/comp", b2))
	got, err := e.ReadAll(path, "/comp")
	require.NoError(t, err)
	assert.Equal(t, append(append([]Entry{}, b1...), b2...), got)

	require.NoError(t, e.WriteBatch(path, "/comp", b3))
	got, err = e.ReadAll(path, "/comp")
	require.NoError(t, err)
	require.Len(t, got, len(b1)+len(b2)+len(b3))
	assert.Equal(t, b1, got[:3])
	assert.Equal(t, b2, got[3:5])
	assert.Equal(t, b3, got[5:])
}

func TestSoftLinkReferencesResolveToTarget(t *testing.T) {
	path := newFixture(t)
	f, err := container.OpenReadWrite(path)
	require.NoError(t, err)
	require.NoError(t, f.CreateSoftLink("/acq/alias", "/tsB"))
	require.NoError(t, f.Close())

	e := New()
	require.NoError(t, e.WriteBatch(path, "/comp", []Entry{{1, 2, "/acq/alias"}}))
	got, err := e.ReadAll(path, "/comp")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{1, 2, "/tsB"}}, got)
}

func TestEmptyBatch(t *testing.T) {
	path := newFixture(t)
	e := New()
	require.NoError(t, e.WriteArrays(path, "/comp", nil, nil, nil))

	b, err := e.ReadArrays(path, "/comp")
	require.NoError(t, err)
	assert.Empty(t, b.Offsets)
	assert.Empty(t, b.Sizes)
	assert.Empty(t, b.Paths)
	assert.Equal(t, 0, b.Len())

	f, err := container.Open(path)
	require.NoError(t, err)
	ds, err := f.OpenDataset("/comp")
	require.NoError(t, err)
	assert.True(t, ds.Chunked())
	assert.Equal(t, []uint64{0}, ds.Shape())
	require.NoError(t, f.Close())

	// An empty append leaves the file as it was.
	before := readFile(t, path)
	require.NoError(t, e.WriteBatch(path, "/comp", nil))
	assert.Equal(t, before, readFile(t, path))

	require.NoError(t, e.WriteBatch(path, "/comp", []Entry{{7, 8, "/tsC"}}))
	got, err := e.ReadAll(path, "/comp")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{7, 8, "/tsC"}}, got)
}

func TestShapeRejectedBeforeIO(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.h5")
	err := New().WriteArrays(missing, "/comp", []int32{1, 2, 3}, []int32{1, 2, 3}, []string{"/a", "/b"})
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.NotErrorIs(t, err, ErrIO)
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSchemaRejection(t *testing.T) {
	tests := []struct {
		name string
		dt   *message.Datatype
	}{
		{"fourth member", compoundOf(20,
			message.CompoundMember{Name: MemberStart, ByteOffset: 0, Type: i32()},
			message.CompoundMember{Name: MemberCount, ByteOffset: 4, Type: i32()},
			message.CompoundMember{Name: MemberRef, ByteOffset: 8, Type: ref()},
			message.CompoundMember{Name: "extra", ByteOffset: 16, Type: i32()},
		)},
		{"swapped order", compoundOf(16,
			message.CompoundMember{Name: MemberCount, ByteOffset: 0, Type: i32()},
			message.CompoundMember{Name: MemberStart, ByteOffset: 4, Type: i32()},
			message.CompoundMember{Name: MemberRef, ByteOffset: 8, Type: ref()},
		)},
		{"64-bit count", compoundOf(20,
			message.CompoundMember{Name: MemberStart, ByteOffset: 0, Type: i32()},
			message.CompoundMember{Name: MemberCount, ByteOffset: 4, Type: message.NewFixedPoint(8, true, message.OrderLE)},
			message.CompoundMember{Name: MemberRef, ByteOffset: 12, Type: ref()},
		)},
		{"not compound", i32()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := newFixture(t)
			addDataset(t, path, "/comp", tt.dt, 0, nil, container.WithChunks(1), container.WithMaxDims(message.Unlimited))
			e := New()

			_, err := e.ReadAll(path, "/comp")
			require.ErrorIs(t, err, ErrSchema)
			assert.NotErrorIs(t, err, ErrIO)

			before := readFile(t, path)
			err = e.WriteBatch(path, "/comp", []Entry{{0, 1, "/tsA"}})
			require.ErrorIs(t, err, ErrSchema)
			assert.Equal(t, before, readFile(t, path))
		})
	}
}

func TestNonChunkedAppendRejected(t *testing.T) {
	path := newFixture(t)

	f, err := container.Open(path)
	require.NoError(t, err)
	ts, err := f.Lookup("/tsA")
	require.NoError(t, err)
	row, err := EncodeRecords(RecordDatatype(), []Record{{Offset: 3, Size: 4, Ref: Reference(ts.Address())}})
	require.NoError(t, err)
	require.NoError(t, f.Close())
	addDataset(t, path, "/comp", RecordDatatype(), 1, row)

	e := New()
	before := readFile(t, path)
	err = e.WriteBatch(path, "/comp", []Entry{{5, 6, "/tsB"}})
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, ErrAppendNotChunked)
	assert.Equal(t, "append /comp: Existing dataset is not chunked. Can not append new data.", err.Error())
	assert.Equal(t, before, readFile(t, path))

	// Contiguous record datasets stay readable.
	got, err := e.ReadAll(path, "/comp")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{3, 4, "/tsA"}}, got)
}

func TestUnresolvablePathLeavesFileUnchanged(t *testing.T) {
	path := newFixture(t)
	e := New()
	require.NoError(t, e.WriteBatch(path, "/comp", []Entry{{0, 1, "/tsA"}}))

	before := readFile(t, path)
	err := e.WriteBatch(path, "/comp", []Entry{{1, 1, "/tsB"}, {2, 1, "/nope"}})
	require.ErrorIs(t, err, ErrResolution)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "/nope", re.Path)
	assert.ErrorIs(t, err, container.ErrNotFound)
	assert.Equal(t, before, readFile(t, path))

	// Creating fails the same way.
	err = e.WriteBatch(path, "/other", []Entry{{2, 1, "/nope"}})
	require.ErrorIs(t, err, ErrResolution)
	assert.Equal(t, before, readFile(t, path))
}

func TestReadErrors(t *testing.T) {
	path := newFixture(t)
	e := New()

	_, err := e.ReadAll(path, "/comp")
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, ErrNotPresent)

	_, err = e.ReadAll(path, "/acq")
	require.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, container.ErrNotDataset)

	_, err = e.ReadAll(filepath.Join(t.TempDir(), "missing.h5"), "/comp")
	require.ErrorIs(t, err, ErrIO)

	err = e.WriteBatch(filepath.Join(t.TempDir(), "missing.h5"), "/comp", nil)
	require.ErrorIs(t, err, ErrIO)
}

func TestWriteIntoMissingGroupFails(t *testing.T) {
	path := newFixture(t)
	err := New().WriteBatch(path, "/missing/comp", []Entry{{0, 1, "/tsA"}})
	require.ErrorIs(t, err, ErrIO)
}

func TestDanglingReference(t *testing.T) {
	path := newFixture(t)
	row, err := EncodeRecords(RecordDatatype(), []Record{{Offset: 1, Size: 1, Ref: 12345}})
	require.NoError(t, err)
	addDataset(t, path, "/comp", RecordDatatype(), 1, row, container.WithChunks(1), container.WithMaxDims(message.Unlimited))

	_, err = New().ReadAll(path, "/comp")
	require.ErrorIs(t, err, ErrResolution)

	row, err = EncodeRecords(RecordDatatype(), []Record{{Offset: 1, Size: 1}})
	require.NoError(t, err)
	addDataset(t, path, "/null", RecordDatatype(), 1, row)
	_, err = New().ReadAll(path, "/null")
	require.ErrorIs(t, err, ErrResolution)
	assert.ErrorIs(t, err, errNullReference)
}

func TestQuietCall(t *testing.T) {
	path := newFixture(t)
	var buf bytes.Buffer
	e := New(WithLogger(zerolog.New(&buf)))

	require.NoError(t, e.WriteBatch(path, "/comp", []Entry{{0, 1, "/tsA"}}, Quiet()))
	assert.Empty(t, buf.String())

	require.NoError(t, e.WriteBatch(path, "/comp", []Entry{{1, 1, "/tsB"}}))
	assert.Contains(t, buf.String(), `"message":"appended records"`)
	assert.Contains(t, buf.String(), `"dataset":"/comp"`)

	// Quiet applies to one call only.
	buf.Reset()
	_, err := e.ReadAll(path, "/comp", Quiet())
	require.NoError(t, err)
	assert.Empty(t, buf.String())
	_, err = e.ReadAll(path, "/comp")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"records":2`)
}
