package compound

// Entry is a record with its reference given as an object path.
type Entry struct {
	Offset int32  `json:"offset" yaml:"offset" cbor:"offset"`
	Size   int32  `json:"size" yaml:"size" cbor:"size"`
	Path   string `json:"path" yaml:"path" cbor:"path"`
}

// Batch is a record set as three parallel arrays.
type Batch struct {
	Offsets []int32
	Sizes   []int32
	Paths   []string
}

// Len returns the number of records, or -1 if the arrays disagree.
func (b Batch) Len() int {
	if len(b.Offsets) != len(b.Sizes) || len(b.Offsets) != len(b.Paths) {
		return -1
	}
	return len(b.Offsets)
}

// Entries converts the batch to entries.
func (b Batch) Entries() ([]Entry, error) {
	return ToEntries(b.Offsets, b.Sizes, b.Paths)
}

// ToEntries zips three equal-length arrays into entries.
func ToEntries(offsets, sizes []int32, paths []string) ([]Entry, error) {
	if len(offsets) != len(sizes) || len(offsets) != len(paths) {
		return nil, &ShapeMismatchError{Offsets: len(offsets), Sizes: len(sizes), Paths: len(paths)}
	}
	entries := make([]Entry, len(offsets))
	for i := range entries {
		entries[i] = Entry{Offset: offsets[i], Size: sizes[i], Path: paths[i]}
	}
	return entries, nil
}

// FromEntries splits entries into parallel arrays. The arrays are non-nil
// even when entries is empty.
func FromEntries(entries []Entry) Batch {
	b := Batch{
		Offsets: make([]int32, len(entries)),
		Sizes:   make([]int32, len(entries)),
		Paths:   make([]string, len(entries)),
	}
	for i, e := range entries {
		b.Offsets[i] = e.Offset
		b.Sizes[i] = e.Size
		b.Paths[i] = e.Path
	}
	return b
}
