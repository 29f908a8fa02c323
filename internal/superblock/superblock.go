package superblock

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/h5compound/internal/binary"
)

// Signature is the 8-byte format signature: 0x89 H D F \r \n 0x1a \n.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// Possible superblock locations, searched in order.
var superblockOffsets = []int64{0, 512, 1024, 2048}

// DefaultIndexedStorageK is the chunk B-tree half-rank used when the
// superblock does not record one.
const DefaultIndexedStorageK = 32

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
	ErrChecksum           = errors.New("superblock checksum mismatch")
)

// Superblock holds the fields the container layer needs.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8
	Flags      uint8

	BaseAddress      uint64
	ExtensionAddress uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// Version 0/1 only.
	GroupLeafNodeK     uint16
	GroupInternalNodeK uint16
	IndexedStorageK    uint16
	RootBTreeAddress   uint64
	RootHeapAddress    uint64

	// FileOffset is where the signature was found.
	FileOffset int64

	eofPos int64 // absolute position of the EOF address field
}

// Read locates and parses the superblock.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, 9)
	for _, offset := range superblockOffsets {
		n, err := r.ReadAt(sig, offset)
		if n < len(sig) {
			if err == nil || errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:8], Signature) {
			continue
		}

		var sb *Superblock
		switch version := sig[8]; version {
		case 0, 1:
			sb, err = readV0V1(r, offset, version)
		case 2, 3:
			sb, err = readV2V3(r, offset)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = offset
		return sb, nil
	}
	return nil, ErrNotHDF5
}

/*
Version 0/1 layout after the signature (O = size of offsets):

	8   version, free-space version, root STE version, reserved
	12  shared header version, size of offsets, size of lengths, reserved
	16  group leaf K (2), group internal K (2)
	20  file consistency flags (4)
	24  v1 only: indexed storage K (2), reserved (2)
	    base, free-space, EOF, driver info addresses (4*O)
	    root symbol table entry: name offset (O), header address (O),
	    cache type (4), reserved (4), scratch pad (16)
*/
func readV0V1(r io.ReaderAt, offset int64, version uint8) (*Superblock, error) {
	br := binpkg.NewReader(r, binpkg.DefaultConfig()).At(offset + 8)
	head, err := br.ReadBytes(16)
	if err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:            version,
		OffsetSize:         head[5],
		LengthSize:         head[6],
		GroupLeafNodeK:     uint16(head[8]) | uint16(head[9])<<8,
		GroupInternalNodeK: uint16(head[10]) | uint16(head[11])<<8,
		IndexedStorageK:    DefaultIndexedStorageK,
	}
	if err := sb.ReaderConfig().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuperblock, err)
	}
	br = br.WithSizes(int(sb.OffsetSize), int(sb.LengthSize))

	if version == 1 {
		k, err := br.ReadUint16()
		if err != nil {
			return nil, err
		}
		if k > 0 {
			sb.IndexedStorageK = k
		}
		br.Skip(2)
	}

	if sb.BaseAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize)) // free-space info
	sb.eofPos = br.Pos()
	if sb.EOFAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize)) // driver info

	br.Skip(int64(sb.OffsetSize)) // link name offset
	if sb.RootGroupAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	cacheType, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	br.Skip(4)
	sb.RootBTreeAddress = binpkg.Undefined(int(sb.OffsetSize))
	sb.RootHeapAddress = sb.RootBTreeAddress
	if cacheType == 1 {
		if sb.RootBTreeAddress, err = br.ReadOffset(); err != nil {
			return nil, err
		}
		if sb.RootHeapAddress, err = br.ReadOffset(); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

/*
Version 2/3 layout (O = size of offsets):

	0     signature (8)
	8     version, size of offsets, size of lengths, consistency flags
	12    base, extension, EOF, root object header addresses (4*O)
	12+4O lookup3 checksum (4)
*/
func readV2V3(r io.ReaderAt, offset int64) (*Superblock, error) {
	br := binpkg.NewReader(r, binpkg.DefaultConfig()).At(offset + 8)
	head, err := br.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:         head[0],
		OffsetSize:      head[1],
		LengthSize:      head[2],
		Flags:           head[3],
		IndexedStorageK: DefaultIndexedStorageK,
	}
	if err := sb.ReaderConfig().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuperblock, err)
	}
	br = br.WithSizes(int(sb.OffsetSize), int(sb.LengthSize))

	if sb.BaseAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	if sb.ExtensionAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	sb.eofPos = br.Pos()
	if sb.EOFAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	if sb.RootGroupAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	stored, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}

	raw, err := binpkg.NewReader(r, binpkg.DefaultConfig()).At(offset).ReadBytes(sb.Size() - 4)
	if err != nil {
		return nil, err
	}
	if !binpkg.VerifyLookup3(raw, stored) {
		return nil, ErrChecksum
	}
	return sb, nil
}

// ReaderConfig returns the field widths of this file.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	cfg := binpkg.DefaultConfig()
	cfg.OffsetSize = int(sb.OffsetSize)
	cfg.LengthSize = int(sb.LengthSize)
	return cfg
}

// HasRootSymbolTable reports whether the root group is indexed by the
// scratch-pad B-tree of a version 0/1 superblock.
func (sb *Superblock) HasRootSymbolTable() bool {
	return sb.Version < 2 && sb.RootBTreeAddress != binpkg.Undefined(int(sb.OffsetSize))
}
