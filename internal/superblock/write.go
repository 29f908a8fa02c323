package superblock

import (
	"io"

	binpkg "github.com/robert-malhotra/h5compound/internal/binary"
)

// New returns a version 2 superblock with 8-byte offsets and lengths.
func New() *Superblock {
	return &Superblock{
		Version:          2,
		OffsetSize:       8,
		LengthSize:       8,
		ExtensionAddress: binpkg.Undefined(8),
		IndexedStorageK:  DefaultIndexedStorageK,
	}
}

// Size returns the encoded size of a version 2/3 superblock.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// Encode serializes a version 2/3 superblock including its checksum.
func (sb *Superblock) Encode() ([]byte, error) {
	cfg := sb.ReaderConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	buf := binpkg.NewBuffer(sb.Size())
	w := binpkg.NewWriter(buf, cfg)
	if err := w.WriteBytes(Signature); err != nil {
		return nil, err
	}
	if err := w.WriteBytes([]byte{sb.Version, sb.OffsetSize, sb.LengthSize, sb.Flags}); err != nil {
		return nil, err
	}
	for _, addr := range []uint64{sb.BaseAddress, sb.ExtensionAddress, sb.EOFAddress, sb.RootGroupAddress} {
		if err := w.WriteOffset(addr); err != nil {
			return nil, err
		}
	}
	if err := w.WriteUint32(binpkg.Lookup3Checksum(buf.Bytes())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UpdateEOF records a new end-of-file address and writes it back in place.
// Version 2/3 blocks are rewritten whole so the checksum stays valid.
func (sb *Superblock) UpdateEOF(w io.WriterAt, eof uint64) error {
	sb.EOFAddress = eof
	if sb.Version >= 2 {
		raw, err := sb.Encode()
		if err != nil {
			return err
		}
		_, err = w.WriteAt(raw, sb.FileOffset)
		return err
	}
	return binpkg.NewWriter(w, sb.ReaderConfig()).At(sb.eofPos).WriteOffset(eof)
}
