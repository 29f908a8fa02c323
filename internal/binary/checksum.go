package binary

import "encoding/binary"

// Lookup3Checksum computes the Jenkins lookup3 hashlittle value (initval 0)
// that protects superblock v2/v3, object header v2 and OCHK blocks.
func Lookup3Checksum(data []byte) uint32 {
	seed := uint32(0xdeadbeef) + uint32(len(data))
	a, b, c := seed, seed, seed
	k := data

	// The final 1-12 bytes always go through the tail, never the mix.
	for len(k) > 12 {
		a += binary.LittleEndian.Uint32(k[0:])
		b += binary.LittleEndian.Uint32(k[4:])
		c += binary.LittleEndian.Uint32(k[8:])
		a, b, c = lookup3Mix(a, b, c)
		k = k[12:]
	}
	if len(k) == 0 {
		return c
	}

	var tail [12]byte
	copy(tail[:], k)
	c += binary.LittleEndian.Uint32(tail[8:])
	b += binary.LittleEndian.Uint32(tail[4:])
	a += binary.LittleEndian.Uint32(tail[0:])

	_, _, c = lookup3Final(a, b, c)
	return c
}

// VerifyLookup3 reports whether data hashes to expected.
func VerifyLookup3(data []byte, expected uint32) bool {
	return Lookup3Checksum(data) == expected
}

func lookup3Mix(a, b, c uint32) (uint32, uint32, uint32) {
	a -= c
	a ^= rotl32(c, 4)
	c += b
	b -= a
	b ^= rotl32(a, 6)
	a += c
	c -= b
	c ^= rotl32(b, 8)
	b += a
	a -= c
	a ^= rotl32(c, 16)
	c += b
	b -= a
	b ^= rotl32(a, 19)
	a += c
	c -= b
	c ^= rotl32(b, 4)
	b += a
	return a, b, c
}

func lookup3Final(a, b, c uint32) (uint32, uint32, uint32) {
	c ^= b
	c -= rotl32(b, 14)
	a ^= c
	a -= rotl32(c, 11)
	b ^= a
	b -= rotl32(a, 25)
	c ^= b
	c -= rotl32(b, 16)
	a ^= c
	a -= rotl32(c, 4)
	b ^= a
	b -= rotl32(a, 14)
	c ^= b
	c -= rotl32(b, 24)
	return a, b, c
}

func rotl32(x uint32, k uint) uint32 {
	return x<<k | x>>(32-k)
}
