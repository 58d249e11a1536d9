package xz

import (
	"crypto/sha256"
	"hash"
	"hash/crc32"
	"hash/crc64"
)

// checksumCRC32 computes the CRC32 checksum as required for the xz format.
func checksumCRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// le32 converts the data slice into an unsigned 32-bit integer. The integer
// must be stored in little-endian mode in the data slice. The function
// panics if data has not the length 4.
func le32(data []byte) uint32 {
	if len(data) != 4 {
		panic("data has not the length 4")
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 |
		uint32(data[3])<<24
}

// putLE32 stores x in little-endian order in the first four bytes of p.
func putLE32(p []byte, x uint32) {
	p[0] = byte(x)
	p[1] = byte(x >> 8)
	p[2] = byte(x >> 16)
	p[3] = byte(x >> 24)
}

// putLE64 stores x in little-endian order in the first eight bytes of p.
func putLE64(p []byte, x uint64) {
	putLE32(p, uint32(x))
	putLE32(p[4:], uint32(x>>32))
}

// crc64Table is used to create a CRC64 hash.
var crc64Table = crc64.MakeTable(crc64.ECMA)

// crc32Hash implements the hash.Hash interface with Sum appending the
// current hash value in little-endian order as the xz format requires.
type crc32Hash struct {
	hash.Hash32
	p []byte
}

func (h *crc32Hash) Sum(b []byte) []byte {
	putLE32(h.p, h.Hash32.Sum32())
	b = append(b, h.p...)
	return b
}

func newCRC32() hash.Hash {
	return &crc32Hash{Hash32: crc32.NewIEEE(), p: make([]byte, 4)}
}

// crc64Hash implements the hash.Hash interface with Sum appending the
// current hash value in little-endian order.
type crc64Hash struct {
	hash.Hash64
	p []byte
}

func (h *crc64Hash) Sum(b []byte) []byte {
	putLE64(h.p, h.Hash64.Sum64())
	b = append(b, h.p...)
	return b
}

func newCRC64() hash.Hash {
	return &crc64Hash{Hash64: crc64.New(crc64Table), p: make([]byte, 8)}
}

// newHashFunc returns the constructor for the hash matching the check type
// of the stream flags.
func newHashFunc(sf streamFlags) (newHash func() hash.Hash, err error) {
	switch sf.check() {
	case chkNone:
		newHash = newNoneHash
	case chkCRC32:
		newHash = newCRC32
	case chkCRC64:
		newHash = newCRC64
	case chkSHA256:
		newHash = sha256.New
	default:
		err = ErrUnsupportedCheck
	}
	return
}
