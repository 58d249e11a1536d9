package xz

import (
	"errors"
	"io"
)

// Errors returned by readUvarint.
var (
	errUvarintEOF      = errors.New("xz: unexpected EOF in multibyte integer")
	errUvarintNullByte = errors.New("xz: unexpected null byte in multibyte integer")
	errUvarintTooLarge = errors.New("xz: multibyte integer exceeds 63 bits")
)

// maxUvarintLen is the maximum number of bytes of an encoded multibyte
// integer. Nine bytes cover the full 63-bit range the format permits.
const maxUvarintLen = 9

// readUvarint decodes a variable-length encoded unsigned integer as it is
// used in block headers and the index: little-endian base 128 with the
// most-significant bit marking continuation.
func readUvarint(r io.ByteReader) (u uint64, n int, err error) {
	for i := 0; i < maxUvarintLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = errUvarintEOF
			}
			return 0, n, err
		}
		n++
		if b == 0 && i > 0 {
			return 0, n, errUvarintNullByte
		}
		u |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return u, n, nil
		}
	}
	return 0, n, errUvarintTooLarge
}
