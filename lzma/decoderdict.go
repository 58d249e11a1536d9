package lzma

import (
	"errors"
	"fmt"
)

// Minimum and maximum values for the dictionary size that is called
// dictionary size by the LZMA specification.
const (
	minDictSize = 1 << 12
	maxDictSize = 1<<32 - 1
)

// decoderDict provides the dictionary for the decoder. Decoded data is
// written into the dictionary and read from it by the consumer of the
// decoder. The head field counts the decoded bytes since the last
// dictionary reset and selects the literal and position states.
type decoderDict struct {
	buf      buffer
	head     int64
	capacity int
}

// newDecoderDict creates a new decoder dictionary. The size of the allocated
// buffer will be the maximum of dictCap and bufSize. So bufSize indicates a
// minimum size for the buffer.
func newDecoderDict(dictCap, bufSize int) (d *decoderDict, err error) {
	// lower limit supports easy test cases
	if !(1 <= dictCap && int64(dictCap) <= maxDictSize) {
		return nil, errors.New("lzma: dictCap out of range")
	}
	if dictCap > bufSize {
		bufSize = dictCap
	}
	d = &decoderDict{capacity: dictCap}
	if err = initBuffer(&d.buf, bufSize); err != nil {
		return nil, err
	}
	return d, nil
}

// reset clears the dictionary. The read buffer is not changed, so the
// buffered data can still be read.
func (d *decoderDict) reset() {
	d.head = 0
}

// pos returns the position of the dictionary head.
func (d *decoderDict) pos() int64 { return d.head }

// dictLen returns the actual length of data referenceable in the dictionary.
func (d *decoderDict) dictLen() int {
	if d.head >= int64(d.capacity) {
		return d.capacity
	}
	return int(d.head)
}

// byteAt returns a byte stored in the dictionary. If the distance is
// non-positive or exceeds the current length of the dictionary the zero
// byte is returned.
func (d *decoderDict) byteAt(dist int) byte {
	if !(0 < dist && dist <= d.dictLen()) {
		return 0
	}
	i := d.buf.front - dist
	if i < 0 {
		i += len(d.buf.data)
	}
	return d.buf.data[i]
}

// writeByte writes a single byte into the dictionary. It is used to
// write literals into the dictionary.
func (d *decoderDict) writeByte(c byte) error {
	if err := d.buf.WriteByte(c); err != nil {
		return err
	}
	d.head++
	return nil
}

// writeMatch writes the match at the top of the dictionary. The given
// distance must point in the current dictionary and the length must not
// exceed the maximum length 273 supported in LZMA.
func (d *decoderDict) writeMatch(dist int, length int) error {
	if !(0 < dist && dist <= d.dictLen()) {
		return ErrDistance
	}
	if !(0 < length && length <= maxMatchLen) {
		return errors.New("lzma: match length out of range")
	}
	if length > d.buf.Available() {
		return errNoSpace
	}
	d.head += int64(length)

	i := d.buf.front - dist
	if i < 0 {
		i += len(d.buf.data)
	}
	for length > 0 {
		var p []byte
		if i >= d.buf.front {
			p = d.buf.data[i:]
			i = 0
		} else {
			p = d.buf.data[i:d.buf.front]
			i = d.buf.front
		}
		if len(p) > length {
			p = p[:length]
		}
		if _, err := d.buf.Write(p); err != nil {
			panic(fmt.Errorf("d.buf.Write returned error %s", err))
		}
		length -= len(p)
	}
	return nil
}

// write writes the given bytes into the dictionary and advances the head. It
// is used to feed uncompressed chunk data into the dictionary.
func (d *decoderDict) write(p []byte) (n int, err error) {
	n, err = d.buf.Write(p)
	d.head += int64(n)
	return n, err
}

// available returns the number of bytes available for writing into the
// decoder dictionary.
func (d *decoderDict) available() int { return d.buf.Available() }

// Read reads data from the buffer contained in the decoder dictionary.
func (d *decoderDict) Read(p []byte) (n int, err error) { return d.buf.Read(p) }

// buffered returns the number of bytes currently buffered in the
// decoder dictionary.
func (d *decoderDict) buffered() int { return d.buf.Buffered() }
