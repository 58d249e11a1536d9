package lzma

import (
	"bufio"
	"errors"
	"io"
)

// headerLen defines the length of the classic LZMA header.
const headerLen = 13

// eosSize is used for the uncompressed size if it is unknown.
const eosSize uint64 = 1<<64 - 1

// params defines the parameters of a classic LZMA stream.
type params struct {
	p                Properties
	dictSize         uint32
	uncompressedSize uint64
}

// Verify checks the parameters for errors.
func (h params) Verify() error {
	if uint64(h.dictSize) > uint64(maxInt) {
		return errors.New("lzma: dictSize exceeds maximum integer")
	}
	return h.p.Verify()
}

const maxInt = int(^uint(0) >> 1)

// parse parses the header from the slice x. x must have exactly header
// length.
func (h *params) parse(x []byte) error {
	if len(x) != headerLen {
		return errors.New("lzma: LZMA header has incorrect length")
	}
	var err error
	if err = h.p.fromByte(x[0]); err != nil {
		return err
	}
	h.dictSize = getLE32(x[1:])
	h.uncompressedSize = getLE64(x[5:])
	return nil
}

// Reader supports the decoding of data in the classic LZMA format.
type Reader struct {
	decoder
	size uint64
	err  error
}

// NewReader creates a new reader for the classic LZMA format. The header of
// the stream is read immediately, so the call may fail with a header error.
func NewReader(z io.Reader) (r *Reader, err error) {
	var buf [headerLen]byte
	if _, err = io.ReadFull(z, buf[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	var h params
	if err = h.parse(buf[:]); err != nil {
		return nil, err
	}
	return NewRawReader(z, h.p, h.dictSize, h.uncompressedSize)
}

// NewRawReader creates a reader for headerless LZMA data with externally
// supplied parameters. The uncompressed size may be given as eosSize
// (0xffffffffffffffff) if it is unknown; the stream must then be terminated
// by the end-of-stream marker.
func NewRawReader(z io.Reader, p Properties, dictSize uint32,
	uncompressedSize uint64) (r *Reader, err error) {
	h := params{p: p, dictSize: dictSize, uncompressedSize: uncompressedSize}
	if err = h.Verify(); err != nil {
		return nil, err
	}
	if dictSize < minDictSize {
		// The LZMA specification makes this recommendation.
		dictSize = minDictSize
	}
	dc := int(dictSize)
	r = &Reader{size: uncompressedSize}
	if r.dict, err = newDecoderDict(dc, 2*dc); err != nil {
		return nil, err
	}
	br, ok := z.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(z)
	}
	if err = r.rd.init(br); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	r.state.init(p)
	return r, nil
}

// fillBuffer decodes sequences into the dictionary until the dictionary
// cannot accommodate another match or the stream ends.
func (r *Reader) fillBuffer() error {
	if r.err != nil {
		return r.err
	}
	for r.dict.available() >= maxMatchLen {
		seq, err := r.readSeq()
		if err != nil {
			if err == errEOS {
				if !r.rd.possiblyAtEnd() {
					r.err = ErrUnexpectedEOS
					return r.err
				}
				s := r.size
				if s != eosSize && s != uint64(r.dict.pos()) {
					r.err = ErrUnexpectedEOS
					return r.err
				}
				r.err = io.EOF
				return r.err
			}
			if err == io.EOF {
				s := r.size
				if !r.rd.possiblyAtEnd() || s == eosSize {
					r.err = io.ErrUnexpectedEOF
					return r.err
				}
				if s != uint64(r.dict.pos()) {
					r.err = io.ErrUnexpectedEOF
					return r.err
				}
				r.err = io.EOF
				return r.err
			}
			r.err = err
			return r.err
		}
		if err = r.applySeq(seq); err != nil {
			r.err = err
			return r.err
		}
		s := r.size
		if s != eosSize && uint64(r.dict.pos()) > s {
			r.err = ErrEncoding
			return r.err
		}
		if s == uint64(r.dict.pos()) {
			r.err = io.EOF
			return r.err
		}
	}
	return nil
}

// Read reads uncompressed data from the stream.
func (r *Reader) Read(p []byte) (n int, err error) {
	if len(p) > r.dict.buffered() {
		err = r.fillBuffer()
		if err != nil && err != io.EOF {
			return 0, err
		}
	}
	n, _ = r.dict.Read(p)
	if n == 0 {
		return 0, err
	}
	return n, nil
}
