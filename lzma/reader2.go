package lzma

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Possible values of the masked control byte of an LZMA2 chunk header.
const (
	// end of stream
	cEOS = byte(0x00)
	// uncompressed chunk with dictionary reset
	cUD = byte(0x01)
	// uncompressed chunk
	cU = byte(0x02)
	// compressed chunk
	cC = byte(0x80)
	// compressed chunk with state reset
	cCS = byte(0xa0)
	// compressed chunk with state reset and new properties
	cCSP = byte(0xc0)
	// compressed chunk with state reset, new properties and dictionary
	// reset
	cCSPD = byte(0xe0)
	// mask for the control bits of a compressed chunk
	cMask = cCSPD
)

// maximum data length of a chunk
const maxChunkSize = 1 << 16

// maximum length of the uncompressed data in a compressed chunk
const maxUncompressedChunkSize = 1 << 21

// DictSize returns the dictionary size encoded by the single LZMA2
// properties byte as it is stored in xz block headers.
func DictSize(b byte) (n int64, err error) {
	if b > 40 {
		return 0, errors.New("lzma: invalid dictionary size byte")
	}
	if b == 40 {
		return maxDictSize, nil
	}
	n = int64(2|b&1) << (b/2 + 11)
	return n, nil
}

// chunkState represents a state of the chunk stream processing. The state
// functions encode which control bytes may follow which. In particular the
// first chunk must reset the dictionary and compressed chunks are invalid
// before any chunk has provided properties.
type chunkState func(c byte) (state chunkState, err error)

// errInvalidSelector indicates a control byte that is not permitted in the
// current chunk processing state.
var errInvalidSelector = errors.New("lzma: invalid chunk control byte order")

// chunkStart is the state at the beginning of a chunk stream.
func chunkStart(c byte) (state chunkState, err error) {
	switch c {
	case cEOS:
		return chunkFinal, nil
	case cUD:
		return chunkS1, nil
	case cCSPD:
		return chunkS2, nil
	default:
		return nil, errInvalidSelector
	}
}

// chunkS1 is the state after a dictionary reset without properties.
func chunkS1(c byte) (state chunkState, err error) {
	switch c {
	case cEOS:
		return chunkFinal, nil
	case cU, cUD:
		return chunkS1, nil
	case cCSP, cCSPD:
		return chunkS2, nil
	default:
		return nil, errInvalidSelector
	}
}

// chunkS2 is the state after properties have been provided.
func chunkS2(c byte) (state chunkState, err error) {
	switch c {
	case cEOS:
		return chunkFinal, nil
	case cUD:
		return chunkS1, nil
	case cU, cC, cCS, cCSP, cCSPD:
		return chunkS2, nil
	default:
		return nil, errInvalidSelector
	}
}

// chunkFinal is the state after the end-of-stream chunk.
func chunkFinal(c byte) (state chunkState, err error) {
	return nil, errors.New("lzma: chunk after end of stream")
}

// chunkHeader represents the header of an LZMA2 chunk.
type chunkHeader struct {
	control        byte
	compressedSize int
	size           int
	props          Properties
}

// parseChunkHeader reads the next chunk header from the reader. The control
// byte of compressed chunks is masked by cMask.
func parseChunkHeader(r io.Reader) (h chunkHeader, err error) {
	p := make([]byte, 1, 6)
	if _, err = io.ReadFull(r, p); err != nil {
		return h, err
	}
	h.control = p[0]
	if h.control&(1<<7) == 0 {
		switch h.control {
		case cEOS:
			return h, nil
		case cU, cUD:
			break
		default:
			return h, fmt.Errorf(
				"lzma: unsupported chunk header"+
					" control byte %#02x", h.control)
		}
		if _, err = io.ReadFull(r, p[1:3]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return h, err
		}
		h.size = int(getBE16(p[1:3])) + 1
	} else {
		h.control &= cMask
		switch h.control {
		case cC, cCS:
			p = p[0:5]
		case cCSP, cCSPD:
			p = p[0:6]
		}
		if _, err = io.ReadFull(r, p[1:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return h, err
		}
		h.size = int(p[0]&(1<<5-1))<<16 + int(getBE16(p[1:3])) + 1
		h.compressedSize = int(getBE16(p[3:5])) + 1
		if h.control == cCSP || h.control == cCSPD {
			if err = h.props.fromByte(p[5]); err != nil {
				return h, err
			}
		}
	}
	return h, nil
}

// chunkReader reads a sequence of LZMA2 chunks.
type chunkReader struct {
	decoder
	z      io.Reader
	cstate chunkState
	zbuf   bytes.Reader
	buf    []byte
	todo   int
	u      bool
	err    error
}

// init initializes the chunk reader. The dictionary capacity is raised to
// the minimum dictionary size if necessary.
func (r *chunkReader) init(z io.Reader, dictCap int) error {
	if dictCap < minDictSize {
		dictCap = minDictSize
	}
	if int64(dictCap) > maxDictSize {
		return errors.New("lzma: dictCap out of range")
	}
	*r = chunkReader{z: z, cstate: chunkStart}
	dict, err := newDecoderDict(dictCap, 2*dictCap)
	if err != nil {
		return err
	}
	r.dict = dict
	return nil
}

// startChunk parses the next chunk header and applies the resets it
// mandates. For a compressed chunk the compressed data is read completely
// and the range decoder is initialized.
func (r *chunkReader) startChunk() error {
	h, err := parseChunkHeader(r.z)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	r.cstate, err = r.cstate(h.control)
	if err != nil {
		return err
	}
	if h.control == cEOS {
		return io.EOF
	}

	switch h.control {
	case cUD, cCSPD:
		r.dict.reset()
	}
	switch h.control {
	case cCSP, cCSPD:
		r.state.init(h.props)
	case cCS:
		r.state.reset()
	}

	r.todo = h.size
	if h.control == cU || h.control == cUD {
		r.u = true
		return nil
	}
	r.u = false

	// A compressed chunk carries at most 64 KiB of compressed data. It is
	// read completely to give the range decoder an exactly bounded input.
	if cap(r.buf) < h.compressedSize {
		r.buf = make([]byte, h.compressedSize)
	}
	p := r.buf[:h.compressedSize]
	if _, err = io.ReadFull(r.z, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	r.zbuf.Reset(p)
	if err = r.rd.init(&r.zbuf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// decodeChunk decodes sequences of the current compressed chunk into the
// dictionary. At the end of the chunk the decoder must have consumed the
// compressed data exactly.
func (r *chunkReader) decodeChunk() error {
	for r.todo > 0 {
		if r.dict.available() < maxMatchLen {
			// drain the dictionary first
			return nil
		}
		seq, err := r.readSeq()
		if err != nil {
			if err == errEOS {
				return ErrUnexpectedEOS
			}
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if seq.MatchLen == 0 {
			if err = r.dict.writeByte(byte(seq.Aux)); err != nil {
				panic(err)
			}
			r.todo--
			continue
		}
		if int(seq.MatchLen) > r.todo {
			return ErrEncoding
		}
		if err = r.applySeq(seq); err != nil {
			return err
		}
		r.todo -= int(seq.MatchLen)
	}
	if r.zbuf.Len() != 0 || !r.rd.possiblyAtEnd() {
		return ErrEncoding
	}
	return nil
}

// copyChunk copies the data of the current uncompressed chunk into the
// dictionary.
func (r *chunkReader) copyChunk() error {
	const scratchSize = 32 << 10
	if cap(r.buf) < scratchSize {
		r.buf = make([]byte, scratchSize)
	}
	for r.todo > 0 {
		k := r.dict.available()
		if k == 0 {
			return nil
		}
		if k > r.todo {
			k = r.todo
		}
		if k > scratchSize {
			k = scratchSize
		}
		p := r.buf[:k]
		if _, err := io.ReadFull(r.z, p); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		if _, err := r.dict.write(p); err != nil {
			panic(err)
		}
		r.todo -= k
	}
	return nil
}

// work makes decoding progress for the current chunk or starts the next one.
func (r *chunkReader) work() error {
	switch {
	case r.todo > 0 && r.u:
		return r.copyChunk()
	case r.todo > 0:
		return r.decodeChunk()
	default:
		return r.startChunk()
	}
}

// Read reads uncompressed data from the chunk stream.
func (r *chunkReader) Read(p []byte) (n int, err error) {
	for {
		k, _ := r.dict.Read(p[n:])
		n += k
		if n == len(p) {
			return n, nil
		}
		if r.err != nil {
			if r.err == io.EOF && n > 0 {
				return n, nil
			}
			return n, r.err
		}
		if err = r.work(); err != nil {
			r.err = err
			if r.dict.buffered() > 0 {
				continue
			}
			if err == io.EOF && n > 0 {
				return n, nil
			}
			return n, err
		}
	}
}

// NewReader2 creates a reader that decodes an LZMA2 chunk stream. The
// dictionary capacity dictCap is raised to the minimum dictionary size of
// 4096 bytes if necessary.
func NewReader2(z io.Reader, dictCap int) (r io.Reader, err error) {
	cr := new(chunkReader)
	if err = cr.init(z, dictCap); err != nil {
		return nil, err
	}
	return cr, nil
}
