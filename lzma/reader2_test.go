package lzma

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// stream2Builder assembles LZMA2 chunk streams for the decoder tests. It
// keeps the encoder state and history across chunks the same way the
// decoder does, so solid chunks can reference earlier chunk data.
type stream2Builder struct {
	t    *testing.T
	buf  bytes.Buffer
	st   state
	dict []byte
	want []byte
}

func newStream2Builder(t *testing.T) *stream2Builder {
	return &stream2Builder{t: t}
}

// chunkU appends an uncompressed chunk.
func (b *stream2Builder) chunkU(control byte, data []byte) {
	b.t.Helper()
	if control != cU && control != cUD {
		b.t.Fatalf("chunkU: invalid control byte %#02x", control)
	}
	if control == cUD {
		b.dict = b.dict[:0]
	}
	var hdr [3]byte
	hdr[0] = control
	putBE16(hdr[1:], uint16(len(data)-1))
	b.buf.Write(hdr[:])
	b.buf.Write(data)
	b.dict = append(b.dict, data...)
	b.want = append(b.want, data...)
}

// chunkC appends a compressed chunk. The ops function encodes the chunk
// content through the opWriter.
func (b *stream2Builder) chunkC(control byte, props Properties,
	ops func(w *opWriter) error) {
	b.t.Helper()
	switch control {
	case cCSPD:
		b.dict = b.dict[:0]
		b.st.init(props)
	case cCSP:
		b.st.init(props)
	case cCS:
		b.st.reset()
	case cC:
		// no reset
	default:
		b.t.Fatalf("chunkC: invalid control byte %#02x", control)
	}
	var cbuf bytes.Buffer
	re := newRangeEncoder(&cbuf)
	w := &opWriter{re: re, state: &b.st, dict: b.dict}
	start := len(w.dict)
	if err := ops(w); err != nil {
		b.t.Fatalf("chunk ops error %s", err)
	}
	if err := re.Close(); err != nil {
		b.t.Fatalf("re.Close error %s", err)
	}
	usize := len(w.dict) - start
	csize := cbuf.Len()
	if usize == 0 || usize > maxUncompressedChunkSize ||
		csize > maxChunkSize {
		b.t.Fatalf("chunk sizes out of range: usize %d csize %d",
			usize, csize)
	}

	var hdr [6]byte
	hdr[0] = control | byte((usize-1)>>16)
	putBE16(hdr[1:], uint16(usize-1))
	putBE16(hdr[3:], uint16(csize-1))
	n := 5
	if control == cCSP || control == cCSPD {
		hdr[5] = props.byte()
		n = 6
	}
	b.buf.Write(hdr[:n])
	b.buf.Write(cbuf.Bytes())
	b.want = append(b.want, w.dict[start:]...)
	b.dict = w.dict
}

// end terminates the chunk stream.
func (b *stream2Builder) end() {
	b.buf.WriteByte(cEOS)
}

// decode runs the stream through the LZMA2 reader and compares the output
// with the expected data.
func (b *stream2Builder) decode(dictCap int) {
	b.t.Helper()
	r, err := NewReader2(bytes.NewReader(b.buf.Bytes()), dictCap)
	if err != nil {
		b.t.Fatalf("NewReader2 error %s", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		b.t.Fatalf("io.ReadAll error %s", err)
	}
	if !bytes.Equal(out, b.want) {
		b.t.Fatalf("got %d bytes; want %d bytes", len(out),
			len(b.want))
	}
}

var testProps = Properties{LC: 3, LP: 0, PB: 2}

func TestReader2Uncompressed(t *testing.T) {
	b := newStream2Builder(t)
	b.chunkU(cUD, []byte("uncompressed chunk one|"))
	b.chunkU(cU, []byte("uncompressed chunk two|"))
	b.end()
	b.decode(1 << 12)
}

func TestReader2Compressed(t *testing.T) {
	data := []byte(strings.Repeat("lzma2 compressed chunk data ", 13))
	b := newStream2Builder(t)
	b.chunkC(cCSPD, testProps, func(w *opWriter) error {
		return w.writeData(data)
	})
	b.end()
	b.decode(1 << 12)
}

// TestReader2Solid checks that a solid chunk continues with the dictionary
// and probability state of the previous chunk: the second chunk consists of
// a single match reaching into the first chunk's data.
func TestReader2Solid(t *testing.T) {
	b := newStream2Builder(t)
	b.chunkC(cCSPD, testProps, func(w *opWriter) error {
		return w.writeData([]byte("solid state carries over. "))
	})
	b.chunkC(cC, testProps, func(w *opWriter) error {
		return w.writeMatch(26, 26)
	})
	b.end()
	b.decode(1 << 12)
}

// TestReader2StateReset resets the probability state between chunks but
// keeps the dictionary, so matches into the previous chunk remain valid.
func TestReader2StateReset(t *testing.T) {
	b := newStream2Builder(t)
	b.chunkC(cCSPD, testProps, func(w *opWriter) error {
		return w.writeData([]byte("dictionary survives a state reset."))
	})
	b.chunkC(cCS, testProps, func(w *opWriter) error {
		if err := w.writeMatch(34, 11); err != nil {
			return err
		}
		return w.writeData([]byte(" more text"))
	})
	b.end()
	b.decode(1 << 12)
}

// TestReader2NewProps switches the properties mid-stream.
func TestReader2NewProps(t *testing.T) {
	b := newStream2Builder(t)
	b.chunkC(cCSPD, testProps, func(w *opWriter) error {
		return w.writeData([]byte("first chunk with lc=3 "))
	})
	b.chunkC(cCSP, Properties{LC: 0, LP: 1, PB: 1},
		func(w *opWriter) error {
			if err := w.writeData(
				[]byte("second chunk with lc=0")); err != nil {
				return err
			}
			return w.writeMatch(22, 6)
		})
	b.end()
	b.decode(1 << 12)
}

// TestReader2DictReset verifies that decoding across a dictionary reset is
// identical to decoding the post-reset chunks as an independent stream.
func TestReader2DictReset(t *testing.T) {
	part := []byte("independent part with own history. own history. ")

	b := newStream2Builder(t)
	b.chunkC(cCSPD, testProps, func(w *opWriter) error {
		return w.writeData([]byte("prologue to be forgotten"))
	})
	b.chunkC(cCSPD, testProps, func(w *opWriter) error {
		return w.writeData(part)
	})
	b.end()
	b.decode(1 << 12)

	single := newStream2Builder(t)
	single.chunkC(cCSPD, testProps, func(w *opWriter) error {
		return w.writeData(part)
	})
	single.end()
	single.decode(1 << 12)

	r1, err := NewReader2(bytes.NewReader(b.buf.Bytes()), 1<<12)
	if err != nil {
		t.Fatalf("NewReader2 error %s", err)
	}
	out1, err := io.ReadAll(r1)
	if err != nil {
		t.Fatalf("io.ReadAll error %s", err)
	}
	if !bytes.Equal(out1[len(out1)-len(part):], part) {
		t.Fatalf("post-reset output differs from independent decode")
	}
}

func TestReader2MixedChunks(t *testing.T) {
	b := newStream2Builder(t)
	b.chunkU(cUD, []byte("raw prefix fed to the dictionary|"))
	b.chunkC(cCSP, testProps, func(w *opWriter) error {
		// reference the uncompressed chunk data
		return w.writeMatch(33, 33)
	})
	b.chunkU(cU, []byte("|raw suffix"))
	b.end()
	b.decode(1 << 12)
}

func TestReader2OneByteReads(t *testing.T) {
	data := []byte(strings.Repeat("one byte at a time ", 29))
	b := newStream2Builder(t)
	b.chunkC(cCSPD, testProps, func(w *opWriter) error {
		return w.writeData(data)
	})
	b.end()

	r, err := NewReader2(iotest.OneByteReader(
		bytes.NewReader(b.buf.Bytes())), 1<<12)
	if err != nil {
		t.Fatalf("NewReader2 error %s", err)
	}
	out, err := io.ReadAll(iotest.OneByteReader(r))
	if err != nil {
		t.Fatalf("io.ReadAll error %s", err)
	}
	if !bytes.Equal(out, b.want) {
		t.Fatalf("one-byte decoding differs from original")
	}
}

func TestReader2BadControl(t *testing.T) {
	for _, c := range []byte{0x03, 0x7f} {
		r, err := NewReader2(bytes.NewReader([]byte{c}), 1<<12)
		if err != nil {
			t.Fatalf("NewReader2 error %s", err)
		}
		if _, err = io.ReadAll(r); err == nil || err == io.EOF {
			t.Fatalf("control byte %#02x: got %v; want error",
				c, err)
		}
	}
}

func TestReader2MissingProperties(t *testing.T) {
	// A compressed chunk without properties cannot start a stream.
	z := []byte{cC, 0x00, 0x00, 0x00, 0x00}
	r, err := NewReader2(bytes.NewReader(z), 1<<12)
	if err != nil {
		t.Fatalf("NewReader2 error %s", err)
	}
	if _, err = io.ReadAll(r); err != errInvalidSelector {
		t.Fatalf("got %v; want %v", err, errInvalidSelector)
	}
}

func TestReader2MissingDictReset(t *testing.T) {
	// The first chunk must reset the dictionary.
	z := []byte{cU, 0x00, 0x00, 'x'}
	r, err := NewReader2(bytes.NewReader(z), 1<<12)
	if err != nil {
		t.Fatalf("NewReader2 error %s", err)
	}
	if _, err = io.ReadAll(r); err != errInvalidSelector {
		t.Fatalf("got %v; want %v", err, errInvalidSelector)
	}
}

func TestReader2Truncated(t *testing.T) {
	b := newStream2Builder(t)
	b.chunkC(cCSPD, testProps, func(w *opWriter) error {
		return w.writeData([]byte("about to be cut off"))
	})
	b.end()
	z := b.buf.Bytes()
	z = z[:len(z)-4]

	r, err := NewReader2(bytes.NewReader(z), 1<<12)
	if err != nil {
		t.Fatalf("NewReader2 error %s", err)
	}
	if _, err = io.ReadAll(r); err != io.ErrUnexpectedEOF {
		t.Fatalf("got %v; want %v", err, io.ErrUnexpectedEOF)
	}
}

// TestReader2SizeMismatch extends the declared compressed size of a chunk by
// one byte. The decoder must detect that it did not consume the chunk
// exactly.
func TestReader2SizeMismatch(t *testing.T) {
	var st state
	st.init(testProps)
	var cbuf bytes.Buffer
	re := newRangeEncoder(&cbuf)
	w := &opWriter{re: re, state: &st}
	if err := w.writeData([]byte("exact byte accounting")); err != nil {
		t.Fatalf("writeData error %s", err)
	}
	if err := re.Close(); err != nil {
		t.Fatalf("re.Close error %s", err)
	}
	usize := len(w.dict)
	csize := cbuf.Len() + 1 // one stray byte

	var z bytes.Buffer
	var hdr [6]byte
	hdr[0] = cCSPD | byte((usize-1)>>16)
	putBE16(hdr[1:], uint16(usize-1))
	putBE16(hdr[3:], uint16(csize-1))
	hdr[5] = testProps.byte()
	z.Write(hdr[:])
	z.Write(cbuf.Bytes())
	z.WriteByte(0) // the stray byte
	z.WriteByte(cEOS)

	r, err := NewReader2(bytes.NewReader(z.Bytes()), 1<<12)
	if err != nil {
		t.Fatalf("NewReader2 error %s", err)
	}
	if _, err = io.ReadAll(r); err != ErrEncoding {
		t.Fatalf("got %v; want %v", err, ErrEncoding)
	}
}

func TestDictSize(t *testing.T) {
	tests := []struct {
		b byte
		n int64
	}{
		{0, 1 << 12},
		{1, 3 << 11},
		{2, 1 << 13},
		{38, 1 << 31},
		{39, 3 << 30},
		{40, 1<<32 - 1},
	}
	for _, tc := range tests {
		n, err := DictSize(tc.b)
		if err != nil {
			t.Fatalf("DictSize(%d) error %s", tc.b, err)
		}
		if n != tc.n {
			t.Fatalf("DictSize(%d) is %d; want %d", tc.b, n, tc.n)
		}
	}
	if _, err := DictSize(41); err == nil {
		t.Fatalf("DictSize(41) expected error")
	}
}
