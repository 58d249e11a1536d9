package xz

import (
	"bytes"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/kmalakoff/xz-compat/lzma"
)

// maxDictCap is the default upper limit for the dictionary capacity. Blocks
// declaring a larger dictionary are rejected rather than allocated.
const maxDictCap = 1 << 30

// minDictCap is the smallest capacity the configuration accepts.
const minDictCap = 1 << 12

// ErrCheck reports that the integrity check of a block failed.
var ErrCheck = errors.New("xz: check mismatch")

// ReaderConfig defines the parameters for the xz reader. The zero value is
// usable; defaults are applied by the constructor.
type ReaderConfig struct {
	// DictCap is the maximum dictionary capacity in bytes that the reader
	// will allocate. Blocks requiring more fail with an error. The default
	// is 1 GiB.
	DictCap int
	// IgnoreChecks disables the verification of the block integrity
	// checks. The check fields are still read and skipped.
	IgnoreChecks bool
}

// ApplyDefaults replaces zero values with default values.
func (c *ReaderConfig) ApplyDefaults() {
	if c.DictCap == 0 {
		c.DictCap = maxDictCap
	}
}

// Verify checks the configuration for errors.
func (c *ReaderConfig) Verify() error {
	if c == nil {
		return errors.New("xz: reader parameters are nil")
	}
	if c.DictCap < minDictCap {
		return errors.New("xz: dictionary capacity is too small")
	}
	return nil
}

// Reader supports the reading of one or multiple xz streams.
type Reader struct {
	cfg ReaderConfig

	xz      io.Reader
	err     error
	br      *blockReader
	newHash func() hash.Hash
	flags   streamFlags
	index   []record
}

// NewReader creates an xz stream reader. The reader reads and checks the
// stream header immediately.
func NewReader(xz io.Reader) (r *Reader, err error) {
	return NewReaderConfig(xz, ReaderConfig{})
}

// NewReaderConfig creates an xz stream reader using the given configuration
// parameters.
func NewReaderConfig(xz io.Reader, cfg ReaderConfig) (r *Reader, err error) {
	cfg.ApplyDefaults()
	if err = cfg.Verify(); err != nil {
		return nil, err
	}
	if xz == nil {
		return nil, errors.New("xz: reader must not be nil")
	}
	r = &Reader{cfg: cfg, xz: xz}
	if r.flags, err = readStreamHeader(r.xz); err != nil {
		return nil, err
	}
	if r.newHash, err = newHashFunc(r.flags); err != nil {
		return nil, err
	}
	return r, nil
}

// readTail reads the index body and the stream footer and checks their
// consistency with the blocks that have been decoded.
func (r *Reader) readTail() error {
	records, n, err := readIndexBody(r.xz)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if len(records) != len(r.index) {
		return errors.New("xz: index block count mismatch")
	}
	for i, rec := range records {
		if rec != r.index[i] {
			return fmt.Errorf("xz: index record %d mismatch", i)
		}
	}

	backwardSize, sf, err := readStreamFooter(r.xz)
	if err != nil {
		return err
	}
	if sf != r.flags {
		return errors.New("xz: footer flags mismatch")
	}
	if backwardSize != int64(n)+1 {
		return errors.New("xz: index size in footer wrong")
	}
	return nil
}

// nextStream skips the stream padding after a stream footer and starts the
// following stream if there is one. It returns io.EOF after the last stream.
func (r *Reader) nextStream() error {
	var quad [4]byte
	for {
		if _, err := io.ReadFull(r.xz, quad[:]); err != nil {
			if err == io.EOF {
				return io.EOF
			}
			if err == io.ErrUnexpectedEOF {
				return errors.New(
					"xz: stream padding not aligned")
			}
			return err
		}
		if quad != [4]byte{} {
			break
		}
	}

	// The four bytes read must start the next stream header; the header
	// magic cannot begin with a zero byte, so padding and header never
	// mix.
	var hdr [headerLen]byte
	copy(hdr[:], quad[:])
	if _, err := io.ReadFull(r.xz, hdr[4:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("xz: stream header: %w", err)
	}
	sf, err := parseStreamHeader(hdr[:])
	if err != nil {
		return err
	}
	r.flags = sf
	if r.newHash, err = newHashFunc(sf); err != nil {
		return err
	}
	r.index = nil
	return nil
}

// read reads data from the blocks of the streams.
func (r *Reader) read(p []byte) (n int, err error) {
	for n < len(p) {
		if r.br == nil {
			info, err := readBlockHeader(r.xz)
			if err != nil {
				if err == errIndexIndicator {
					if err = r.readTail(); err != nil {
						return n, err
					}
					if err = r.nextStream(); err != nil {
						return n, err
					}
					continue
				}
				return n, err
			}
			r.br, err = newBlockReader(r.xz, info, r.flags,
				r.newHash(), &r.cfg)
			if err != nil {
				return n, err
			}
		}
		k, err := r.br.Read(p[n:])
		n += k
		if err != nil {
			if err != io.EOF {
				return n, err
			}
			r.index = append(r.index, r.br.record())
			r.br = nil
		}
	}
	return n, nil
}

// Read decompresses the data of the xz streams.
func (r *Reader) Read(p []byte) (n int, err error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err = r.read(p)
	r.err = err
	return n, err
}

// errBlockSize indicates that the size of the block in the block header is
// wrong.
var errBlockSize = errors.New("xz: wrong uncompressed size for block")

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

// blockReader is used to read the data of a single block.
type blockReader struct {
	z            io.Reader
	out          io.Reader
	cr           *countingReader
	hash         hash.Hash
	info         *blockInfo
	checkSize    int
	ignoreChecks bool
	count        int64
	err          error
}

// newBlockReader creates a new block reader. The filter chain of the block
// header is instantiated over the compressed data.
func newBlockReader(z io.Reader, info *blockInfo, sf streamFlags,
	h hash.Hash, cfg *ReaderConfig) (br *blockReader, err error) {

	lf := info.filters[len(info.filters)-1].(lzma2Flags)
	dictSize, err := lf.dictSize()
	if err != nil {
		return nil, err
	}
	if dictSize > int64(cfg.DictCap) {
		return nil, fmt.Errorf(
			"xz: block dictionary size %d exceeds capacity %d",
			dictSize, cfg.DictCap)
	}

	br = &blockReader{
		z:            z,
		hash:         h,
		info:         info,
		checkSize:    sf.checkSize(),
		ignoreChecks: cfg.IgnoreChecks,
	}

	var zr io.Reader = z
	if info.compressedSize >= 0 {
		zr = io.LimitReader(z, info.compressedSize)
	}
	br.cr = &countingReader{r: zr}

	l2, err := lzma.NewReader2(br.cr, int(dictSize))
	if err != nil {
		return nil, err
	}
	br.out = io.TeeReader(newFilterChain(info.filters, l2), br.hash)
	return br, nil
}

// record returns the index record for the block.
func (br *blockReader) record() record {
	unpadded := int64(br.info.headerSize) + br.cr.n + int64(br.checkSize)
	return record{unpaddedSize: unpadded, uncompressedSize: br.count}
}

// read reads data from the block and verifies sizes, padding and the check
// field at the end.
func (br *blockReader) read(p []byte) (n int, err error) {
	n, err = br.out.Read(p)
	br.count += int64(n)
	if br.info.uncompressedSize >= 0 &&
		br.count > br.info.uncompressedSize {
		return n, errBlockSize
	}
	if err != io.EOF {
		return n, err
	}
	if br.info.uncompressedSize >= 0 &&
		br.count < br.info.uncompressedSize {
		return n, io.ErrUnexpectedEOF
	}
	if br.info.compressedSize >= 0 && br.cr.n != br.info.compressedSize {
		return n, errors.New("xz: wrong compressed size for block")
	}

	// block padding aligns the compressed data to four bytes
	k := int(br.cr.n % 4)
	if k > 0 {
		k = 4 - k
	}
	q := make([]byte, k+br.checkSize)
	if _, err = io.ReadFull(br.z, q); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return n, err
	}
	for _, c := range q[:k] {
		if c != 0 {
			return n, errors.New("xz: non-zero block padding")
		}
	}
	if !br.ignoreChecks && br.checkSize > 0 {
		if !bytes.Equal(q[k:], br.hash.Sum(nil)) {
			return n, ErrCheck
		}
	}
	return n, io.EOF
}

// Read reads uncompressed data from the block.
func (br *blockReader) Read(p []byte) (n int, err error) {
	if br.err != nil {
		return 0, br.err
	}
	n, err = br.read(p)
	br.err = err
	return n, err
}
