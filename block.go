package xz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/kmalakoff/xz-compat/lzma"
)

// A filterID can be quite long and is not restricted to the filter ids
// defined in the xz file format document.
type filterID uint64

// List of the filter ids supported by this decoder.
const (
	idDelta       filterID = 0x03
	idBCJX86      filterID = 0x04
	idBCJPowerPC  filterID = 0x05
	idBCJIA64     filterID = 0x06
	idBCJARM      filterID = 0x07
	idBCJARMThumb filterID = 0x08
	idBCJSPARC    filterID = 0x09
	idBCJARM64    filterID = 0x0a
	idLZMA2       filterID = 0x21
)

// filterNames stores the names for the supported filter domains.
var filterNames = map[filterID]string{
	idDelta:       "Delta filter",
	idBCJX86:      "x86 BCJ filter",
	idBCJPowerPC:  "PowerPC BCJ filter",
	idBCJIA64:     "IA-64 BCJ filter",
	idBCJARM:      "ARM BCJ filter",
	idBCJARMThumb: "ARM Thumb BCJ filter",
	idBCJSPARC:    "SPARC BCJ filter",
	idBCJARM64:    "ARM64 BCJ filter",
	idLZMA2:       "LZMA2 filter",
}

// String provides a string representation for the filter id.
func (id filterID) String() string {
	s, ok := filterNames[id]
	if !ok {
		return fmt.Sprintf("unknown filter (%#x)", uint64(id))
	}
	return s
}

// ErrUnsupportedFilter reports a filter id this decoder doesn't support or a
// filter chain that is not terminated by LZMA2.
var ErrUnsupportedFilter = errors.New("xz: unsupported filter")

// filterFlags stores the properties of a single filter of the block filter
// chain. Different filter types have different properties, so the flags are
// provided as an interface and must be converted using type assertions to
// the type for the actual filter.
type filterFlags interface {
	id() filterID
}

// lzma2Flags represents the filter properties of the LZMA2 filter. It
// contains only the dictionary size.
type lzma2Flags byte

// id returns the filter id for the LZMA2 filter.
func (f lzma2Flags) id() filterID { return idLZMA2 }

// reserved returns the reserved bits of lzma2Flags.
func (f lzma2Flags) reserved() byte { return byte(f) & 0xc0 }

// dictSize returns the dictionary size for the filter.
func (f lzma2Flags) dictSize() (n int64, err error) {
	return lzma.DictSize(byte(f & 0x3f))
}

// readLZMA2Flags converts the lzma2 filter properties. The property size
// must be one.
func readLZMA2Flags(props []byte) (f lzma2Flags, err error) {
	if len(props) != 1 {
		return 0, errors.New(
			"xz: lzma2 filter flags: properties size must be one")
	}
	f = lzma2Flags(props[0])
	if f.reserved() != 0 {
		return 0, errors.New(
			"xz: lzma2 filter flags: reserved bits set")
	}
	if _, err = f.dictSize(); err != nil {
		return 0, fmt.Errorf("xz: lzma2 filter flags: %w", err)
	}
	return f, nil
}

// deltaFlags represents the filter properties of the Delta filter. The byte
// stores the distance minus one.
type deltaFlags byte

// id returns the filter id for the Delta filter.
func (f deltaFlags) id() filterID { return idDelta }

// distance returns the delta distance in the range [1,256].
func (f deltaFlags) distance() int { return int(f) + 1 }

// readDeltaFlags converts the delta filter properties. The property size
// must be one.
func readDeltaFlags(props []byte) (f deltaFlags, err error) {
	if len(props) != 1 {
		return 0, errors.New(
			"xz: delta filter flags: properties size must be one")
	}
	return deltaFlags(props[0]), nil
}

// bcjFlags represents the filter properties of the BCJ filters. All BCJ
// filters support an optional four-byte start offset, which must be aligned
// to the instruction size of the architecture.
type bcjFlags struct {
	fid   filterID
	start uint32
}

// id returns the filter id of the BCJ filter.
func (f bcjFlags) id() filterID { return f.fid }

// bcjAlignment maps the BCJ filter ids to the alignment required for the
// start offset.
var bcjAlignment = map[filterID]uint32{
	idBCJX86:      1,
	idBCJPowerPC:  4,
	idBCJIA64:     16,
	idBCJARM:      4,
	idBCJARMThumb: 2,
	idBCJSPARC:    4,
	idBCJARM64:    4,
}

// readBCJFlags converts the properties of a BCJ filter. The properties must
// be empty or contain the four-byte start offset.
func readBCJFlags(fid filterID, props []byte) (f bcjFlags, err error) {
	f.fid = fid
	switch len(props) {
	case 0:
		return f, nil
	case 4:
		f.start = le32(props)
	default:
		return f, fmt.Errorf(
			"xz: %s: properties size must be zero or four", fid)
	}
	if a := bcjAlignment[fid]; f.start%a != 0 {
		return f, fmt.Errorf(
			"xz: %s: start offset %d is not aligned", fid, f.start)
	}
	return f, nil
}

// readFilterFlags converts the flags of a single filter record.
func readFilterFlags(fid filterID, props []byte) (f filterFlags, err error) {
	switch fid {
	case idLZMA2:
		return readLZMA2Flags(props)
	case idDelta:
		return readDeltaFlags(props)
	case idBCJX86, idBCJPowerPC, idBCJIA64, idBCJARM, idBCJARMThumb,
		idBCJSPARC, idBCJARM64:
		return readBCJFlags(fid, props)
	}
	return nil, ErrUnsupportedFilter
}

// blockFlags represents the block flags. The flags define the number of
// filters used in the block and the presence of the size fields.
type blockFlags byte

// reservedBits returns the reserved bits of the flags.
func (bf blockFlags) reservedBits() byte {
	return byte(bf) & 0x3c
}

// filters returns the number of filters in that block.
func (bf blockFlags) filters() int {
	return int(bf&0x03) + 1
}

// compressedSizePresent checks whether the compressed size field is present
// in the block header.
func (bf blockFlags) compressedSizePresent() bool {
	return bf&0x40 != 0
}

// uncompressedSizePresent checks whether the uncompressed size field is
// present in the block header.
func (bf blockFlags) uncompressedSizePresent() bool {
	return bf&0x80 != 0
}

// String provides a string representation for the blockFlags. The string
// "2/cu" describes the use of 2 filters and the presence of compressed and
// uncompressed size fields.
func (bf blockFlags) String() string {
	c, u := '-', '-'
	if bf.compressedSizePresent() {
		c = 'c'
	}
	if bf.uncompressedSizePresent() {
		u = 'u'
	}
	return fmt.Sprintf("%d/%c%c", bf.filters(), c, u)
}

// blockInfo provides all information available in a block header. The size
// fields are negative if the block header doesn't provide them.
type blockInfo struct {
	headerSize       int
	flags            blockFlags
	compressedSize   int64
	uncompressedSize int64
	filters          []filterFlags
}

// errIndexIndicator is returned by readBlockHeader if the slot contains the
// index indicator byte instead of a block header.
var errIndexIndicator = errors.New("xz: index indicator")

// errBlockHeaderSize indicates a block header that the multibyte integers
// and filter records don't fit into.
var errBlockHeaderSize = errors.New("xz: invalid block header size")

// readBlockHeader reads a block header from the reader. If the first byte is
// zero the data starts the stream index and errIndexIndicator is returned.
// The header checksum is verified.
func readBlockHeader(r io.Reader) (info *blockInfo, err error) {
	var sz [1]byte
	if _, err = io.ReadFull(r, sz[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if sz[0] == 0 {
		return nil, errIndexIndicator
	}
	headerSize := (int(sz[0]) + 1) * 4
	buf := make([]byte, headerSize)
	buf[0] = sz[0]
	if _, err = io.ReadFull(r, buf[1:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("xz: block header: %w", err)
	}
	cs := checksumCRC32(buf[:headerSize-4])
	if cs != le32(buf[headerSize-4:]) {
		return nil, errors.New("xz: block header: CRC32 error")
	}
	info, err = parseBlockHeader(buf[1 : headerSize-4])
	if err != nil {
		return nil, err
	}
	info.headerSize = headerSize
	return info, nil
}

// parseBlockHeader interprets the block header fields between the size byte
// and the CRC32 field.
func parseBlockHeader(data []byte) (info *blockInfo, err error) {
	br := bytes.NewReader(data)
	info = &blockInfo{compressedSize: -1, uncompressedSize: -1}

	b, err := br.ReadByte()
	if err != nil {
		return nil, errBlockHeaderSize
	}
	info.flags = blockFlags(b)
	if info.flags.reservedBits() != 0 {
		return nil, errors.New("xz: block flags: reserved bits set")
	}
	if info.flags.compressedSizePresent() {
		u, _, err := readUvarint(br)
		if err != nil {
			return nil, fmt.Errorf(
				"xz: block header: compressed size: %w", err)
		}
		if u == 0 || u > math.MaxInt64 {
			return nil, errors.New(
				"xz: block header: compressed size out of range")
		}
		info.compressedSize = int64(u)
	}
	if info.flags.uncompressedSizePresent() {
		u, _, err := readUvarint(br)
		if err != nil {
			return nil, fmt.Errorf(
				"xz: block header: uncompressed size: %w", err)
		}
		if u > math.MaxInt64 {
			return nil, errors.New(
				"xz: block header: uncompressed size out of range")
		}
		info.uncompressedSize = int64(u)
	}

	info.filters = make([]filterFlags, 0, info.flags.filters())
	for i := 0; i < info.flags.filters(); i++ {
		fid, _, err := readUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("xz: filter record: %w", err)
		}
		propsSize, _, err := readUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("xz: filter record: %w", err)
		}
		if propsSize > uint64(br.Len()) {
			return nil, errBlockHeaderSize
		}
		props := make([]byte, propsSize)
		if _, err = io.ReadFull(br, props); err != nil {
			return nil, errBlockHeaderSize
		}
		f, err := readFilterFlags(filterID(fid), props)
		if err != nil {
			return nil, err
		}
		info.filters = append(info.filters, f)
	}
	if err = verifyFilterChain(info.filters); err != nil {
		return nil, err
	}

	// header padding
	for br.Len() > 0 {
		b, _ := br.ReadByte()
		if b != 0 {
			return nil, errors.New(
				"xz: block header: non-zero padding byte")
		}
	}
	return info, nil
}

// verifyFilterChain checks that the filter chain ends in LZMA2 and that the
// preprocessing filters all precede it.
func verifyFilterChain(filters []filterFlags) error {
	if len(filters) == 0 {
		return ErrUnsupportedFilter
	}
	for i, f := range filters {
		last := i == len(filters)-1
		if (f.id() == idLZMA2) != last {
			return ErrUnsupportedFilter
		}
	}
	return nil
}
