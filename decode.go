package xz

import (
	"bytes"
	"io"
)

// allZeros checks whether all bytes of the slice are zero.
func allZeros(p []byte) bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

// decodedLen computes the total uncompressed size of all streams in the
// buffer by walking the stream footers and indices backwards. It returns -1
// if the tail structure doesn't parse; Decode falls back to dynamic output
// growth in that case.
func decodedLen(data []byte) int64 {
	var total int64
	end := len(data)
	for end > 0 {
		for end >= 4 && allZeros(data[end-4:end]) {
			end -= 4
		}
		if end == 0 {
			break
		}
		if end < headerLen+8+footerLen {
			return -1
		}
		backwardSize, _, err := readStreamFooter(
			bytes.NewReader(data[end-footerLen : end]))
		if err != nil {
			return -1
		}
		indexStart := end - footerLen - int(backwardSize)
		if indexStart < headerLen || data[indexStart] != 0 {
			return -1
		}
		records, n, err := readIndexBody(
			bytes.NewReader(data[indexStart+1 : end-footerLen]))
		if err != nil || int64(n)+1 != backwardSize {
			return -1
		}
		streamSize := int64(headerLen) + backwardSize + footerLen
		for _, rec := range records {
			total += rec.uncompressedSize
			streamSize += (rec.unpaddedSize + 3) &^ 3
		}
		if streamSize > int64(end) {
			return -1
		}
		end -= int(streamSize)
		if _, err = parseStreamHeader(
			data[end : end+headerLen]); err != nil {
			return -1
		}
	}
	return total
}

// Decode decompresses a complete buffer of one or more concatenated xz
// streams and returns the concatenated output. The stream indices are used
// to size the output buffer in advance when the buffer tail is well formed.
func Decode(data []byte) ([]byte, error) {
	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if n := decodedLen(data); 0 <= n && n <= int64(maxBufferLen) {
		buf.Grow(int(n))
	}
	if _, err = io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// maxBufferLen bounds the pre-allocation of Decode.
const maxBufferLen = int(^uint(0) >> 1)
