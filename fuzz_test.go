package xz

import (
	"bytes"
	"io"
	"testing"
)

func FuzzDecode(f *testing.F) {
	f.Add([]byte{})
	f.Add(buildStream(0x00))
	f.Add(buildStream(0x01,
		uncompressedBlock([]byte("fuzzing seed payload"))))
	f.Add([]byte{0xfd, '7', 'z', 'X', 'Z', 0x00, 0x00, 0x00})
	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := NewReader(bytes.NewReader(data))
		if err != nil {
			return
		}
		// bound the output; corrupt headers must error, not crash
		if _, err = io.CopyN(io.Discard, r, 1<<24); err != nil {
			return
		}
	})
}
