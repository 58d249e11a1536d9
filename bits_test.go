package xz

import (
	"bytes"
	"testing"
)

func TestReadUvarint(t *testing.T) {
	tests := []struct {
		data []byte
		u    uint64
		n    int
	}{
		{[]byte{0x00}, 0, 1},
		{[]byte{0x7f}, 127, 1},
		{[]byte{0x80, 0x01}, 128, 2},
		{[]byte{0xff, 0x7f}, 16383, 2},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 1<<32 - 1, 5},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f},
			1<<63 - 1, 9},
	}
	for _, tc := range tests {
		u, n, err := readUvarint(bytes.NewReader(tc.data))
		if err != nil {
			t.Fatalf("readUvarint(%x) error %s", tc.data, err)
		}
		if u != tc.u || n != tc.n {
			t.Fatalf("readUvarint(%x) is (%d, %d); want (%d, %d)",
				tc.data, u, n, tc.u, tc.n)
		}
	}
}

func TestReadUvarintErrors(t *testing.T) {
	tests := []struct {
		data []byte
		err  error
	}{
		{[]byte{}, errUvarintEOF},
		{[]byte{0x80}, errUvarintEOF},
		{[]byte{0x80, 0x00}, errUvarintNullByte},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			0x01}, errUvarintTooLarge},
	}
	for _, tc := range tests {
		_, _, err := readUvarint(bytes.NewReader(tc.data))
		if err != tc.err {
			t.Fatalf("readUvarint(%x) error %v; want %v",
				tc.data, err, tc.err)
		}
	}
}
