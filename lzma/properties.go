package lzma

import (
	"errors"
	"fmt"
)

// Maximum and minimum values for the individual properties.
const (
	MinLC = 0
	MaxLC = 8
	MinLP = 0
	MaxLP = 4
	MinPB = 0
	MaxPB = 4
)

// Properties define the properties for the LZMA and LZMA2 compression
// methods.
type Properties struct {
	// number of literal context bits
	LC int
	// number of literal position bits
	LP int
	// number of position bits
	PB int
}

// byte returns the byte that encodes the properties.
func (p Properties) byte() byte {
	return (byte)((p.PB*5+p.LP)*9 + p.LC)
}

// fromByte decodes the properties from the properties byte as it is used by
// the classic LZMA header and the LZMA2 chunk headers.
func (p *Properties) fromByte(b byte) error {
	p.LC = int(b % 9)
	b /= 9
	p.LP = int(b % 5)
	b /= 5
	p.PB = int(b)
	if p.PB > MaxPB {
		return errors.New("lzma: invalid properties byte")
	}
	return nil
}

// Verify checks the properties for errors.
func (p Properties) Verify() error {
	if !(MinLC <= p.LC && p.LC <= MaxLC) {
		return fmt.Errorf("lzma: LC out of range %d..%d", MinLC, MaxLC)
	}
	if !(MinLP <= p.LP && p.LP <= MaxLP) {
		return fmt.Errorf("lzma: LP out of range %d..%d", MinLP, MaxLP)
	}
	if !(MinPB <= p.PB && p.PB <= MaxPB) {
		return fmt.Errorf("lzma: PB out of range %d..%d", MinPB, MaxPB)
	}
	return nil
}
