package lzma

import "errors"

// Errors that the decoders may return. All errors are terminal for the
// decode call that produced them.
var (
	// ErrEncoding reports that the byte stream is not a valid encoding.
	ErrEncoding = errors.New("lzma: wrong encoding")
	// ErrUnexpectedEOS reports an end-of-stream marker where none is
	// permitted or where decoded and declared sizes disagree.
	ErrUnexpectedEOS = errors.New("lzma: unexpected end-of-stream marker")
	// ErrDistance reports a match distance that exceeds the number of
	// bytes decoded or the dictionary size.
	ErrDistance = errors.New("lzma: distance out of range")
)

// errEOS signals the regular end-of-stream marker. It never escapes the
// package.
var errEOS = errors.New("EOS marker")
