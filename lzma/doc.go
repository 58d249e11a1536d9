// Package lzma supports the decoding of LZMA and LZMA2 streams.
//
// Reader reads the classic LZMA format with the 13-byte header. NewReader2
// returns a reader that decodes LZMA2 chunk streams as they are used inside
// the xz file format.
//
// The package is written completely in Go. From external libraries the
// decode path uses only the Seq type of github.com/ulikunitz/lz to
// represent decoded operations.
package lzma
