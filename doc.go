// Package xz supports the decompression of xz files and the filters the
// format defines.
//
// Reader decodes xz streams incrementally, Decode decompresses a complete
// buffer. Both handle multiple concatenated streams, all block filter chains
// ending in LZMA2 and the optional Delta and BCJ preprocessing filters.
package xz
