// Package glb implements the binary glTF container.
//
// A container is a 12-byte header followed by length-prefixed chunks: one
// JSON descriptor chunk, then at most one binary payload chunk. Chunks of
// other types are tolerated and skipped on decode.
package glb

import "encoding/binary"

// Container global constants must never change.
const (
	// Magic is the header magic, "glTF" read as a little-endian uint32.
	Magic uint32 = 0x46546C67

	// Version is the only container version this package reads or writes.
	Version uint32 = 2

	HeaderSize      = 12
	ChunkHeaderSize = 8
)

// Header is the fixed container header.
type Header struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < HeaderSize {
		return false
	}
	binary.LittleEndian.PutUint32(dst[0:4], h.Magic)
	binary.LittleEndian.PutUint32(dst[4:8], h.Version)
	binary.LittleEndian.PutUint32(dst[8:12], h.Length)
	return true
}

func decodeHeader(src []byte) (Header, bool) {
	if len(src) < HeaderSize {
		return Header{}, false
	}
	return Header{
		Magic:   binary.LittleEndian.Uint32(src[0:4]),
		Version: binary.LittleEndian.Uint32(src[4:8]),
		Length:  binary.LittleEndian.Uint32(src[8:12]),
	}, true
}
