package glb

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ChunkType is the 4-byte chunk tag.
type ChunkType uint32

const (
	ChunkJSON ChunkType = 0x4E4F534A // "JSON"
	ChunkBIN  ChunkType = 0x004E4942 // "BIN\0"
)

// ChunkKind is the closed set of chunk variants a decoder distinguishes.
type ChunkKind uint8

const (
	KindUnknown ChunkKind = iota
	KindDescriptor
	KindBinary
)

func (t ChunkType) Kind() ChunkKind {
	switch t {
	case ChunkJSON:
		return KindDescriptor
	case ChunkBIN:
		return KindBinary
	default:
		return KindUnknown
	}
}

// String renders the tag as text when it is printable ASCII, else as hex.
func (t ChunkType) String() string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(t))
	tag := strings.TrimRight(string(b[:]), "\x00")
	if tag == "" {
		return fmt.Sprintf("0x%08X", uint32(t))
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] < 0x20 || tag[i] > 0x7E {
			return fmt.Sprintf("0x%08X", uint32(t))
		}
	}
	return tag
}

// padByte is the filler written after the payload up to the aligned length.
func (t ChunkType) padByte() byte {
	if t == ChunkJSON {
		return ' '
	}
	return 0
}

// ChunkHeader is the 8-byte prefix of every chunk.
type ChunkHeader struct {
	Length uint32 // padded payload length, a multiple of 4
	Type   ChunkType
}

// Chunk is a decoded chunk record. Offset is the position of the chunk
// header inside the container and Length the padded payload length as
// stored; both are informational and ignored by Container.Marshal.
// Data is owned by the Chunk and includes trailing pad bytes when decoded.
type Chunk struct {
	Type   ChunkType
	Offset int
	Length uint32
	Data   []byte
}

func (c Chunk) Kind() ChunkKind { return c.Type.Kind() }

// Align4 returns the smallest multiple of 4 that is >= n.
func Align4(n int) int {
	return (n + 3) &^ 3
}

// writeChunk writes a chunk header, payload and padding at off and returns
// the offset following the chunk. buf must have room for
// ChunkHeaderSize+Align4(len(payload)) bytes at off.
func writeChunk(buf []byte, off int, typ ChunkType, payload []byte, pad byte) int {
	padded := Align4(len(payload))
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(padded))
	binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(typ))
	off += ChunkHeaderSize
	n := copy(buf[off:off+padded], payload)
	for i := off + n; i < off+padded; i++ {
		buf[i] = pad
	}
	return off + padded
}

// ReadChunkHeader reads the 8-byte chunk header at off.
func ReadChunkHeader(buf []byte, off int) (ChunkHeader, error) {
	if off < 0 || off > len(buf)-ChunkHeaderSize {
		return ChunkHeader{}, fmt.Errorf("%w: chunk header at offset %d exceeds %d-byte buffer", ErrMalformedContainer, off, len(buf))
	}
	return ChunkHeader{
		Length: binary.LittleEndian.Uint32(buf[off : off+4]),
		Type:   ChunkType(binary.LittleEndian.Uint32(buf[off+4 : off+8])),
	}, nil
}
