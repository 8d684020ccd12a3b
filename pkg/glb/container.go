package glb

import (
	"bytes"
	"fmt"
	"math"
)

// Container is an ordered list of chunks. A valid container holds exactly
// one descriptor chunk, which precedes the optional binary chunk; unknown
// chunks may appear anywhere.
type Container struct {
	Chunks []Chunk
}

// Descriptor returns the descriptor chunk text with trailing pad bytes
// removed, or nil when there is none.
func (c *Container) Descriptor() []byte {
	for i := range c.Chunks {
		if c.Chunks[i].Kind() == KindDescriptor {
			return bytes.TrimRight(c.Chunks[i].Data, " ")
		}
	}
	return nil
}

// Binary returns the binary chunk contents as stored, padding included.
// An absent or empty binary chunk yields nil.
func (c *Container) Binary() []byte {
	for i := range c.Chunks {
		if c.Chunks[i].Kind() == KindBinary {
			if len(c.Chunks[i].Data) == 0 {
				return nil
			}
			return c.Chunks[i].Data
		}
	}
	return nil
}

// Unknown returns the chunks whose type this package does not interpret.
func (c *Container) Unknown() []Chunk {
	var out []Chunk
	for i := range c.Chunks {
		if c.Chunks[i].Kind() == KindUnknown {
			out = append(out, c.Chunks[i])
		}
	}
	return out
}

// Size returns the encoded byte length of the container.
func (c *Container) Size() uint64 {
	total := uint64(HeaderSize)
	for i := range c.Chunks {
		total += ChunkHeaderSize + uint64(Align4(len(c.Chunks[i].Data)))
	}
	return total
}

// Marshal encodes the chunks in order. Unknown chunks are re-emitted
// unchanged; every chunk is padded to a 4-byte boundary.
func (c *Container) Marshal() ([]byte, error) {
	if err := checkSequence(c.Chunks); err != nil {
		return nil, err
	}
	total := c.Size()
	if total > math.MaxUint32 || total > uint64(math.MaxInt) {
		return nil, fmt.Errorf("%w: %d bytes exceeds the 32-bit length field", ErrContainerTooLarge, total)
	}

	out := make([]byte, int(total))
	encodeHeader(out, Header{Magic: Magic, Version: Version, Length: uint32(total)})
	off := HeaderSize
	for i := range c.Chunks {
		ch := &c.Chunks[i]
		off = writeChunk(out, off, ch.Type, ch.Data, ch.Type.padByte())
	}
	return out, nil
}

func checkSequence(chunks []Chunk) error {
	descriptors, binaries := 0, 0
	for i := range chunks {
		switch chunks[i].Kind() {
		case KindDescriptor:
			descriptors++
			if descriptors > 1 {
				return fmt.Errorf("%w: more than one descriptor chunk (chunk %d)", ErrInvalidChunkSequence, i)
			}
		case KindBinary:
			if descriptors == 0 {
				return fmt.Errorf("%w: binary chunk %d precedes the descriptor chunk", ErrInvalidChunkSequence, i)
			}
			binaries++
			if binaries > 1 {
				return fmt.Errorf("%w: more than one binary chunk (chunk %d)", ErrInvalidChunkSequence, i)
			}
		}
	}
	if descriptors == 0 {
		return fmt.Errorf("%w: no descriptor chunk", ErrInvalidChunkSequence)
	}
	return nil
}
