package glb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/glbkit/pkg/scene"
)

// Decode recovers the scene descriptor and binary payload from a container.
// The payload is returned with its chunk padding (nil when absent) and never
// aliases data. Bytes past the declared total length are ignored.
func Decode(data []byte) (*scene.Document, []byte, error) {
	c, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return c.Decode()
}

// Decode parses the descriptor chunk of an already parsed container.
func (c *Container) Decode() (*scene.Document, []byte, error) {
	doc, err := scene.Unmarshal(c.Descriptor())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDescriptorParse, err)
	}
	return doc, c.Binary(), nil
}

// Parse validates the container layout and copies every chunk out of data.
// It does not parse the descriptor text.
func Parse(data []byte) (*Container, error) {
	hdr, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if uint64(hdr.Length) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: header declares %d bytes, have %d", ErrTruncatedContainer, hdr.Length, len(data))
	}

	end := int(hdr.Length)
	buf := data[:end]
	var chunks []Chunk
	for off := HeaderSize; off < end; {
		if end-off < ChunkHeaderSize {
			return nil, fmt.Errorf("%w: %d trailing bytes at offset %d cannot hold a chunk header", ErrChunkOverrun, end-off, off)
		}
		ch, err := ReadChunkHeader(buf, off)
		if err != nil {
			return nil, err
		}
		if ch.Length%4 != 0 {
			return nil, fmt.Errorf("%w: chunk %s at offset %d has unaligned length %d", ErrMalformedContainer, ch.Type, off, ch.Length)
		}
		start := off + ChunkHeaderSize
		if uint64(ch.Length) > uint64(end-start) {
			return nil, fmt.Errorf("%w: chunk %s at offset %d needs %d bytes, %d remain", ErrChunkOverrun, ch.Type, off, ch.Length, end-start)
		}
		stop := start + int(ch.Length)
		chunks = append(chunks, Chunk{
			Type:   ch.Type,
			Offset: off,
			Length: ch.Length,
			Data:   bytes.Clone(buf[start:stop]),
		})
		off = stop
	}

	if err := checkSequence(chunks); err != nil {
		return nil, err
	}
	return &Container{Chunks: chunks}, nil
}

// parseHeader checks magic, version and the minimum declared length.
// Input shorter than a header is reported as truncated when what is present
// is consistent with the magic.
func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		var magic [4]byte
		binary.LittleEndian.PutUint32(magic[:], Magic)
		n := min(len(data), len(magic))
		if !bytes.Equal(data[:n], magic[:n]) {
			return Header{}, fmt.Errorf("%w: bad magic", ErrMalformedContainer)
		}
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the %d-byte header", ErrTruncatedContainer, len(data), HeaderSize)
	}
	hdr, _ := decodeHeader(data)
	if hdr.Magic != Magic {
		return Header{}, fmt.Errorf("%w: bad magic 0x%08X", ErrMalformedContainer, hdr.Magic)
	}
	if hdr.Version != Version {
		return Header{}, fmt.Errorf("%w: version %d (supported: %d)", ErrUnsupportedVersion, hdr.Version, Version)
	}
	if hdr.Length < HeaderSize {
		return Header{}, fmt.Errorf("%w: declared length %d is shorter than the header", ErrMalformedContainer, hdr.Length)
	}
	return hdr, nil
}

// TrimPayload cuts the padded payload returned by Decode down to the byte
// length declared by buffer 0, when buffer 0 is stored in the container.
// Otherwise bin is returned unchanged.
func TrimPayload(doc *scene.Document, bin []byte) []byte {
	if doc == nil || len(doc.Buffers) == 0 || doc.Buffers[0].URI != "" {
		return bin
	}
	n := doc.Buffers[0].ByteLength
	if n < 0 || n > len(bin) {
		return bin
	}
	if n == 0 {
		return nil
	}
	return bin[:n]
}
