package glb

import (
	"fmt"

	"github.com/samcharles93/glbkit/pkg/scene"
)

// Encode packs doc and an optional binary payload into a new container.
//
// The output length always equals the header's total length. The binary
// chunk is written only for a non-empty payload; an empty payload is
// treated as absent. Encode does not validate doc.
func Encode(doc *scene.Document, bin []byte) ([]byte, error) {
	js, err := scene.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescriptorSerialization, err)
	}
	return EncodeRaw(js, bin)
}

// EncodeRaw packs an already serialised descriptor and an optional payload.
// The descriptor text is written as given; it is not parsed.
func EncodeRaw(descriptor, bin []byte) ([]byte, error) {
	c := Container{Chunks: make([]Chunk, 1, 2)}
	c.Chunks[0] = Chunk{Type: ChunkJSON, Data: descriptor}
	if len(bin) > 0 {
		c.Chunks = append(c.Chunks, Chunk{Type: ChunkBIN, Data: bin})
	}
	return c.Marshal()
}
