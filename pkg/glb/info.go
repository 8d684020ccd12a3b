package glb

// ChunkInfo describes one chunk without its data.
type ChunkInfo struct {
	Index  int    `json:"index"`
	Type   string `json:"type"`
	Kind   string `json:"kind"`
	Offset int    `json:"offset"`
	Length uint32 `json:"length"`
}

// Info is the layout of a container: what an inspector prints.
type Info struct {
	Magic   string      `json:"magic"`
	Version uint32      `json:"version"`
	Length  uint64      `json:"length"`
	Chunks  []ChunkInfo `json:"chunks"`
}

func (k ChunkKind) String() string {
	switch k {
	case KindDescriptor:
		return "descriptor"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Info reports the layout c would have when marshalled. Offsets are
// recomputed so constructed containers report the same table as parsed ones.
func (c *Container) Info() Info {
	info := Info{
		Magic:   "glTF",
		Version: Version,
		Length:  c.Size(),
		Chunks:  make([]ChunkInfo, 0, len(c.Chunks)),
	}
	off := HeaderSize
	for i := range c.Chunks {
		ch := &c.Chunks[i]
		n := uint32(Align4(len(ch.Data)))
		info.Chunks = append(info.Chunks, ChunkInfo{
			Index:  i,
			Type:   ch.Type.String(),
			Kind:   ch.Kind().String(),
			Offset: off,
			Length: n,
		})
		off += ChunkHeaderSize + int(n)
	}
	return info
}
