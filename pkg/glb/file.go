package glb

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/samcharles93/glbkit/pkg/scene"
)

// ReadContainer reads exactly one container from r, consuming the declared
// total length and nothing past it, so r may continue with other data.
// maxSize bounds the declared length; zero or negative means unbounded.
func ReadContainer(r io.Reader, maxSize int64) (*Container, error) {
	var raw [HeaderSize]byte
	n, err := io.ReadFull(r, raw[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			_, perr := parseHeader(raw[:n])
			return nil, perr
		}
		return nil, err
	}
	hdr, err := parseHeader(raw[:])
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int64(hdr.Length) > maxSize {
		return nil, fmt.Errorf("%w: declared length %d exceeds limit %d", ErrContainerTooLarge, hdr.Length, maxSize)
	}

	data := make([]byte, int(hdr.Length))
	copy(data, raw[:])
	if m, err := io.ReadFull(r, data[HeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: header declares %d bytes, stream ended after %d", ErrTruncatedContainer, hdr.Length, HeaderSize+m)
		}
		return nil, err
	}
	return Parse(data)
}

// ParseFile maps a container file read-only and parses it. Chunk data is
// copied out before the mapping is released. If mmap is unavailable it falls
// back to ReadAt-based loading.
func ParseFile(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: file size %d", ErrContainerTooLarge, size64)
	}
	size := int(size64)
	if size < HeaderSize {
		data, err := readAllAt(f, size)
		if err != nil {
			return nil, err
		}
		return Parse(data)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		c, parseErr := Parse(data)
		if uerr := unix.Munmap(data); uerr != nil && parseErr == nil {
			return nil, uerr
		}
		return c, parseErr
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ReadFile parses a container file and decodes its descriptor.
func ReadFile(path string) (*scene.Document, []byte, error) {
	c, err := ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	return c.Decode()
}

// WriteFile encodes doc and bin and writes the container to path.
func WriteFile(path string, doc *scene.Document, bin []byte) error {
	data, err := Encode(doc, bin)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}
