package glb

import "errors"

var (
	ErrMalformedContainer      = errors.New("glb: malformed container")
	ErrUnsupportedVersion      = errors.New("glb: unsupported container version")
	ErrTruncatedContainer      = errors.New("glb: truncated container")
	ErrChunkOverrun            = errors.New("glb: chunk overruns container")
	ErrInvalidChunkSequence    = errors.New("glb: invalid chunk sequence")
	ErrDescriptorParse         = errors.New("glb: descriptor parse error")
	ErrDescriptorSerialization = errors.New("glb: descriptor serialization error")
	ErrContainerTooLarge       = errors.New("glb: container too large")
)
