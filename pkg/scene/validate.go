package scene

import (
	"fmt"
	"slices"
	"strings"
)

// Code classifies a validation issue.
type Code string

const (
	CodeNilDocument            Code = "nil-document"
	CodeMissingAssetVersion    Code = "missing-asset-version"
	CodeMissingScene           Code = "missing-scene"
	CodeUnresolvedReference    Code = "unresolved-reference"
	CodeTransformConflict      Code = "transform-conflict"
	CodeEmptyMesh              Code = "empty-mesh"
	CodeMissingPosition        Code = "missing-position"
	CodeNegativeCount          Code = "negative-count"
	CodeUnknownAccessorType    Code = "unknown-accessor-type"
	CodeUnknownComponentType   Code = "unknown-component-type"
	CodeAttributeCountMismatch Code = "attribute-count-mismatch"
	CodeAccessorOutOfBounds    Code = "accessor-out-of-bounds"
	CodeInvalidBufferView      Code = "invalid-buffer-view"
	CodePayloadMismatch        Code = "payload-mismatch"
)

// Issue is a single structural finding. Pointer is a JSON pointer to the
// offending entity, eg "/meshes/0/primitives/1".
type Issue struct {
	Code    Code   `json:"code"`
	Pointer string `json:"pointer"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Pointer == "" {
		return i.Message
	}
	return i.Pointer + ": " + i.Message
}

// Validate checks doc for referential and shape invariants. It never fails;
// every check runs and contributes its own issues, in document order.
// A nil result means the document is valid.
func Validate(doc *Document) []Issue {
	if doc == nil {
		return []Issue{{Code: CodeNilDocument, Message: "document is nil"}}
	}
	v := &validator{doc: doc}
	v.checkAsset()
	v.checkScenes()
	v.checkNodes()
	v.checkMeshes()
	v.checkAccessors()
	v.checkBufferViews()
	return v.issues
}

// ValidatePayload runs Validate and additionally checks buffer 0, when it is
// stored in the container (no URI), against the binary payload bin.
func ValidatePayload(doc *Document, bin []byte) []Issue {
	issues := Validate(doc)
	if doc == nil {
		return issues
	}
	v := &validator{doc: doc, issues: issues}
	v.checkPayload(len(bin))
	return v.issues
}

type validator struct {
	doc    *Document
	issues []Issue
}

func (v *validator) add(code Code, pointer string, format string, args ...any) {
	v.issues = append(v.issues, Issue{
		Code:    code,
		Pointer: pointer,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) ref(pointer, kind string, idx, n int) bool {
	if idx >= 0 && idx < n {
		return true
	}
	v.add(CodeUnresolvedReference, pointer, "%s index %d out of range (have %d)", kind, idx, n)
	return false
}

func (v *validator) checkAsset() {
	if strings.TrimSpace(v.doc.Asset.Version) == "" {
		v.add(CodeMissingAssetVersion, "/asset/version", "asset version is required")
	}
}

func (v *validator) checkScenes() {
	d := v.doc
	if d.Scene == nil && len(d.Scenes) == 0 {
		v.add(CodeMissingScene, "/scene", "document has no scene or root reference")
	}
	if d.Scene != nil {
		v.ref("/scene", "scene", *d.Scene, len(d.Scenes))
	}
	for i, s := range d.Scenes {
		for j, n := range s.Nodes {
			v.ref(fmt.Sprintf("/scenes/%d/nodes/%d", i, j), "node", n, len(d.Nodes))
		}
	}
}

func (v *validator) checkNodes() {
	d := v.doc
	for i := range d.Nodes {
		n := &d.Nodes[i]
		base := fmt.Sprintf("/nodes/%d", i)
		if n.HasTransformConflict() {
			v.add(CodeTransformConflict, base, "node specifies both matrix and translation/rotation/scale")
		}
		if n.Mesh != nil {
			v.ref(base+"/mesh", "mesh", *n.Mesh, len(d.Meshes))
		}
		for j, c := range n.Children {
			v.ref(fmt.Sprintf("%s/children/%d", base, j), "node", c, len(d.Nodes))
		}
	}
}

func (v *validator) checkMeshes() {
	d := v.doc
	for i, m := range d.Meshes {
		if len(m.Primitives) == 0 {
			v.add(CodeEmptyMesh, fmt.Sprintf("/meshes/%d", i), "mesh has no primitives")
			continue
		}
		for j, p := range m.Primitives {
			v.checkPrimitive(fmt.Sprintf("/meshes/%d/primitives/%d", i, j), p)
		}
	}
}

func (v *validator) checkPrimitive(base string, p Primitive) {
	d := v.doc
	if _, ok := p.Attributes[AttributePosition]; !ok {
		v.add(CodeMissingPosition, base, "primitive has no %s attribute", AttributePosition)
	}

	names := sortedKeys(p.Attributes)
	counts := make([]string, 0, len(names))
	first := -1
	mismatch := false
	for _, name := range names {
		idx := p.Attributes[name]
		if !v.ref(base+"/attributes/"+name, "accessor", idx, len(d.Accessors)) {
			continue
		}
		count := d.Accessors[idx].Count
		counts = append(counts, fmt.Sprintf("%s=%d", name, count))
		if first < 0 {
			first = count
		} else if count != first {
			mismatch = true
		}
	}
	if mismatch {
		v.add(CodeAttributeCountMismatch, base, "attribute accessors have differing counts (%s)", strings.Join(counts, ", "))
	}

	if p.Indices != nil {
		v.ref(base+"/indices", "accessor", *p.Indices, len(d.Accessors))
	}
	for t, target := range p.Targets {
		for _, name := range sortedKeys(target) {
			v.ref(fmt.Sprintf("%s/targets/%d/%s", base, t, name), "accessor", target[name], len(d.Accessors))
		}
	}
}

func (v *validator) checkAccessors() {
	d := v.doc
	for i, a := range d.Accessors {
		base := fmt.Sprintf("/accessors/%d", i)
		if a.Count < 0 {
			v.add(CodeNegativeCount, base+"/count", "count %d is negative", a.Count)
		}
		if !a.Type.Known() {
			v.add(CodeUnknownAccessorType, base+"/type", "unrecognised element type %q", a.Type)
		}
		if !a.ComponentType.Known() {
			v.add(CodeUnknownComponentType, base+"/componentType", "unrecognised component type %d", a.ComponentType)
		}
		if a.ByteOffset < 0 {
			v.add(CodeAccessorOutOfBounds, base+"/byteOffset", "byte offset %d is negative", a.ByteOffset)
		}
		if a.BufferView == nil {
			continue
		}
		if !v.ref(base+"/bufferView", "bufferView", *a.BufferView, len(d.BufferViews)) {
			continue
		}
		elem := a.ElementSize()
		if elem == 0 || a.Count <= 0 || a.ByteOffset < 0 {
			continue
		}
		view := d.BufferViews[*a.BufferView]
		stride := elem
		if view.ByteStride > 0 {
			stride = view.ByteStride
		}
		if !accessorFits(a.ByteOffset, a.Count, elem, stride, view.ByteLength) {
			v.add(CodeAccessorOutOfBounds, base, "%d elements of %d bytes (stride %d) from offset %d overrun bufferView %d of %d bytes",
				a.Count, elem, stride, a.ByteOffset, *a.BufferView, view.ByteLength)
		}
	}
}

func (v *validator) checkBufferViews() {
	d := v.doc
	for i, bv := range d.BufferViews {
		base := fmt.Sprintf("/bufferViews/%d", i)
		if bv.ByteOffset < 0 || bv.ByteLength < 0 {
			v.add(CodeInvalidBufferView, base, "negative byte range (offset %d, length %d)", bv.ByteOffset, bv.ByteLength)
		}
		if bv.ByteStride != 0 && (bv.ByteStride < 4 || bv.ByteStride > 252 || bv.ByteStride%4 != 0) {
			v.add(CodeInvalidBufferView, base+"/byteStride", "byte stride %d must be a multiple of 4 in [4, 252]", bv.ByteStride)
		}
		if !bv.Target.Known() {
			v.add(CodeInvalidBufferView, base+"/target", "unrecognised target %d", bv.Target)
		}
		if !v.ref(base+"/buffer", "buffer", bv.Buffer, len(d.Buffers)) {
			continue
		}
		if bv.ByteOffset < 0 || bv.ByteLength < 0 {
			continue
		}
		if size := d.Buffers[bv.Buffer].ByteLength; !fits(bv.ByteOffset, bv.ByteLength, size) {
			v.add(CodeInvalidBufferView, base, "%d bytes at offset %d overrun buffer %d of %d bytes", bv.ByteLength, bv.ByteOffset, bv.Buffer, size)
		}
	}
}

func (v *validator) checkPayload(n int) {
	d := v.doc
	if len(d.Buffers) == 0 || d.Buffers[0].URI != "" {
		if n > 0 {
			v.add(CodePayloadMismatch, "/buffers", "binary payload of %d bytes is not referenced by buffer 0", n)
		}
		return
	}
	if d.Buffers[0].ByteLength > n {
		v.add(CodePayloadMismatch, "/buffers/0/byteLength", "buffer declares %d bytes but payload has %d", d.Buffers[0].ByteLength, n)
	}
	for i, bv := range d.BufferViews {
		if bv.Buffer != 0 || bv.ByteOffset < 0 || bv.ByteLength < 0 {
			continue
		}
		if !fits(bv.ByteOffset, bv.ByteLength, n) {
			v.add(CodePayloadMismatch, fmt.Sprintf("/bufferViews/%d", i), "%d bytes at offset %d overrun payload of %d bytes", bv.ByteLength, bv.ByteOffset, n)
		}
	}
}

// fits reports whether [off, off+length) lies within [0, size). It never
// sums its operands, so hostile values cannot wrap.
func fits(off, length, size int) bool {
	return off >= 0 && length >= 0 && off <= size && length <= size-off
}

// accessorFits reports whether count elements of elem bytes, stride bytes
// apart and starting at off, fit in size bytes. stride must be positive.
func accessorFits(off, count, elem, stride, size int) bool {
	if count <= 0 {
		return true
	}
	if !fits(off, elem, size) {
		return false
	}
	return count-1 <= (size-off-elem)/stride
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
