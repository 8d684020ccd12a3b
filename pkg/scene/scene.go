// Package scene models the glTF scene descriptor stored in the JSON chunk of
// a binary glTF container.
//
// Only the members the container needs to reason about are typed: nodes,
// meshes, primitives, accessors, buffer views, buffers and scenes. Every
// other top-level member (materials, textures, animations, skins, extension
// blocks) is carried verbatim in Document.Extras so that a decode/encode
// cycle never drops content this package does not interpret.
package scene

import (
	"errors"

	json "github.com/goccy/go-json"
)

var ErrNilDocument = errors.New("scene: nil document")

// AttributePosition is the primitive attribute every renderable primitive must carry.
const AttributePosition = "POSITION"

// ComponentType is the numeric type of a single accessor component.
type ComponentType int

const (
	ComponentByte          ComponentType = 5120
	ComponentUnsignedByte  ComponentType = 5121
	ComponentShort         ComponentType = 5122
	ComponentUnsignedShort ComponentType = 5123
	ComponentUnsignedInt   ComponentType = 5125
	ComponentFloat         ComponentType = 5126
)

// Size returns the byte size of one component, or 0 for unknown types.
func (c ComponentType) Size() int {
	switch c {
	case ComponentByte, ComponentUnsignedByte:
		return 1
	case ComponentShort, ComponentUnsignedShort:
		return 2
	case ComponentUnsignedInt, ComponentFloat:
		return 4
	default:
		return 0
	}
}

func (c ComponentType) Known() bool { return c.Size() != 0 }

// AccessorType is the element shape of an accessor.
type AccessorType string

const (
	TypeScalar AccessorType = "SCALAR"
	TypeVec2   AccessorType = "VEC2"
	TypeVec3   AccessorType = "VEC3"
	TypeVec4   AccessorType = "VEC4"
	TypeMat2   AccessorType = "MAT2"
	TypeMat3   AccessorType = "MAT3"
	TypeMat4   AccessorType = "MAT4"
)

// Components returns the number of components per element, or 0 for unknown types.
func (t AccessorType) Components() int {
	switch t {
	case TypeScalar:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4, TypeMat2:
		return 4
	case TypeMat3:
		return 9
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

func (t AccessorType) Known() bool { return t.Components() != 0 }

// Target is the optional GPU usage hint of a buffer view.
type Target int

const (
	TargetNone         Target = 0
	TargetArrayBuffer  Target = 34962
	TargetElementArray Target = 34963
)

func (t Target) Known() bool {
	return t == TargetNone || t == TargetArrayBuffer || t == TargetElementArray
}

// Document is the root of a scene descriptor.
type Document struct {
	Asset       Asset        `json:"asset"`
	Scene       *int         `json:"scene,omitempty"`
	Scenes      []Scene      `json:"scenes,omitempty"`
	Nodes       []Node       `json:"nodes,omitempty"`
	Meshes      []Mesh       `json:"meshes,omitempty"`
	Accessors   []Accessor   `json:"accessors,omitempty"`
	BufferViews []BufferView `json:"bufferViews,omitempty"`
	Buffers     []Buffer     `json:"buffers,omitempty"`

	// Extras holds top-level members that are not modelled above, keyed by
	// member name. Keys that collide with a modelled member are ignored on
	// output.
	Extras map[string]json.RawMessage `json:"-"`
}

type Asset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
	Copyright  string `json:"copyright,omitempty"`
}

type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
	Weights    []float64   `json:"weights,omitempty"`
}

// Primitive maps attribute semantics (POSITION, NORMAL, TEXCOORD_0, ...) to
// accessor indices.
type Primitive struct {
	Attributes map[string]int   `json:"attributes"`
	Indices    *int             `json:"indices,omitempty"`
	Material   *int             `json:"material,omitempty"`
	Mode       *int             `json:"mode,omitempty"`
	Targets    []map[string]int `json:"targets,omitempty"`
}

type Accessor struct {
	Name          string        `json:"name,omitempty"`
	BufferView    *int          `json:"bufferView,omitempty"`
	ByteOffset    int           `json:"byteOffset,omitempty"`
	ComponentType ComponentType `json:"componentType"`
	Normalized    bool          `json:"normalized,omitempty"`
	Count         int           `json:"count"`
	Type          AccessorType  `json:"type"`
	Min           []float64     `json:"min,omitempty"`
	Max           []float64     `json:"max,omitempty"`
}

// ElementSize is the packed byte size of one element, or 0 when the type or
// component type is unknown.
func (a Accessor) ElementSize() int {
	return a.Type.Components() * a.ComponentType.Size()
}

// BufferView is a byte window into a buffer. Buffer 0 without a URI is the
// binary payload of the container.
type BufferView struct {
	Name       string `json:"name,omitempty"`
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride,omitempty"`
	Target     Target `json:"target,omitempty"`
}

type Buffer struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

// Index returns a pointer to i, for filling optional references.
func Index(i int) *int { return &i }
