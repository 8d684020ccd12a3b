package scene

import (
	json "github.com/goccy/go-json"
)

// Transform is the local transform of a node. It has exactly two variants,
// Matrix and TRS; a nil Transform is the identity.
type Transform interface {
	isTransform()
}

// Matrix is a column-major 4x4 composite transform.
type Matrix [16]float64

// TRS is a transform given as separate translation, rotation (unit
// quaternion x, y, z, w) and scale. Nil components take their defaults.
type TRS struct {
	Translation *[3]float64
	Rotation    *[4]float64
	Scale       *[3]float64
}

func (Matrix) isTransform() {}
func (TRS) isTransform()    {}

func (t TRS) empty() bool {
	return t.Translation == nil && t.Rotation == nil && t.Scale == nil
}

// Node is an element of the scene hierarchy.
type Node struct {
	Name      string
	Mesh      *int
	Camera    *int
	Skin      *int
	Children  []int
	Weights   []float64
	Transform Transform

	// shadowed keeps TRS components that were decoded alongside a matrix.
	// The matrix wins; Validate reports the conflict.
	shadowed *TRS
}

type nodeJSON struct {
	Name        string       `json:"name,omitempty"`
	Camera      *int         `json:"camera,omitempty"`
	Children    []int        `json:"children,omitempty"`
	Skin        *int         `json:"skin,omitempty"`
	Matrix      *[16]float64 `json:"matrix,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Rotation    *[4]float64  `json:"rotation,omitempty"`
	Scale       *[3]float64  `json:"scale,omitempty"`
	Translation *[3]float64  `json:"translation,omitempty"`
	Weights     []float64    `json:"weights,omitempty"`
}

// MarshalJSON writes the node's transform form. An empty TRS writes none.
// Components shadowed by a decoded matrix are written back next to it so
// the conflict survives a round trip.
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		Name:     n.Name,
		Camera:   n.Camera,
		Children: n.Children,
		Skin:     n.Skin,
		Mesh:     n.Mesh,
		Weights:  n.Weights,
	}
	switch t := n.Transform.(type) {
	case Matrix:
		m := [16]float64(t)
		out.Matrix = &m
		n.writeShadowed(&out)
	case *Matrix:
		if t != nil {
			m := [16]float64(*t)
			out.Matrix = &m
			n.writeShadowed(&out)
		}
	case TRS:
		out.Translation, out.Rotation, out.Scale = t.Translation, t.Rotation, t.Scale
	case *TRS:
		if t != nil {
			out.Translation, out.Rotation, out.Scale = t.Translation, t.Rotation, t.Scale
		}
	}
	return json.Marshal(out)
}

func (n Node) writeShadowed(out *nodeJSON) {
	if n.shadowed != nil {
		out.Translation, out.Rotation, out.Scale = n.shadowed.Translation, n.shadowed.Rotation, n.shadowed.Scale
	}
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*n = Node{
		Name:     in.Name,
		Camera:   in.Camera,
		Children: in.Children,
		Skin:     in.Skin,
		Mesh:     in.Mesh,
		Weights:  in.Weights,
	}
	trs := TRS{Translation: in.Translation, Rotation: in.Rotation, Scale: in.Scale}
	switch {
	case in.Matrix != nil:
		n.Transform = Matrix(*in.Matrix)
		if !trs.empty() {
			n.shadowed = &trs
		}
	case !trs.empty():
		n.Transform = trs
	}
	return nil
}

// HasTransformConflict reports whether the node was decoded with both a
// matrix and separate translation/rotation/scale components.
func (n *Node) HasTransformConflict() bool {
	return n.shadowed != nil
}
