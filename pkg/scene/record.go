package scene

import (
	"bytes"
	"encoding/json"
)

// Vec3 is an [x, y, z] triple. It encodes as a JSON array.
type Vec3 [3]float64

// Add returns the component-wise sum of v and o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool {
	return v == Vec3{}
}

// Transform places an entity relative to its parent.
// Rotation is XYZ Euler angles in radians.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
	Scale    Vec3 `json:"scale"`
}

// DefaultTransform returns the identity transform: origin, no rotation, unit scale.
func DefaultTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// transformOrDefault dereferences t, falling back to DefaultTransform.
func transformOrDefault(t *Transform) Transform {
	if t == nil {
		return DefaultTransform()
	}
	return *t
}

// NodeIndex is a position in a scene's flat node array.
type NodeIndex int

// RecordKind distinguishes the entities stored in the node array.
type RecordKind int

const (
	KindNode            RecordKind = iota // tree node, may have children
	KindTag                               // data overlay tag
	KindMotionIndicator                   // animated flow indicator
)

func (k RecordKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindTag:
		return "tag"
	case KindMotionIndicator:
		return "motion-indicator"
	default:
		return "unknown"
	}
}

// Record is the serialized form of an entity in the node array.
// Children holds resolved positions; it is only emitted for KindNode.
type Record struct {
	Kind       RecordKind
	Name       string
	Transform  Transform
	Children   []NodeIndex
	Components []Component
	Properties map[string]any
}

// HasChildren reports whether the record's kind carries a children list.
func (r Record) HasChildren() bool {
	return r.Kind == KindNode
}

// MarshalJSON encodes the record in the document's node shape.
// Empty collections encode as [] and {}, never null.
func (r Record) MarshalJSON() ([]byte, error) {
	type recordJSON struct {
		Name                string         `json:"name"`
		Transform           Transform      `json:"transform"`
		TransformConstraint struct{}       `json:"transformConstraint"`
		Children            *[]NodeIndex   `json:"children,omitempty"`
		Components          []Component    `json:"components"`
		Properties          map[string]any `json:"properties"`
	}
	out := recordJSON{
		Name:       r.Name,
		Transform:  r.Transform,
		Components: r.Components,
		Properties: r.Properties,
	}
	if out.Components == nil {
		out.Components = []Component{}
	}
	if out.Properties == nil {
		out.Properties = map[string]any{}
	}
	if r.HasChildren() {
		children := r.Children
		if children == nil {
			children = []NodeIndex{}
		}
		out.Children = &children
	}
	return encode(out)
}

// clone returns a copy of r that shares no mutable state with it.
func (r Record) clone() Record {
	c := r
	if r.Children != nil {
		c.Children = append([]NodeIndex{}, r.Children...)
	}
	if r.Components != nil {
		c.Components = append([]Component{}, r.Components...)
	}
	c.Properties = cloneProperties(r.Properties)
	return c
}

// cloneProperties deep-copies a free-form property map. Nested maps and
// slices are copied; other values are immutable or treated as such.
func cloneProperties(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneProperties(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string{}, t...)
	case []float64:
		return append([]float64{}, t...)
	default:
		return v
	}
}

// encode marshals v without HTML escaping, leaving the caller's encoder
// to decide whether <, > and & are escaped in the final output.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
