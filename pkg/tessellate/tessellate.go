// Package tessellate builds placeholder triangle meshes for the records of
// a scene document using a geometry kernel. Records that reference a model
// get a box, tags get a marker pin and motion indicators a flat panel.
package tessellate

import (
	"fmt"

	"github.com/chazu/twinscene/pkg/kernel"
	"github.com/chazu/twinscene/pkg/scene"
)

// Shape identifies a placeholder geometry.
type Shape int

const (
	ShapeNone   Shape = iota // record has no geometry
	ShapeBox                 // node with a model reference
	ShapeMarker              // tag
	ShapePanel               // motion indicator
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeBox:
		return "box"
	case ShapeMarker:
		return "marker"
	case ShapePanel:
		return "panel"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ShapeOf returns the placeholder used for r.
func ShapeOf(r scene.Record) Shape {
	switch r.Kind {
	case scene.KindNode:
		for _, c := range r.Components {
			if _, ok := c.(scene.ModelRef); ok {
				return ShapeBox
			}
		}
		return ShapeNone
	case scene.KindTag:
		return ShapeMarker
	case scene.KindMotionIndicator:
		return ShapePanel
	default:
		return ShapeNone
	}
}

// Solid builds the placeholder solid for shape in a unit-sized local frame
// with Y up.
func Solid(k kernel.Kernel, shape Shape) (kernel.Solid, error) {
	switch shape {
	case ShapeBox:
		return k.Box(1, 1, 1), nil
	case ShapeMarker:
		// A pole standing on the origin with a flag at its top.
		pole := k.Rotate(k.Cylinder(0.6, 0.04, 16), -90, 0, 0)
		pole = k.Translate(pole, 0, 0.3, 0)
		flag := k.Translate(k.Box(0.3, 0.2, 0.04), 0.15, 0.5, 0)
		return k.Union(pole, flag), nil
	case ShapePanel:
		return k.Box(1, 0.1, 1), nil
	default:
		return nil, fmt.Errorf("no placeholder solid for shape %s", shape)
	}
}

// Set is the tessellated form of a document. Meshes holds one mesh per
// distinct shape; Assignments maps each record position to an index into
// Meshes, or -1 for records without geometry.
type Set struct {
	Meshes      []*kernel.Mesh
	Assignments []int
}

// MeshFor returns the mesh for the record at idx, or nil.
func (s *Set) MeshFor(idx scene.NodeIndex) *kernel.Mesh {
	if idx < 0 || int(idx) >= len(s.Assignments) {
		return nil
	}
	if m := s.Assignments[idx]; m >= 0 {
		return s.Meshes[m]
	}
	return nil
}

// Tessellate produces placeholder meshes for every record in doc, including
// records no root reaches. Each distinct shape is tessellated once. The
// document is never mutated.
func Tessellate(doc *scene.Document, k kernel.Kernel) (*Set, error) {
	set := &Set{Assignments: make([]int, len(doc.Nodes))}
	byShape := make(map[Shape]int)

	for i, r := range doc.Nodes {
		shape := ShapeOf(r)
		if shape == ShapeNone {
			set.Assignments[i] = -1
			continue
		}
		if m, ok := byShape[shape]; ok {
			set.Assignments[i] = m
			continue
		}

		solid, err := Solid(k, shape)
		if err != nil {
			return nil, fmt.Errorf("tessellate: record %d: %w", i, err)
		}
		mesh, err := k.ToMesh(solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for %s (record %d %q): %w", shape, i, r.Name, err)
		}
		mesh.Name = shape.String()

		byShape[shape] = len(set.Meshes)
		set.Assignments[i] = len(set.Meshes)
		set.Meshes = append(set.Meshes, mesh)
	}

	return set, nil
}
