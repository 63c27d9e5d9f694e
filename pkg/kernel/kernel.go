// Package kernel defines the geometry kernel used to build placeholder
// shapes for scene previews. The sdfx subpackage provides the
// implementation; the interface keeps callers independent of it.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds solids and converts them to triangle meshes.
type Kernel interface {
	// Primitives, centered on the origin. Cylinders run along Z.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
