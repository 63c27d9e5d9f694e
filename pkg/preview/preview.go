// Package preview exports a scene document as a glTF 2.0 asset so the
// layout can be inspected in any glTF viewer. The first len(doc.Nodes)
// glTF nodes mirror the scene's node array position for position; camera
// nodes follow them.
package preview

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/chazu/twinscene/pkg/scene"
	"github.com/chazu/twinscene/pkg/tessellate"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

var (
	// ErrUnknownFormat is returned for an output path that is neither .glb nor .gltf.
	ErrUnknownFormat = errors.New("unknown preview format")
	// ErrInvalidDocument is returned when the document fails structural validation.
	ErrInvalidDocument = errors.New("invalid scene document")
)

// Format selects the glTF container.
type Format int

const (
	FormatBinary Format = iota // .glb
	FormatJSON                 // .gltf with embedded buffers
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "glb"
	case FormatJSON:
		return "gltf"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb":
		return FormatBinary, nil
	case ".gltf":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("%q: %w", path, ErrUnknownFormat)
	}
}

// cameraYFov is the vertical field of view given to preview cameras.
const cameraYFov = 0.8

// shapeColors are the base colors of the placeholder materials.
var shapeColors = map[string][4]float64{
	tessellate.ShapeBox.String():    {0.6, 0.6, 0.6, 1},
	tessellate.ShapeMarker.String(): {0.29, 0.56, 0.89, 1},
	tessellate.ShapePanel.String():  {0.49, 0.83, 0.13, 1},
}

// Build converts doc into a glTF document. Record i becomes glTF node i
// with the record's children; meshes come from set, which must have been
// produced from the same document. The default glTF scene lists the
// document's roots that are not also children, in order, followed by one
// node per camera.
func Build(doc *scene.Document, set *tessellate.Set) (*gltf.Document, error) {
	for _, f := range scene.Validate(doc) {
		if f.Severity == scene.SeverityError {
			return nil, fmt.Errorf("preview: %w: %s", ErrInvalidDocument, f.Error())
		}
	}
	if set != nil && len(set.Assignments) != len(doc.Nodes) {
		return nil, fmt.Errorf("preview: mesh set covers %d records, document has %d", len(set.Assignments), len(doc.Nodes))
	}

	out := gltf.NewDocument()

	var meshIndex []int
	if set != nil {
		meshIndex = writeMeshes(out, set)
	}

	isChild := make([]bool, len(doc.Nodes))
	for i, r := range doc.Nodes {
		node := &gltf.Node{
			Name:        r.Name,
			Translation: r.Transform.Position,
			Rotation:    EulerToQuaternion(r.Transform.Rotation),
			Scale:       r.Transform.Scale,
			Extras: map[string]any{
				"kind":  r.Kind.String(),
				"index": i,
			},
		}
		for _, c := range r.Children {
			node.Children = append(node.Children, int(c))
			isChild[c] = true
		}
		if set != nil {
			if m := set.Assignments[i]; m >= 0 {
				node.Mesh = gltf.Index(meshIndex[m])
			}
		}
		out.Nodes = append(out.Nodes, node)
	}

	roots := make([]int, 0, len(doc.RootNodeIndexes)+len(doc.Cameras))
	listed := make(map[scene.NodeIndex]bool, len(doc.RootNodeIndexes))
	for _, root := range doc.RootNodeIndexes {
		if isChild[root] || listed[root] {
			continue
		}
		listed[root] = true
		roots = append(roots, int(root))
	}

	for _, c := range doc.Cameras {
		out.Cameras = append(out.Cameras, &gltf.Camera{
			Name: c.Name,
			Perspective: &gltf.Perspective{
				Yfov:  cameraYFov,
				Znear: 0.01,
			},
		})
		out.Nodes = append(out.Nodes, &gltf.Node{
			Name:        c.Name,
			Camera:      gltf.Index(len(out.Cameras) - 1),
			Translation: c.Transform.Position,
			Rotation:    EulerToQuaternion(c.Transform.Rotation),
			Scale:       c.Transform.Scale,
			Extras: map[string]any{
				"kind":        scene.ComponentCamera,
				"cameraIndex": c.Component.CameraIndex,
			},
		})
		roots = append(roots, len(out.Nodes)-1)
	}

	out.Scenes[0].Nodes = roots
	return out, nil
}

// writeMeshes stores every mesh of set in out and returns the glTF mesh
// index for each entry of set.Meshes.
func writeMeshes(out *gltf.Document, set *tessellate.Set) []int {
	indexes := make([]int, len(set.Meshes))
	for i, m := range set.Meshes {
		material := len(out.Materials)
		color, ok := shapeColors[m.Name]
		if !ok {
			color = [4]float64{1, 1, 1, 1}
		}
		out.Materials = append(out.Materials, &gltf.Material{
			Name: m.Name,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &color,
			},
		})

		positions := modeler.WritePosition(out, m.Positions())
		normals := modeler.WriteNormal(out, m.NormalVectors())
		indices := modeler.WriteIndices(out, m.Indices)

		out.Meshes = append(out.Meshes, &gltf.Mesh{
			Name: m.Name,
			Primitives: []*gltf.Primitive{{
				Indices: gltf.Index(indices),
				Attributes: gltf.PrimitiveAttributes{
					gltf.POSITION: positions,
					gltf.NORMAL:   normals,
				},
				Material: gltf.Index(material),
			}},
		})
		indexes[i] = len(out.Meshes) - 1
	}
	return indexes
}

// Write encodes doc to w in format f.
func Write(w io.Writer, doc *gltf.Document, f Format) error {
	enc := gltf.NewEncoder(w)
	switch f {
	case FormatBinary:
		enc.AsBinary = true
	case FormatJSON:
		enc.AsBinary = false
		enc.SetJSONIndent("", "  ")
		for _, b := range doc.Buffers {
			if b.URI == "" {
				b.EmbeddedResource()
			}
		}
	default:
		return fmt.Errorf("preview: %s: %w", f, ErrUnknownFormat)
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("preview: encode %s: %w", f, err)
	}
	return nil
}

// EulerToQuaternion converts XYZ Euler angles in radians (X applied first)
// to a unit quaternion in glTF order [x, y, z, w].
func EulerToQuaternion(r scene.Vec3) [4]float64 {
	sx, cx := math.Sincos(r[0] / 2)
	sy, cy := math.Sincos(r[1] / 2)
	sz, cz := math.Sincos(r[2] / 2)

	// q = qz * qy * qx
	return [4]float64{
		sx*cy*cz - cx*sy*sz,
		cx*sy*cz + sx*cy*sz,
		cx*cy*sz - sx*sy*cz,
		cx*cy*cz + sx*sy*sz,
	}
}
