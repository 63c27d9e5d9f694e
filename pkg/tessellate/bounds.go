package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/twinscene/pkg/kernel"
	"github.com/chazu/twinscene/pkg/scene"
)

// transformStack accumulates positions during traversal from the roots.
type transformStack struct {
	translations []scene.Vec3
}

func (ts *transformStack) push(v scene.Vec3) {
	ts.translations = append(ts.translations, v)
}

func (ts *transformStack) pop() {
	if len(ts.translations) > 0 {
		ts.translations = ts.translations[:len(ts.translations)-1]
	}
}

// accumulated returns the sum of all translations on the stack.
func (ts *transformStack) accumulated() scene.Vec3 {
	var sum scene.Vec3
	for _, t := range ts.translations {
		sum = sum.Add(t)
	}
	return sum
}

// Bounds is an axis-aligned box in scene space.
type Bounds struct {
	Min, Max [3]float64
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g %g %g]..[%g %g %g]", b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
}

func (b *Bounds) extend(min, max [3]float64) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], min[i])
		b.Max[i] = math.Max(b.Max[i], max[i])
	}
}

// SceneBounds returns the extent of the placeholder geometry reachable from
// the roots of doc. Positions accumulate down the tree; rotation and scale
// are ignored, so the result is a coarse estimate. ok is false when no
// reachable record has geometry.
func SceneBounds(doc *scene.Document, k kernel.Kernel) (b Bounds, ok bool, err error) {
	b = Bounds{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	solids := make(map[Shape]kernel.Solid)
	visited := make([]bool, len(doc.Nodes))
	ts := &transformStack{}

	var walk func(idx scene.NodeIndex) error
	walk = func(idx scene.NodeIndex) error {
		if idx < 0 || int(idx) >= len(doc.Nodes) {
			return fmt.Errorf("bounds: index %d: %w", idx, scene.ErrIndexOutOfRange)
		}
		if visited[idx] {
			return nil
		}
		visited[idx] = true

		r := doc.Nodes[idx]
		ts.push(r.Transform.Position)
		defer ts.pop()

		if shape := ShapeOf(r); shape != ShapeNone {
			solid, found := solids[shape]
			if !found {
				s, err := Solid(k, shape)
				if err != nil {
					return err
				}
				solids[shape] = s
				solid = s
			}
			at := ts.accumulated()
			min, max := k.Translate(solid, at[0], at[1], at[2]).BoundingBox()
			b.extend(min, max)
			ok = true
		}

		for _, child := range r.Children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range doc.RootNodeIndexes {
		if err := walk(root); err != nil {
			return Bounds{}, false, err
		}
	}
	if !ok {
		return Bounds{}, false, nil
	}
	return b, true, nil
}
