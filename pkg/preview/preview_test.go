package preview

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/chazu/twinscene/pkg/kernel/sdfx"
	"github.com/chazu/twinscene/pkg/scene"
	"github.com/chazu/twinscene/pkg/tessellate"
	"github.com/google/go-cmp/cmp"
	"github.com/qmuntal/gltf"
)

func tessellated(t *testing.T, doc *scene.Document) *tessellate.Set {
	t.Helper()
	set, err := tessellate.Tessellate(doc, sdfx.New(sdfx.WithMeshCells(16)))
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	return set
}

// plant builds a tank with two modeled pumps, a tag under the first pump
// and a camera.
func plant(t *testing.T) *scene.Document {
	t.Helper()
	s := scene.New()
	pumpA := scene.NewNode(scene.NodeConfig{Name: "pump-a"})
	pumpA.AddComponent(scene.ModelRefConfig{})
	pumpB := scene.NewNode(scene.NodeConfig{Name: "pump-b"})
	pumpB.AddComponent(scene.ModelRefConfig{})
	tank := scene.NewNode(scene.NodeConfig{Name: "tank", Children: []*scene.Node{pumpA, pumpB}})
	if _, err := s.AddNode(tank); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddTag(scene.TagConfig{Name: "alarm"}, scene.AttachTo(tank.ChildIndexes[0])); err != nil {
		t.Fatal(err)
	}
	s.AddCamera(scene.CameraConfig{Name: "overview"})
	return s.Document()
}

func TestBuildMirrorsArena(t *testing.T) {
	doc := plant(t)
	out, err := Build(doc, tessellated(t, doc))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(out.Nodes) != len(doc.Nodes)+len(doc.Cameras) {
		t.Fatalf("expected %d glTF nodes, got %d", len(doc.Nodes)+len(doc.Cameras), len(out.Nodes))
	}
	for i, r := range doc.Nodes {
		n := out.Nodes[i]
		if n.Name != r.Name {
			t.Errorf("node %d name = %q, want %q", i, n.Name, r.Name)
		}
		want := make([]int, 0, len(r.Children))
		for _, c := range r.Children {
			want = append(want, int(c))
		}
		if diff := cmp.Diff(want, n.Children, cmp.Transformer("nilToEmpty", func(s []int) []int {
			if s == nil {
				return []int{}
			}
			return s
		})); diff != "" {
			t.Errorf("node %d children (-want +got):\n%s", i, diff)
		}
	}

	if diff := cmp.Diff([]int{0, 4}, out.Scenes[0].Nodes); diff != "" {
		t.Errorf("scene roots (-want +got):\n%s", diff)
	}
	if out.Nodes[4].Camera == nil || *out.Nodes[4].Camera != 0 {
		t.Errorf("camera node = %+v", out.Nodes[4])
	}
}

func TestBuildMeshes(t *testing.T) {
	doc := plant(t)
	out, err := Build(doc, tessellated(t, doc))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// box for both pumps, marker for the tag
	if len(out.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(out.Meshes))
	}
	if out.Nodes[0].Mesh != nil {
		t.Error("tank without a model has a mesh")
	}
	for _, i := range []int{1, 2} {
		if out.Nodes[i].Mesh == nil || out.Meshes[*out.Nodes[i].Mesh].Name != "box" {
			t.Errorf("pump node %d not mapped to the box mesh", i)
		}
	}
	if out.Nodes[3].Mesh == nil || out.Meshes[*out.Nodes[3].Mesh].Name != "marker" {
		t.Error("tag node not mapped to the marker mesh")
	}
	if len(out.Materials) != 2 {
		t.Errorf("expected 2 materials, got %d", len(out.Materials))
	}
}

func TestBuildWithoutMeshes(t *testing.T) {
	doc := scene.Sample().Document()
	out, err := Build(doc, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(out.Meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(out.Meshes))
	}
	// detached tag at 1 is not a root
	if diff := cmp.Diff([]int{0, 2, 3}, out.Scenes[0].Nodes); diff != "" {
		t.Errorf("scene roots (-want +got):\n%s", diff)
	}
}

func TestBuildSkipsRootThatIsChild(t *testing.T) {
	s := scene.New()
	child := scene.NewNode(scene.NodeConfig{Name: "child"})
	if _, err := s.AddNode(scene.NewNode(scene.NodeConfig{Children: []*scene.Node{child}})); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRootNodeIndex(1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRootNodeIndex(0); err != nil {
		t.Fatal(err)
	}

	out, err := Build(s.Document(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]int{0}, out.Scenes[0].Nodes); diff != "" {
		t.Errorf("scene roots (-want +got):\n%s", diff)
	}
}

func TestBuildRejectsInvalidDocument(t *testing.T) {
	doc := scene.New().Document()
	doc.RootNodeIndexes = []scene.NodeIndex{5}

	if _, err := Build(doc, nil); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("error = %v, want ErrInvalidDocument", err)
	}
}

func TestBuildRejectsMismatchedSet(t *testing.T) {
	doc := scene.Sample().Document()
	if _, err := Build(doc, &tessellate.Set{}); err == nil {
		t.Error("expected error for a set built from another document")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	doc := plant(t)
	out, err := Build(doc, tessellated(t, doc))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, f := range []Format{FormatBinary, FormatJSON} {
		t.Run(f.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, out, f); err != nil {
				t.Fatalf("Write: %v", err)
			}
			switch f {
			case FormatBinary:
				if !bytes.HasPrefix(buf.Bytes(), []byte("glTF")) {
					t.Errorf("binary output missing glTF magic: %q", buf.Bytes()[:4])
				}
			case FormatJSON:
				if !bytes.HasPrefix(bytes.TrimSpace(buf.Bytes()), []byte("{")) {
					t.Error("JSON output does not start with an object")
				}
			}

			decoded := new(gltf.Document)
			if err := gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(decoded); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(decoded.Nodes) != len(out.Nodes) {
				t.Errorf("decoded %d nodes, want %d", len(decoded.Nodes), len(out.Nodes))
			}
			if decoded.Nodes[0].Name != "tank" {
				t.Errorf("decoded node 0 = %q, want tank", decoded.Nodes[0].Name)
			}
		})
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, gltf.NewDocument(), Format(7))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error = %v, want ErrUnknownFormat", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"out/scene.glb", FormatBinary, false},
		{"scene.GLTF", FormatJSON, false},
		{"scene.json", 0, true},
		{"scene", 0, true},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("FormatFromPath(%q) error = %v, want ErrUnknownFormat", tt.path, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("FormatFromPath(%q) = %s, %v; want %s", tt.path, got, err, tt.want)
		}
	}
}

func TestEulerToQuaternion(t *testing.T) {
	h := math.Sqrt2 / 2
	tests := []struct {
		name string
		in   scene.Vec3
		want [4]float64
	}{
		{"identity", scene.Vec3{}, [4]float64{0, 0, 0, 1}},
		{"quarter turn x", scene.Vec3{math.Pi / 2, 0, 0}, [4]float64{h, 0, 0, h}},
		{"quarter turn y", scene.Vec3{0, math.Pi / 2, 0}, [4]float64{0, h, 0, h}},
		{"half turn z", scene.Vec3{0, 0, math.Pi}, [4]float64{0, 0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EulerToQuaternion(tt.in)
			var norm float64
			for i := range got {
				norm += got[i] * got[i]
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("EulerToQuaternion(%v) = %v, want %v", tt.in, got, tt.want)
					break
				}
			}
			if math.Abs(norm-1) > 1e-9 {
				t.Errorf("quaternion %v is not unit length", got)
			}
		})
	}
}
