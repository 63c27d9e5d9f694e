package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownSeverity is returned for a statement target outside ERROR, WARNING, INFO.
	ErrUnknownSeverity = errors.New("unknown severity")
	// ErrNodeNotFound is returned when no record equals the requested node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrIndexOutOfRange is returned for a position outside the node array.
	ErrIndexOutOfRange = errors.New("node index out of range")
	// ErrCycle is returned when a node is its own ancestor.
	ErrCycle = errors.New("node cycle")
	// ErrNilNode is returned when a nil node is added.
	ErrNilNode = errors.New("nil node")
	// ErrLeafRecord is returned when attaching under a record that cannot hold children.
	ErrLeafRecord = errors.New("record cannot hold children")
)

// Scene owns the flat node array of a scene document. Records are appended
// and never moved, so a NodeIndex stays valid for the life of the scene.
//
// A Scene is not safe for concurrent mutation.
type Scene struct {
	settings Settings
	nodes    []Record
	roots    []NodeIndex
	cameras  []Camera
	rules    map[string]RuleEntry

	// attached holds the positions of tags added with AttachTo. They are
	// children of a record but never of the Node it was built from.
	attached map[NodeIndex]bool
}

// New creates a scene with no records. Its rules map holds the default
// rule unless WithoutDefaultRule is given.
func New(opts ...Option) *Scene {
	s := &Scene{
		settings: DefaultSettings(),
		rules:    make(map[string]RuleEntry),
		attached: make(map[NodeIndex]bool),
	}
	s.AddRule(NewRule(RuleConfig{}))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the document-level settings.
func (s *Scene) Settings() Settings {
	return s.settings
}

// Len returns the number of records in the node array.
func (s *Scene) Len() int {
	return len(s.nodes)
}

// Roots returns a copy of the root index list.
func (s *Scene) Roots() []NodeIndex {
	return append([]NodeIndex{}, s.roots...)
}

// Record returns a copy of the record at idx.
func (s *Scene) Record(idx NodeIndex) (Record, error) {
	if !s.valid(idx) {
		return Record{}, fmt.Errorf("record %d: %w", idx, ErrIndexOutOfRange)
	}
	return s.nodes[idx].clone(), nil
}

func (s *Scene) valid(idx NodeIndex) bool {
	return idx >= 0 && int(idx) < len(s.nodes)
}

// push appends r and returns its position.
func (s *Scene) push(r Record) NodeIndex {
	idx := NodeIndex(len(s.nodes))
	s.nodes = append(s.nodes, r)
	return idx
}

// AddNode flattens n into the node array and registers it as a root.
//
// The node is appended first, then its direct children in order, so a
// parent's children occupy consecutive positions after everything already
// in the array. Each child's own children are flattened the same way once
// all of its siblings have positions. The resolved positions are recorded
// on the parent record and written back to each Node's ChildIndexes.
//
// Records are copies: changing n after AddNode does not alter the scene.
// A nil node or a cycle is rejected without modifying the scene.
func (s *Scene) AddNode(n *Node) (NodeIndex, error) {
	if n == nil {
		return 0, fmt.Errorf("add node: %w", ErrNilNode)
	}
	if err := checkAcyclic(n); err != nil {
		return 0, fmt.Errorf("add node %q: %w", n.Name, err)
	}

	idx := s.place(n)
	s.roots = append(s.roots, idx)
	return idx, nil
}

// place appends n and its subtree, returning n's position.
func (s *Scene) place(n *Node) NodeIndex {
	r := n.Record()
	r.Children = nil
	idx := s.push(r)
	s.attachChildren(idx, n)
	return idx
}

func (s *Scene) attachChildren(parent NodeIndex, n *Node) {
	resolved := make([]NodeIndex, 0, len(n.Children))
	for _, child := range n.Children {
		r := child.Record()
		r.Children = nil
		resolved = append(resolved, s.push(r))
	}
	s.nodes[parent].Children = append(s.nodes[parent].Children, resolved...)
	n.ChildIndexes = resolved

	for i, child := range n.Children {
		s.attachChildren(resolved[i], child)
	}
}

// checkAcyclic walks the subtree of root with three-color marking and
// reports the first node found on its own ancestor path.
func checkAcyclic(root *Node) error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[*Node]int)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		switch color[n] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("node %q is its own ancestor: %w", n.Name, ErrCycle)
		}
		color[n] = gray
		for _, child := range n.Children {
			if child == nil {
				return fmt.Errorf("child of %q: %w", n.Name, ErrNilNode)
			}
			if err := visit(child); err != nil {
				return err
			}
		}
		color[n] = black
		return nil
	}
	return visit(root)
}

// AddMotionIndicator appends m as a new root. Motion indicators have no
// children, so nothing else is flattened.
func (s *Scene) AddMotionIndicator(m MotionIndicator) NodeIndex {
	idx := s.push(m.Record())
	s.roots = append(s.roots, idx)
	return idx
}

// AddTag appends a tag built from cfg and references it as p directs.
func (s *Scene) AddTag(cfg TagConfig, p Placement) (NodeIndex, error) {
	if p.mode == placeAttached {
		if !s.valid(p.parent) {
			return 0, fmt.Errorf("add tag: parent %d: %w", p.parent, ErrIndexOutOfRange)
		}
		if !s.nodes[p.parent].HasChildren() {
			return 0, fmt.Errorf("add tag: parent %d is a %s: %w", p.parent, s.nodes[p.parent].Kind, ErrLeafRecord)
		}
	}

	idx := s.push(NewTag(cfg).Record())
	switch p.mode {
	case placeRoot:
		s.roots = append(s.roots, idx)
	case placeAttached:
		s.nodes[p.parent].Children = append(s.nodes[p.parent].Children, idx)
		s.attached[idx] = true
	}
	return idx, nil
}

// AddRootNodeIndex registers an existing record as a root.
func (s *Scene) AddRootNodeIndex(idx NodeIndex) error {
	if !s.valid(idx) {
		return fmt.Errorf("add root %d: %w", idx, ErrIndexOutOfRange)
	}
	s.roots = append(s.roots, idx)
	return nil
}

// AddCamera appends a camera built from cfg.
func (s *Scene) AddCamera(cfg CameraConfig) {
	s.cameras = append(s.cameras, NewCamera(cfg))
}

// AddRule merges r into the rules map, replacing any rule of the same name.
func (s *Scene) AddRule(r Rule) {
	statements := append([]Statement{}, r.Statements...)
	s.rules[r.Name] = RuleEntry{Statements: statements}
}

// IndexOf returns the position of the first record whose serialized form
// equals n's. Tags attached with AttachTo are left out of the comparison,
// so a node stays findable after tags are hung on it. Distinct nodes with
// identical content are indistinguishable; prefer the index returned by
// AddNode.
func (s *Scene) IndexOf(n *Node) (NodeIndex, error) {
	if n == nil {
		return 0, fmt.Errorf("index of: %w", ErrNilNode)
	}
	want, err := json.Marshal(n.Record())
	if err != nil {
		return 0, fmt.Errorf("index of %q: %w", n.Name, err)
	}
	for i, r := range s.nodes {
		got, err := json.Marshal(s.withoutAttachedTags(r))
		if err != nil {
			return 0, fmt.Errorf("index of %q: record %d: %w", n.Name, i, err)
		}
		if bytes.Equal(got, want) {
			return NodeIndex(i), nil
		}
	}
	return 0, fmt.Errorf("index of %q: %w", n.Name, ErrNodeNotFound)
}

// withoutAttachedTags returns r with attached tag positions removed from
// its children. r's backing array is not modified.
func (s *Scene) withoutAttachedTags(r Record) Record {
	if len(s.attached) == 0 || len(r.Children) == 0 {
		return r
	}
	children := make([]NodeIndex, 0, len(r.Children))
	for _, c := range r.Children {
		if !s.attached[c] {
			children = append(children, c)
		}
	}
	r.Children = children
	return r
}

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

type placeMode int

const (
	placeDetached placeMode = iota
	placeRoot
	placeAttached
)

// Placement decides how an appended tag is referenced.
type Placement struct {
	mode   placeMode
	parent NodeIndex
}

// Detached occupies a slot in the node array that nothing references.
func Detached() Placement { return Placement{mode: placeDetached} }

// AsRoot registers the record in the root index list.
func AsRoot() Placement { return Placement{mode: placeRoot} }

// AttachTo appends the record to the children of the node at parent.
func AttachTo(parent NodeIndex) Placement {
	return Placement{mode: placeAttached, parent: parent}
}

func (p Placement) String() string {
	switch p.mode {
	case placeRoot:
		return "root"
	case placeAttached:
		return fmt.Sprintf("attach:%d", p.parent)
	default:
		return "detached"
	}
}

// ---------------------------------------------------------------------------
// Sample
// ---------------------------------------------------------------------------

// Sample returns the reference scene: one default node, one detached
// default tag, one default motion indicator, the default rule and the
// default camera.
func Sample(opts ...Option) *Scene {
	s := New(opts...)
	// Neither call can fail on defaults.
	_, _ = s.AddNode(NewNode(NodeConfig{}))
	_, _ = s.AddTag(TagConfig{}, Detached())
	s.AddMotionIndicator(NewMotionIndicator(MotionIndicatorConfig{}))
	s.AddRule(NewRule(RuleConfig{}))
	s.AddCamera(CameraConfig{})
	return s
}
