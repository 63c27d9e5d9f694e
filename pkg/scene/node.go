package scene

// Default entity names, matching the platform's authoring templates.
const (
	DefaultNodeName   = "testNode"
	DefaultTagName    = "testTag"
	DefaultTagContent = "testContent"
	DefaultCameraName = "testCamera"
)

// DefaultForegroundColor is the motion indicator color used when none is set.
const DefaultForegroundColor = "#7ed321"

// ---------------------------------------------------------------------------
// Node
// ---------------------------------------------------------------------------

// NodeConfig configures NewNode. Empty fields take defaults.
type NodeConfig struct {
	Name       string
	Transform  *Transform
	Children   []*Node
	Components []Component
	Properties map[string]any
}

// Node is a tree element before flattening. Children is authoritative
// until the node is added to a Scene; afterwards ChildIndexes holds the
// positions the scene assigned to each child.
type Node struct {
	Name         string
	Transform    Transform
	Children     []*Node
	ChildIndexes []NodeIndex
	Components   []Component
	Properties   map[string]any
}

// NewNode builds a node with defaults applied.
func NewNode(cfg NodeConfig) *Node {
	n := &Node{
		Name:       cfg.Name,
		Transform:  transformOrDefault(cfg.Transform),
		Children:   cfg.Children,
		Components: cfg.Components,
		Properties: cfg.Properties,
	}
	if n.Name == "" {
		n.Name = DefaultNodeName
	}
	if n.Properties == nil {
		n.Properties = map[string]any{}
	}
	return n
}

// AddChild appends child to the node's children.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	return len(n.Children)
}

// AddComponent attaches a model reference built from cfg.
func (n *Node) AddComponent(cfg ModelRefConfig) {
	n.Components = append(n.Components, NewModelRef(cfg))
}

// Record returns the node's serialized form with its current child indexes.
func (n *Node) Record() Record {
	r := Record{
		Kind:       KindNode,
		Name:       n.Name,
		Transform:  n.Transform,
		Children:   n.ChildIndexes,
		Components: n.Components,
		Properties: n.Properties,
	}
	return r.clone()
}

// ---------------------------------------------------------------------------
// Motion indicator
// ---------------------------------------------------------------------------

// MotionIndicatorConfig configures NewMotionIndicator. An empty name
// defaults to DefaultNodeName. Nil config fields default to 1, 1 and
// "#7ed321"; a set field is kept as given, zero included.
type MotionIndicatorConfig struct {
	Name                   string
	Transform              *Transform
	Properties             map[string]any
	NumOfRepeatInY         *int
	DefaultSpeed           *float64
	DefaultForegroundColor *string
}

// MotionIndicator is an animated plane showing flow along an asset.
// It never has children.
type MotionIndicator struct {
	Name       string
	Transform  Transform
	Properties map[string]any
	Shape      string
	Config     MotionConfig
}

// NewMotionIndicator builds a motion indicator with defaults applied.
func NewMotionIndicator(cfg MotionIndicatorConfig) MotionIndicator {
	m := MotionIndicator{
		Name:       cfg.Name,
		Transform:  transformOrDefault(cfg.Transform),
		Properties: cfg.Properties,
		Shape:      "LinearPlane",
		Config: MotionConfig{
			NumOfRepeatInY:         1,
			DefaultSpeed:           1,
			DefaultForegroundColor: DefaultForegroundColor,
		},
	}
	if m.Name == "" {
		m.Name = DefaultNodeName
	}
	if cfg.NumOfRepeatInY != nil {
		m.Config.NumOfRepeatInY = *cfg.NumOfRepeatInY
	}
	if cfg.DefaultSpeed != nil {
		m.Config.DefaultSpeed = *cfg.DefaultSpeed
	}
	if cfg.DefaultForegroundColor != nil {
		m.Config.DefaultForegroundColor = *cfg.DefaultForegroundColor
	}
	return m
}

// Record returns the motion indicator's serialized form.
func (m MotionIndicator) Record() Record {
	r := Record{
		Kind:      KindMotionIndicator,
		Name:      m.Name,
		Transform: m.Transform,
		Components: []Component{MotionIndicatorComponent{
			Shape:  m.Shape,
			Config: m.Config,
		}},
		Properties: m.Properties,
	}
	return r.clone()
}

// ---------------------------------------------------------------------------
// Tag
// ---------------------------------------------------------------------------

// TagConfig configures NewTag. Empty fields take defaults.
type TagConfig struct {
	Name      string
	Transform *Transform
	Content   string
}

// Tag is a data overlay marker: an info icon paired with a markdown panel.
type Tag struct {
	Name      string
	Transform Transform
	Icon      string
	Content   string
}

// NewTag builds a tag with defaults applied.
func NewTag(cfg TagConfig) Tag {
	t := Tag{
		Name:      cfg.Name,
		Transform: transformOrDefault(cfg.Transform),
		Icon:      TargetInfo.Icon(),
		Content:   cfg.Content,
	}
	if t.Name == "" {
		t.Name = DefaultTagName
	}
	if t.Content == "" {
		t.Content = DefaultTagContent
	}
	return t
}

// Record returns the tag's serialized form.
func (t Tag) Record() Record {
	return Record{
		Kind:      KindTag,
		Name:      t.Name,
		Transform: t.Transform,
		Components: []Component{
			TagIcon{Icon: t.Icon},
			DataOverlay{
				SubType:  "OverlayPanel",
				DataRows: []DataRow{{RowType: "Markdown", Content: t.Content}},
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Camera
// ---------------------------------------------------------------------------

// CameraConfig configures NewCamera. Empty fields take defaults.
type CameraConfig struct {
	Name        string
	Transform   *Transform
	CameraIndex int
}

// Camera is an entry of the document's camera list.
type Camera struct {
	Name      string
	Transform Transform
	Component CameraComponent
}

// NewCamera builds a camera with defaults applied.
func NewCamera(cfg CameraConfig) Camera {
	c := Camera{
		Name:      cfg.Name,
		Transform: transformOrDefault(cfg.Transform),
		Component: CameraComponent{CameraIndex: cfg.CameraIndex},
	}
	if c.Name == "" {
		c.Name = DefaultCameraName
	}
	return c
}

// MarshalJSON encodes the camera entry. Unlike node records, a camera
// carries a single component object rather than a list.
func (c Camera) MarshalJSON() ([]byte, error) {
	return encode(struct {
		Name                string          `json:"name"`
		Transform           Transform       `json:"transform"`
		TransformConstraint struct{}        `json:"transformConstraint"`
		Components          CameraComponent `json:"components"`
		Properties          struct{}        `json:"properties"`
	}{
		Name:       c.Name,
		Transform:  c.Transform,
		Components: c.Component,
	})
}
