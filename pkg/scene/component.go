package scene

// Component is a typed behavior or appearance descriptor attached to a
// record. Each implementation encodes itself with its "type" field.
type Component interface {
	ComponentType() string
}

// DefaultModelURI is the model reference used when none is configured.
const DefaultModelURI = "s3://twinmaker-workspace-<your workspace name>-XXXXXXXXX-iad/defaultObject.glb"

const (
	ComponentModelRef        = "ModelRef"
	ComponentMotionIndicator = "MotionIndicator"
	ComponentTag             = "Tag"
	ComponentDataOverlay     = "DataOverlay"
	ComponentCamera          = "Camera"
)

// ---------------------------------------------------------------------------
// Model reference
// ---------------------------------------------------------------------------

// ModelRefConfig configures NewModelRef. Empty fields take defaults.
type ModelRefConfig struct {
	Type string // default "ModelRef"
	URI  string // default DefaultModelURI
}

// ModelRef points a node at a 3D model asset.
type ModelRef struct {
	Type      string
	URI       string
	ModelType string
}

// NewModelRef builds a model reference component.
func NewModelRef(cfg ModelRefConfig) ModelRef {
	m := ModelRef{Type: cfg.Type, URI: cfg.URI, ModelType: "GLB"}
	if m.Type == "" {
		m.Type = ComponentModelRef
	}
	if m.URI == "" {
		m.URI = DefaultModelURI
	}
	return m
}

func (m ModelRef) ComponentType() string { return m.Type }

func (m ModelRef) MarshalJSON() ([]byte, error) {
	return encode(struct {
		Type      string `json:"type"`
		URI       string `json:"uri"`
		ModelType string `json:"modelType"`
	}{m.Type, m.URI, m.ModelType})
}

// ---------------------------------------------------------------------------
// Motion indicator
// ---------------------------------------------------------------------------

// MotionConfig holds the animation defaults of a motion indicator.
type MotionConfig struct {
	NumOfRepeatInY         int     `json:"numOfRepeatInY"`
	DefaultSpeed           float64 `json:"defaultSpeed"`
	DefaultForegroundColor string  `json:"defaultForegroundColor"`
}

// MotionIndicatorComponent renders an animated flow plane.
type MotionIndicatorComponent struct {
	Shape  string
	Config MotionConfig
}

func (MotionIndicatorComponent) ComponentType() string { return ComponentMotionIndicator }

func (m MotionIndicatorComponent) MarshalJSON() ([]byte, error) {
	return encode(struct {
		Type              string                    `json:"type"`
		Shape             string                    `json:"shape"`
		ValueDataBindings map[string]map[string]any `json:"valueDataBindings"`
		Config            MotionConfig              `json:"config"`
	}{
		Type:              ComponentMotionIndicator,
		Shape:             m.Shape,
		ValueDataBindings: map[string]map[string]any{"foregroundColor": {}},
		Config:            m.Config,
	})
}

// ---------------------------------------------------------------------------
// Tag pair
// ---------------------------------------------------------------------------

// TagIcon is the icon half of a tag's component pair.
type TagIcon struct {
	Icon string
}

func (TagIcon) ComponentType() string { return ComponentTag }

func (t TagIcon) MarshalJSON() ([]byte, error) {
	return encode(struct {
		Type string `json:"type"`
		Icon string `json:"icon"`
	}{ComponentTag, t.Icon})
}

// DataRow is one row of an overlay panel.
type DataRow struct {
	RowType string `json:"rowType"`
	Content string `json:"content"`
}

// DataOverlay is the panel half of a tag's component pair.
type DataOverlay struct {
	SubType  string
	DataRows []DataRow
}

func (DataOverlay) ComponentType() string { return ComponentDataOverlay }

func (d DataOverlay) MarshalJSON() ([]byte, error) {
	rows := d.DataRows
	if rows == nil {
		rows = []DataRow{}
	}
	return encode(struct {
		Type              string    `json:"type"`
		SubType           string    `json:"subType"`
		ValueDataBindings []any     `json:"valueDataBindings"`
		DataRows          []DataRow `json:"dataRows"`
	}{ComponentDataOverlay, d.SubType, []any{}, rows})
}

// ---------------------------------------------------------------------------
// Camera
// ---------------------------------------------------------------------------

// CameraComponent binds a camera entry to a camera definition index.
type CameraComponent struct {
	CameraIndex int
}

func (CameraComponent) ComponentType() string { return ComponentCamera }

func (c CameraComponent) MarshalJSON() ([]byte, error) {
	return encode(struct {
		Type        string `json:"type"`
		CameraIndex int    `json:"cameraIndex"`
	}{ComponentCamera, c.CameraIndex})
}
