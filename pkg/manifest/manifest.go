// Package manifest loads declarative scene descriptions. A manifest is a
// JSON document, authored on disk as JSONC (JSON extended with comments and
// trailing commas), that lists nodes, tags, motion indicators, cameras and
// rules. Build replays it against a scene.Scene in a fixed order:
// settings, nodes, tags, motion indicators, cameras, rules.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/chazu/twinscene/pkg/scene"
)

var (
	// ErrUnknownPlacement is returned for a tag placement outside
	// detached, root and attach:<node>.
	ErrUnknownPlacement = errors.New("unknown tag placement")
	// ErrUnknownNode is returned when a tag attaches to a name no node has.
	ErrUnknownNode = errors.New("unknown node name")
	// ErrAmbiguousNode is returned when a tag attaches to a name several nodes share.
	ErrAmbiguousNode = errors.New("ambiguous node name")
)

// Manifest is the decoded form of a manifest file.
type Manifest struct {
	Settings         *Settings         `json:"settings,omitempty"`
	Nodes            []Node            `json:"nodes,omitempty"`
	Tags             []Tag             `json:"tags,omitempty"`
	MotionIndicators []MotionIndicator `json:"motionIndicators,omitempty"`
	Cameras          []Camera          `json:"cameras,omitempty"`
	Rules            []Rule            `json:"rules,omitempty"`
}

// Settings overrides document-level settings. Empty strings keep defaults.
type Settings struct {
	Unit              string   `json:"unit,omitempty"`
	EnvironmentPreset string   `json:"environmentPreset,omitempty"`
	TagAutoRescale    bool     `json:"tagAutoRescale,omitempty"`
	TagScale          *float64 `json:"tagScale,omitempty"`
}

// Transform lists the transform fields to set; missing fields take the
// scene defaults.
type Transform struct {
	Position *scene.Vec3 `json:"position,omitempty"`
	Rotation *scene.Vec3 `json:"rotation,omitempty"`
	Scale    *scene.Vec3 `json:"scale,omitempty"`
}

// Model is a model reference component.
type Model struct {
	URI  string `json:"uri,omitempty"`
	Type string `json:"type,omitempty"`
}

// Node is a scene node with nested children.
type Node struct {
	Name       string         `json:"name,omitempty"`
	Transform  *Transform     `json:"transform,omitempty"`
	Models     []Model        `json:"models,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Children   []Node         `json:"children,omitempty"`
}

// Tag is a tag with its placement: "detached", "root" or "attach:<node name>".
type Tag struct {
	Name      string     `json:"name,omitempty"`
	Content   string     `json:"content,omitempty"`
	Transform *Transform `json:"transform,omitempty"`
	Placement string     `json:"placement"`
}

// MotionIndicator is a flow visual added as a root. Missing repeatY, speed
// and color take the defaults; explicit values, zero included, are kept.
type MotionIndicator struct {
	Name       string         `json:"name,omitempty"`
	Transform  *Transform     `json:"transform,omitempty"`
	RepeatY    *int           `json:"repeatY,omitempty"`
	Speed      *float64       `json:"speed,omitempty"`
	Color      *string        `json:"color,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Camera is a viewpoint.
type Camera struct {
	Name      string     `json:"name,omitempty"`
	Transform *Transform `json:"transform,omitempty"`
	Index     int        `json:"index,omitempty"`
}

// Rule is a named list of statements. A missing statements list yields
// the default statement; an explicit empty list stays empty.
type Rule struct {
	Name       string      `json:"name,omitempty"`
	Statements []Statement `json:"statements"`
}

// Statement is one rule condition; Target is ERROR, WARNING or INFO.
// A missing expression takes the default one.
type Statement struct {
	Expression *string `json:"expression,omitempty"`
	Target     string  `json:"target,omitempty"`
}

// ErrTrailingData is returned when content follows the manifest object.
var ErrTrailingData = errors.New("trailing data after manifest")

// Parse strips JSONC comments and trailing commas from data, then decodes
// the result into a Manifest. Unknown fields and anything after the
// top-level object are rejected.
func Parse(data []byte) (*Manifest, error) {
	stripped := jsonc.ToJSON(data)

	dec := json.NewDecoder(bytes.NewReader(stripped))
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing manifest: %w", ErrTrailingData)
	}
	return &m, nil
}

// ReadFile reads a JSONC manifest from disk and parses it.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Build creates a scene from m. opts are applied first; the manifest's own
// settings override them.
func (m *Manifest) Build(opts ...scene.Option) (*scene.Scene, error) {
	if m.Settings != nil {
		opts = append(opts, scene.WithUnit(m.Settings.Unit), scene.WithEnvironmentPreset(m.Settings.EnvironmentPreset))
		if m.Settings.TagAutoRescale || m.Settings.TagScale != nil {
			scale := scene.DefaultSettings().TagScale
			if m.Settings.TagScale != nil {
				scale = *m.Settings.TagScale
			}
			opts = append(opts, scene.WithTagSettings(m.Settings.TagAutoRescale, scale))
		}
	}
	s := scene.New(opts...)

	byName := make(map[string][]scene.NodeIndex)
	for i, entry := range m.Nodes {
		n := entry.node()
		idx, err := s.AddNode(n)
		if err != nil {
			return nil, fmt.Errorf("nodes[%d] %q: %w", i, entry.Name, err)
		}
		entry.index(n, idx, byName)
	}

	for i, entry := range m.Tags {
		p, err := placement(entry.Placement, byName)
		if err != nil {
			return nil, fmt.Errorf("tags[%d] %q: %w", i, entry.Name, err)
		}
		cfg := scene.TagConfig{
			Name:      entry.Name,
			Transform: entry.Transform.resolve(),
			Content:   entry.Content,
		}
		if _, err := s.AddTag(cfg, p); err != nil {
			return nil, fmt.Errorf("tags[%d] %q: %w", i, entry.Name, err)
		}
	}

	for _, entry := range m.MotionIndicators {
		s.AddMotionIndicator(scene.NewMotionIndicator(scene.MotionIndicatorConfig{
			Name:                   entry.Name,
			Transform:              entry.Transform.resolve(),
			Properties:             entry.Properties,
			NumOfRepeatInY:         entry.RepeatY,
			DefaultSpeed:           entry.Speed,
			DefaultForegroundColor: entry.Color,
		}))
	}

	for _, entry := range m.Cameras {
		s.AddCamera(scene.CameraConfig{
			Name:        entry.Name,
			Transform:   entry.Transform.resolve(),
			CameraIndex: entry.Index,
		})
	}

	for i, entry := range m.Rules {
		cfg := scene.RuleConfig{Name: entry.Name}
		if entry.Statements != nil {
			cfg.Statements = make([]scene.Statement, 0, len(entry.Statements))
		}
		for j, st := range entry.Statements {
			built, err := scene.NewStatement(scene.StatementConfig{Expression: st.Expression, Target: st.Target})
			if err != nil {
				return nil, fmt.Errorf("rules[%d] %q statement %d: %w", i, entry.Name, j, err)
			}
			cfg.Statements = append(cfg.Statements, built)
		}
		s.AddRule(scene.NewRule(cfg))
	}

	return s, nil
}

// node converts the manifest tree to unflattened scene nodes.
func (mn Node) node() *scene.Node {
	var children []*scene.Node
	for _, c := range mn.Children {
		children = append(children, c.node())
	}
	n := scene.NewNode(scene.NodeConfig{
		Name:       mn.Name,
		Transform:  mn.Transform.resolve(),
		Children:   children,
		Properties: mn.Properties,
	})
	for _, model := range mn.Models {
		n.AddComponent(scene.ModelRefConfig{URI: model.URI, Type: model.Type})
	}
	return n
}

// index records the position of every node in the tree under its name.
// n must be the node built from mn and already added to a scene.
func (mn Node) index(n *scene.Node, idx scene.NodeIndex, byName map[string][]scene.NodeIndex) {
	byName[n.Name] = append(byName[n.Name], idx)
	for i, c := range mn.Children {
		c.index(n.Children[i], n.ChildIndexes[i], byName)
	}
}

func (t *Transform) resolve() *scene.Transform {
	if t == nil {
		return nil
	}
	out := scene.DefaultTransform()
	if t.Position != nil {
		out.Position = *t.Position
	}
	if t.Rotation != nil {
		out.Rotation = *t.Rotation
	}
	if t.Scale != nil {
		out.Scale = *t.Scale
	}
	return &out
}

const attachPrefix = "attach:"

func placement(s string, byName map[string][]scene.NodeIndex) (scene.Placement, error) {
	switch {
	case s == "detached":
		return scene.Detached(), nil
	case s == "root":
		return scene.AsRoot(), nil
	case strings.HasPrefix(s, attachPrefix):
		name := strings.TrimPrefix(s, attachPrefix)
		idxs := byName[name]
		switch len(idxs) {
		case 0:
			return scene.Placement{}, fmt.Errorf("attach to %q: %w", name, ErrUnknownNode)
		case 1:
			return scene.AttachTo(idxs[0]), nil
		default:
			return scene.Placement{}, fmt.Errorf("attach to %q (positions %v): %w", name, idxs, ErrAmbiguousNode)
		}
	default:
		return scene.Placement{}, fmt.Errorf("%q: %w", s, ErrUnknownPlacement)
	}
}
