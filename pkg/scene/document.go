package scene

import (
	"encoding/json"
	"fmt"
	"io"
)

// Fixed document header values.
const (
	SpecVersion              = "1.0"
	DocumentVersion          = "1"
	DefaultUnit              = "meters"
	DefaultEnvironmentPreset = "neutral"
)

// Settings holds the document-level values a caller may change.
type Settings struct {
	Unit              string
	EnvironmentPreset string
	TagAutoRescale    bool
	TagScale          float64
}

// DefaultSettings returns the settings of a scene created without options.
func DefaultSettings() Settings {
	return Settings{
		Unit:              DefaultUnit,
		EnvironmentPreset: DefaultEnvironmentPreset,
		TagScale:          1,
	}
}

// Option adjusts a new scene.
type Option func(*Scene)

// WithUnit sets the document's length unit. Empty keeps the default.
func WithUnit(unit string) Option {
	return func(s *Scene) {
		if unit != "" {
			s.settings.Unit = unit
		}
	}
}

// WithEnvironmentPreset sets the lighting preset. Empty keeps the default.
func WithEnvironmentPreset(preset string) Option {
	return func(s *Scene) {
		if preset != "" {
			s.settings.EnvironmentPreset = preset
		}
	}
}

// WithTagSettings sets the global Tag component settings.
func WithTagSettings(autoRescale bool, scale float64) Option {
	return func(s *Scene) {
		s.settings.TagAutoRescale = autoRescale
		s.settings.TagScale = scale
	}
}

// WithoutDefaultRule starts the scene with an empty rules map instead of
// the default rule.
func WithoutDefaultRule() Option {
	return func(s *Scene) {
		delete(s.rules, DefaultRuleName)
	}
}

// TagSettings is the document-wide configuration of Tag components.
type TagSettings struct {
	AutoRescale bool    `json:"autoRescale"`
	Scale       float64 `json:"scale"`
}

// ComponentSettings groups per-component-type settings.
type ComponentSettings struct {
	Tag TagSettings `json:"Tag"`
}

// Properties is the document's top-level properties object.
type Properties struct {
	EnvironmentPreset string            `json:"environmentPreset"`
	ComponentSettings ComponentSettings `json:"componentSettings"`
}

// Document is the published scene description.
type Document struct {
	SpecVersion     string               `json:"specVersion"`
	Version         string               `json:"version"`
	Unit            string               `json:"unit"`
	Properties      Properties           `json:"properties"`
	Nodes           []Record             `json:"nodes"`
	RootNodeIndexes []NodeIndex          `json:"rootNodeIndexes"`
	Cameras         []Camera             `json:"cameras"`
	Rules           map[string]RuleEntry `json:"rules"`
}

// Document projects the current scene state into a document. The result
// shares no mutable state with the scene.
func (s *Scene) Document() *Document {
	doc := &Document{
		SpecVersion: SpecVersion,
		Version:     DocumentVersion,
		Unit:        s.settings.Unit,
		Properties: Properties{
			EnvironmentPreset: s.settings.EnvironmentPreset,
			ComponentSettings: ComponentSettings{
				Tag: TagSettings{
					AutoRescale: s.settings.TagAutoRescale,
					Scale:       s.settings.TagScale,
				},
			},
		},
		Nodes:           make([]Record, len(s.nodes)),
		RootNodeIndexes: append([]NodeIndex{}, s.roots...),
		Cameras:         append([]Camera{}, s.cameras...),
		Rules:           make(map[string]RuleEntry, len(s.rules)),
	}
	for i, r := range s.nodes {
		doc.Nodes[i] = r.clone()
	}
	for name, entry := range s.rules {
		doc.Rules[name] = RuleEntry{Statements: append([]Statement{}, entry.Statements...)}
	}
	return doc
}

// MarshalJSON encodes the scene as its document.
func (s *Scene) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Document())
}

// WriteJSON encodes the scene document to w, two-space indented when
// indent is set. HTML characters are not escaped.
func (s *Scene) WriteJSON(w io.Writer, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(s.Document()); err != nil {
		return fmt.Errorf("encode scene document: %w", err)
	}
	return nil
}
