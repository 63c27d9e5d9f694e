// Package config loads twinscene settings from a YAML file.
//
// Loading starts from Default and decodes the file over it, so a file only
// needs the keys it changes. Command-line flags are applied by the caller
// after loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chazu/twinscene/pkg/engine"
	"github.com/chazu/twinscene/pkg/kernel/sdfx"
	"github.com/chazu/twinscene/pkg/scene"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration.
type Config struct {
	// Scene holds the document-level settings of generated scenes.
	Scene SceneConfig `yaml:"scene"`
	// Engine configures script evaluation.
	Engine EngineConfig `yaml:"engine"`
	// Preview configures glTF preview export.
	Preview PreviewConfig `yaml:"preview"`
	// Log configures the process logger.
	Log LogConfig `yaml:"log"`
	// Output configures the scene document writer.
	Output OutputConfig `yaml:"output"`
}

// SceneConfig mirrors scene.Settings.
type SceneConfig struct {
	Unit              string    `yaml:"unit"`
	EnvironmentPreset string    `yaml:"environment_preset"`
	Tag               TagConfig `yaml:"tag"`
}

// TagConfig holds the global Tag component settings.
type TagConfig struct {
	AutoRescale bool    `yaml:"auto_rescale"`
	Scale       float64 `yaml:"scale"`
}

// EngineConfig configures the script engine.
type EngineConfig struct {
	// Timeout is a Go duration string, e.g. "5s".
	Timeout string `yaml:"timeout"`
}

// PreviewConfig configures preview export.
type PreviewConfig struct {
	// MeshCells is the marching cubes resolution of placeholder meshes.
	MeshCells int `yaml:"mesh_cells"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// OutputConfig configures document output.
type OutputConfig struct {
	// Indent pretty-prints the scene document.
	Indent bool `yaml:"indent"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	settings := scene.DefaultSettings()
	return &Config{
		Scene: SceneConfig{
			Unit:              settings.Unit,
			EnvironmentPreset: settings.EnvironmentPreset,
			Tag: TagConfig{
				AutoRescale: settings.TagAutoRescale,
				Scale:       settings.TagScale,
			},
		},
		Engine: EngineConfig{
			Timeout: engine.EvalTimeout.String(),
		},
		Preview: PreviewConfig{
			MeshCells: sdfx.DefaultMeshCells,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFile decodes the YAML file at path over Default and validates the
// result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if _, err := c.EngineTimeout(); err != nil {
		return err
	}
	if c.Preview.MeshCells <= 0 {
		return fmt.Errorf("%w: preview.mesh_cells must be positive, got %d", ErrInvalid, c.Preview.MeshCells)
	}
	if c.Scene.Tag.Scale <= 0 {
		return fmt.Errorf("%w: scene.tag.scale must be positive, got %g", ErrInvalid, c.Scene.Tag.Scale)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level must be debug, info, warn or error, got %q", ErrInvalid, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// EngineTimeout parses Engine.Timeout.
func (c *Config) EngineTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: engine.timeout: %v", ErrInvalid, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: engine.timeout must be positive, got %s", ErrInvalid, d)
	}
	return d, nil
}

// SceneOptions converts the scene section to scene options.
func (c *Config) SceneOptions() []scene.Option {
	return []scene.Option{
		scene.WithUnit(c.Scene.Unit),
		scene.WithEnvironmentPreset(c.Scene.EnvironmentPreset),
		scene.WithTagSettings(c.Scene.Tag.AutoRescale, c.Scene.Tag.Scale),
	}
}
