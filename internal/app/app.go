// Package app wires the scene builder, the script engine, the manifest
// loader and the preview exporter into the twinscene command.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/twinscene/internal/config"
	"github.com/chazu/twinscene/pkg/engine"
	"github.com/chazu/twinscene/pkg/kernel"
	"github.com/chazu/twinscene/pkg/kernel/sdfx"
	"github.com/chazu/twinscene/pkg/manifest"
	"github.com/chazu/twinscene/pkg/preview"
	"github.com/chazu/twinscene/pkg/scene"
	"github.com/chazu/twinscene/pkg/tessellate"
)

var (
	// ErrUnknownInput is returned for an input file whose extension is not
	// a script or a manifest.
	ErrUnknownInput = errors.New("unknown input type")
	// ErrInvalidScene is returned when validation reports errors.
	ErrInvalidScene = errors.New("scene failed validation")
	// ErrNoInput is returned when neither an input nor the sample is requested.
	ErrNoInput = errors.New("no input")
)

// ScriptError collects the evaluation errors of one script.
type ScriptError struct {
	Path   string
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ee := range e.Errors {
		msgs = append(msgs, ee.Error())
	}
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(msgs, "; "))
}

// Request describes one run.
type Request struct {
	// Input is a .lisp script or a .json/.jsonc manifest.
	Input string
	// Sample emits the reference scene instead of reading Input.
	Sample bool
	// Output is the document path; empty writes to the app's output.
	Output string
	// Preview is an optional .glb or .gltf path.
	Preview string
	// Validate reports findings and fails on errors.
	Validate bool
}

// App holds the configured engine, kernel and logger.
type App struct {
	out    io.Writer
	logger *slog.Logger
	cfg    *config.Config
	engine *engine.Engine
	kernel kernel.Kernel
}

// NewApp creates an App writing documents to out and log records to logOut.
func NewApp(out, logOut io.Writer, cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, err := cfg.EngineTimeout()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, logOut)
	logger.Debug("logger configured", "level", cfg.Log.Level, "format", cfg.Log.Format)

	return &App{
		out:    out,
		logger: logger,
		cfg:    cfg,
		engine: engine.NewEngine(
			engine.WithTimeout(timeout),
			engine.WithSceneOptions(cfg.SceneOptions()...),
		),
		kernel: sdfx.New(sdfx.WithMeshCells(cfg.Preview.MeshCells)),
	}, nil
}

// Evaluate runs a script and returns its scene. Evaluation errors are
// returned as a *ScriptError naming path.
func (a *App) Evaluate(path, source string) (*scene.Scene, error) {
	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			a.logger.Error("script error", "path", path, "line", e.Line, "col", e.Col, "message", e.Message)
		}
		return nil, &ScriptError{Path: path, Errors: evalErrs}
	}
	return s, nil
}

// Load builds a scene from a script or a manifest, chosen by extension.
func (a *App) Load(path string) (*scene.Scene, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lisp", ".zy":
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		a.logger.Debug("evaluating script", "path", path, "bytes", len(source))
		return a.Evaluate(path, string(source))
	case ".json", ".jsonc":
		m, err := manifest.ReadFile(path)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("building manifest", "path", path, "nodes", len(m.Nodes), "tags", len(m.Tags))
		s, err := m.Build(a.cfg.SceneOptions()...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownInput)
	}
}

// Run builds the requested scene, validates it if asked, writes the
// document and exports the preview.
func (a *App) Run(req Request) error {
	var s *scene.Scene
	switch {
	case req.Sample:
		s = scene.Sample(a.cfg.SceneOptions()...)
	case req.Input != "":
		var err error
		if s, err = a.Load(req.Input); err != nil {
			return err
		}
	default:
		return ErrNoInput
	}

	doc := s.Document()
	a.logger.Info("scene built",
		"nodes", len(doc.Nodes),
		"roots", len(doc.RootNodeIndexes),
		"cameras", len(doc.Cameras),
		"rules", len(doc.Rules),
	)

	if req.Validate {
		if err := a.validate(doc); err != nil {
			return err
		}
	}

	if err := a.writeDocument(s, req.Output); err != nil {
		return err
	}

	if req.Preview != "" {
		if err := a.writePreview(doc, req.Preview); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) validate(doc *scene.Document) error {
	findings := scene.Validate(doc)
	for _, f := range findings {
		switch f.Severity {
		case scene.SeverityError:
			a.logger.Error("validation", "index", f.Index, "message", f.Message)
		default:
			a.logger.Warn("validation", "index", f.Index, "message", f.Message)
		}
	}
	if scene.HasErrors(findings) {
		return ErrInvalidScene
	}
	a.logger.Info("validation passed", "findings", len(findings))
	return nil
}

func (a *App) writeDocument(s *scene.Scene, path string) error {
	if path == "" {
		return s.WriteJSON(a.out, a.cfg.Output.Indent)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := s.WriteJSON(f, a.cfg.Output.Indent); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	a.logger.Info("document written", "path", path)
	return nil
}

func (a *App) writePreview(doc *scene.Document, path string) error {
	format, err := preview.FormatFromPath(path)
	if err != nil {
		return err
	}

	set, err := tessellate.Tessellate(doc, a.kernel)
	if err != nil {
		return fmt.Errorf("tessellation failed: %w", err)
	}
	if b, ok, err := tessellate.SceneBounds(doc, a.kernel); err != nil {
		return err
	} else if ok {
		a.logger.Debug("scene bounds", "bounds", b.String())
	}

	out, err := preview.Build(doc, set)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := preview.Write(f, out, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	a.logger.Info("preview written", "path", path, "format", format.String(), "meshes", len(set.Meshes))
	return nil
}
