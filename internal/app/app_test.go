package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/twinscene/internal/config"
	"github.com/chazu/twinscene/pkg/scene"
)

const (
	plantScript   = "../../examples/plant.lisp"
	plantManifest = "../../examples/plant.jsonc"
)

// newTestApp returns an App writing documents to out and logs to logs.
func newTestApp(t *testing.T, out, logs *bytes.Buffer) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Preview.MeshCells = 16
	cfg.Log.Level = "debug"
	a, err := NewApp(out, logs, cfg)
	require.NoError(t, err)
	return a
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

// TestE2EPlantScript exercises the full path from a script file to the
// written document.
func TestE2EPlantScript(t *testing.T) {
	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)

	require.NoError(t, a.Run(Request{Input: plantScript}))

	doc := decode(t, out.Bytes())
	nodes := doc["nodes"].([]any)
	// tank, pump-a, pump-b, pressure tag, inflow indicator
	require.Len(t, nodes, 5)
	require.Equal(t, []any{0.0, 4.0}, doc["rootNodeIndexes"])

	pumpA := nodes[1].(map[string]any)
	require.Equal(t, "pump-a", pumpA["name"])
	require.Equal(t, []any{3.0}, pumpA["children"])

	rules := doc["rules"].(map[string]any)
	require.Contains(t, rules, "pressure")
	require.Contains(t, logs.String(), "scene built")
}

// TestE2EScriptAndManifestAgree checks that both input forms of the
// example plant produce byte-identical documents.
func TestE2EScriptAndManifestAgree(t *testing.T) {
	dir := t.TempDir()
	fromScript := filepath.Join(dir, "script.json")
	fromManifest := filepath.Join(dir, "manifest.json")

	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)
	require.NoError(t, a.Run(Request{Input: plantScript, Output: fromScript}))
	require.NoError(t, a.Run(Request{Input: plantManifest, Output: fromManifest}))
	require.Zero(t, out.Len(), "documents written to files leaked to output")

	want, err := os.ReadFile(fromScript)
	require.NoError(t, err)
	got, err := os.ReadFile(fromManifest)
	require.NoError(t, err)
	require.Equal(t, decode(t, want), decode(t, got))
}

func TestE2ESample(t *testing.T) {
	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)
	require.NoError(t, a.Run(Request{Sample: true}))

	var want bytes.Buffer
	require.NoError(t, scene.Sample().WriteJSON(&want, false))
	require.Equal(t, want.String(), out.String())
}

func TestE2EIndentedOutput(t *testing.T) {
	var out, logs bytes.Buffer
	cfg := config.Default()
	cfg.Output.Indent = true
	a, err := NewApp(&out, &logs, cfg)
	require.NoError(t, err)

	require.NoError(t, a.Run(Request{Sample: true}))
	require.Contains(t, out.String(), "\n  \"specVersion\"")
}

func TestE2EPreview(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"plant.glb", "plant.gltf"} {
		t.Run(name, func(t *testing.T) {
			var out, logs bytes.Buffer
			a := newTestApp(t, &out, &logs)
			path := filepath.Join(dir, name)

			require.NoError(t, a.Run(Request{Input: plantScript, Preview: path}))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			if filepath.Ext(name) == ".glb" {
				require.True(t, bytes.HasPrefix(data, []byte("glTF")), "missing glTF magic")
			} else {
				require.Contains(t, string(data), `"name": "tank"`)
			}
			require.Contains(t, logs.String(), "preview written")
			require.Contains(t, logs.String(), "scene bounds")
		})
	}
}

func TestE2EPreviewUnknownFormat(t *testing.T) {
	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)
	err := a.Run(Request{Sample: true, Preview: filepath.Join(t.TempDir(), "scene.obj")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown preview format")
}

// TestE2EValidateWarnings checks that the sample's detached tag is
// reported without failing the run.
func TestE2EValidateWarnings(t *testing.T) {
	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)

	require.NoError(t, a.Run(Request{Sample: true, Validate: true}))
	require.Contains(t, logs.String(), "level=WARN")
	require.Contains(t, logs.String(), "validation passed")
}

func TestE2ESyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.lisp")
	require.NoError(t, os.WriteFile(path, []byte(`(add-node (node "tank"`), 0o600))

	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)
	err := a.Run(Request{Input: path})

	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr), "error = %v", err)
	require.Equal(t, path, scriptErr.Path)
	require.NotEmpty(t, scriptErr.Errors)
	require.Zero(t, out.Len(), "document written despite script errors")
	require.Contains(t, logs.String(), "script error")
}

func TestE2EManifestError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"tags": [{"placement": "attach:ghost"}]}`), 0o600))

	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)
	err := a.Run(Request{Input: path})
	require.Error(t, err)
	require.Contains(t, err.Error(), path)
	require.Contains(t, err.Error(), "unknown node name")
}

func TestE2EInputErrors(t *testing.T) {
	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)

	require.ErrorIs(t, a.Run(Request{}), ErrNoInput)
	require.ErrorIs(t, a.Run(Request{Input: "scene.yaml"}), ErrUnknownInput)

	err := a.Run(Request{Input: filepath.Join(t.TempDir(), "missing.lisp")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading ")
}

func TestE2EEmptySource(t *testing.T) {
	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)

	for _, source := range []string{"", "   \n\t  ", "; only a comment\n"} {
		s, err := a.Evaluate("inline.lisp", source)
		require.NoError(t, err, "source %q", source)
		require.Zero(t, s.Len(), "source %q", source)
	}
}

func TestE2ERapidEvaluation(t *testing.T) {
	// Sequential calls on one App; the engine's generation counter must
	// not leak state between runs.
	var out, logs bytes.Buffer
	a := newTestApp(t, &out, &logs)

	sources := []string{
		`(add-node (node "a"))`,
		`(add-node (node "b" :children (list (node "b1"))))`,
		`(+ 1 2)`,
		``,
		`(tag "t" :root true)`,
		`(add-node (node "c"`,
		`(motion-indicator "m")`,
	}
	wantLen := []int{1, 2, 0, 0, 1, -1, 1}

	for i, source := range sources {
		s, err := a.Evaluate("inline.lisp", source)
		if wantLen[i] < 0 {
			require.Error(t, err, "source %d", i)
			continue
		}
		require.NoError(t, err, "source %d", i)
		require.Equal(t, wantLen[i], s.Len(), "source %d", i)
	}
}

func TestNewAppConfig(t *testing.T) {
	var out, logs bytes.Buffer

	cfg := config.Default()
	cfg.Scene.Unit = "feet"
	a, err := NewApp(&out, &logs, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Run(Request{Sample: true}))
	require.Equal(t, "feet", decode(t, out.Bytes())["unit"])

	bad := config.Default()
	bad.Log.Format = "xml"
	_, err = NewApp(&out, &logs, bad)
	require.ErrorIs(t, err, config.ErrInvalid)

	a, err = NewApp(&out, &logs, nil)
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger("warn", "json", &buf).Info("hidden")
	require.Zero(t, buf.Len())

	newLogger("warn", "json", &buf).Warn("shown", "k", 1)
	require.True(t, strings.HasPrefix(buf.String(), "{"))
	require.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger("bogus", "bogus", &buf).Info("fallback")
	require.Contains(t, buf.String(), "level=INFO")
}
