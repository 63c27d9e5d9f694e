package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "error = %v", err)
	require.Equal(t, code, exitErr.Code)
}

func TestParse_Help(t *testing.T) {
	for _, arg := range []string{"-h", "--help"} {
		out := &bytes.Buffer{}
		opts, shouldExit, err := Parse([]string{arg}, out)
		require.NoError(t, err)
		require.True(t, shouldExit)
		require.Nil(t, opts)
		require.Contains(t, out.String(), "Usage:")
		require.Contains(t, out.String(), "--preview")
	}
}

func TestParse_Input(t *testing.T) {
	opts, shouldExit, err := Parse([]string{"-o", "out.json", "--preview", "out.glb", "--validate", "plant.lisp"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, shouldExit)
	require.Equal(t, "plant.lisp", opts.Request.Input)
	require.Equal(t, "out.json", opts.Request.Output)
	require.Equal(t, "out.glb", opts.Request.Preview)
	require.True(t, opts.Request.Validate)
	require.False(t, opts.Request.Sample)
}

func TestParse_Sample(t *testing.T) {
	opts, _, err := Parse([]string{"--sample"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.True(t, opts.Request.Sample)
	require.Empty(t, opts.Request.Input)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", nil, "missing input file"},
		{"two inputs", []string{"a.lisp", "b.lisp"}, "unexpected argument: b.lisp"},
		{"sample with input", []string{"--sample", "a.lisp"}, "--sample does not take"},
		{"bad level", []string{"--log-level", "loud", "a.lisp"}, "invalid --log-level"},
		{"bad format", []string{"--log-format", "xml", "a.lisp"}, "invalid --log-format"},
		{"unknown flag", []string{"--bogus", "a.lisp"}, "bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.args, &bytes.Buffer{})
			requireExitCode(t, err, 2)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOptionsConfig_Defaults(t *testing.T) {
	opts, _, err := Parse([]string{"--sample"}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg, err := opts.Config()
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.False(t, cfg.Output.Indent)
}

func TestOptionsConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twinscene.yaml")
	body := "log:\n  level: debug\n  format: json\noutput:\n  indent: true\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	// Only --log-format is set explicitly; the file's level and indent stay.
	opts, _, err := Parse([]string{"--config", path, "--log-format", "TEXT", "--sample"}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg, err := opts.Config()
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.True(t, cfg.Output.Indent)

	opts, _, err = Parse([]string{"--config", path, "--indent=false", "--sample"}, &bytes.Buffer{})
	require.NoError(t, err)
	cfg, err = opts.Config()
	require.NoError(t, err)
	require.False(t, cfg.Output.Indent)
}

func TestOptionsConfig_BadFile(t *testing.T) {
	opts, _, err := Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--sample"}, &bytes.Buffer{})
	require.NoError(t, err)
	_, err = opts.Config()
	require.Error(t, err)
}
