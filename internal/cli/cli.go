// Package cli parses twinscene's command line, validates user input and
// turns flags into a configuration and a run request.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/chazu/twinscene/internal/app"
	"github.com/chazu/twinscene/internal/config"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// usageError reports a command-line mistake with exit code 2.
func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Options holds the parsed command line.
type Options struct {
	Request    app.Request
	ConfigPath string

	indent    bool
	logLevel  string
	logFormat string
	changed   map[string]bool
}

// Parse processes args. It returns the parsed options, whether the program
// should exit cleanly (help was printed), or an *ExitError.
func Parse(args []string, out io.Writer) (*Options, bool, error) {
	opts := &Options{changed: make(map[string]bool)}

	flagSet := pflag.NewFlagSet("twinscene", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.Usage = func() {
		fmt.Fprint(out, `twinscene builds TwinMaker scene documents from Lisp scripts or JSONC manifests.

Usage:
  twinscene [options] <scene.lisp | scene.jsonc>
  twinscene [options] --sample

Options:
`)
		flagSet.PrintDefaults()
	}

	flagSet.StringVarP(&opts.Request.Output, "output", "o", "", "write the scene document to this file (default: stdout)")
	flagSet.BoolVar(&opts.indent, "indent", false, "pretty-print the scene document")
	flagSet.StringVar(&opts.ConfigPath, "config", "", "path to a YAML configuration file")
	flagSet.StringVar(&opts.Request.Preview, "preview", "", "also export a glTF preview (.glb or .gltf)")
	flagSet.BoolVar(&opts.Request.Validate, "validate", false, "report structural findings; errors fail the run")
	flagSet.BoolVar(&opts.Request.Sample, "sample", false, "emit the reference scene instead of reading an input")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flagSet.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	help := flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%v", err)
	}
	if *help {
		flagSet.Usage()
		return nil, true, nil
	}
	flagSet.Visit(func(f *pflag.Flag) { opts.changed[f.Name] = true })

	switch flagSet.NArg() {
	case 0:
		if !opts.Request.Sample {
			flagSet.Usage()
			return nil, false, usageError("missing input file")
		}
	case 1:
		if opts.Request.Sample {
			return nil, false, usageError("--sample does not take an input file")
		}
		opts.Request.Input = flagSet.Arg(0)
	default:
		return nil, false, usageError("unexpected argument: %s", flagSet.Arg(1))
	}

	opts.logLevel = strings.ToLower(opts.logLevel)
	switch opts.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid --log-level %q: must be debug, info, warn or error", opts.logLevel)
	}
	opts.logFormat = strings.ToLower(opts.logFormat)
	if opts.logFormat != "text" && opts.logFormat != "json" {
		return nil, false, usageError("invalid --log-format %q: must be text or json", opts.logFormat)
	}

	return opts, false, nil
}

// Config loads the configuration file, if any, and applies the flags the
// user set explicitly on top of it.
func (o *Options) Config() (*config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.LoadFile(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.changed["indent"] {
		cfg.Output.Indent = o.indent
	}
	if o.changed["log-level"] {
		cfg.Log.Level = o.logLevel
	}
	if o.changed["log-format"] {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}
