// Command twinscene builds TwinMaker scene documents from Lisp scripts or
// JSONC manifests and optionally exports a glTF preview.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/twinscene/internal/app"
	"github.com/chazu/twinscene/internal/cli"
)

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and executes one build. Documents go to stdout, logs
// and help text to stderr.
func run(stdout, stderr io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, stderr)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	cfg, err := opts.Config()
	if err != nil {
		return err
	}

	a, err := app.NewApp(stdout, stderr, cfg)
	if err != nil {
		return err
	}
	return a.Run(opts.Request)
}
