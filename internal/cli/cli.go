// Package cli parses the command line into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/vk/pluginrig/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating the program should exit cleanly (help was shown), or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("pluginrig", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
pluginrig - a plugin-based computational engine.

Usage:
  pluginrig [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	manifestFlag := flagSet.String("manifest", "", "Path to an HCL run manifest.")
	runFlag := flagSet.String("run", "", "Key of the module to run.")
	docsFlag := flagSet.Bool("docs", false, "Print module documentation as reStructuredText and exit.")
	cacheDirFlag := flagSet.String("cache-dir", "", "Directory for the persistent result cache. Empty keeps caching in memory.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if args := flagSet.Args(); len(args) > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %v", args)}
	}

	cfg := &app.Config{
		ManifestPath: *manifestFlag,
		RunKey:       *runFlag,
		Docs:         *docsFlag,
		CacheDir:     *cacheDirFlag,
		LogFormat:    *logFormatFlag,
		LogLevel:     *logLevelFlag,
	}
	return cfg, false, nil
}
