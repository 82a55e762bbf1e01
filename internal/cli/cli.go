package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/stagewalk/internal/app"
)

// ExitError carries a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating the program should exit cleanly (help requested or
// nothing to do), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("stagewalk", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
stagewalk - resolve declarative stage paths into computation graphs.

Usage:
  stagewalk [options] TARGET...

Arguments:
  TARGET
    A dot-separated stage path to resolve, e.g. "myproject.trimQ20.assemble".

Options:
`)
		flagSet.PrintDefaults()
	}

	defsFlag := flagSet.String("defs", "stages", "Path to a stage definition file or directory.")
	workspaceFlag := flagSet.String("workspace", "", "Path to the workspace configuration file.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Log level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		DefsPath:      *defsFlag,
		WorkspacePath: *workspaceFlag,
		Targets:       flagSet.Args(),
		LogFormat:     logFormat,
		LogLevel:      logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}
