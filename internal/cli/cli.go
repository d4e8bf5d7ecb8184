package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/wzt1001/lightrag-on-aws/internal/app"
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

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("lightrag-console", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
LightRAG Console - manage, populate and query knowledge contexts.

Usage:
  lightrag-console [options] [COMMAND [ARGS...]]

With no COMMAND an interactive session starts. Run the 'help' command for
the full command list.

Options:
`)
		flagSet.PrintDefaults()
	}

	serverFlag := flagSet.String("server", "", "Base URL of the retrieval server.")
	configFlag := flagSet.String("config", "console.hcl", "Path to an .hcl config file or a directory of them.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format: 'text' or 'json'. Falls back to the config file's logging block, then 'text'.")
	logLevelFlag := flagSet.String("log-level", "", "Logging level: 'debug', 'info', 'warn' or 'error'. Falls back to the config file's logging block, then 'warn'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	config, err := app.NewConfig(app.Config{
		ServerURL:  *serverFlag,
		ConfigPath: *configFlag,
		LogFormat:  strings.ToLower(*logFormatFlag),
		LogLevel:   strings.ToLower(*logLevelFlag),
		Command:    flagSet.Args(),
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
