// Package cli parses the cache tool's command line.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/prooftree/internal/config"
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

// Command is the parsed invocation of the cache tool.
type Command struct {
	Config *config.Config

	// Name is one of "list", "show" or "clear".
	Name string

	// Fingerprint is the argument of the show command.
	Fingerprint string
}

// Parse processes command-line arguments. It returns the parsed command, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Command, bool, error) {
	flagSet := flag.NewFlagSet("prooftree", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
prooftree - inspect and maintain an analysis cache directory.

Usage:
  prooftree [options] COMMAND [ARGS]

Commands:
  list               List cached blobs with size and modification time.
  show FINGERPRINT   Decode one blob and print its keys and values.
  clear              Delete every blob in the cache directory.

Options:
`)
		flagSet.PrintDefaults()
	}

	cacheDirFlag := flagSet.String("cache-dir", "", "Path to the cache directory.")
	configFlag := flagSet.String("config", "", "Path to an HCL config file.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

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

	configPath := config.DefaultPath
	required := false
	if *configFlag != "" {
		configPath = *configFlag
		required = true
	}
	fileCfg, err := config.LoadFile(configPath, required)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	// Flags override file values.
	if *cacheDirFlag != "" {
		fileCfg.CacheDir = *cacheDirFlag
	}
	if *logLevelFlag != "" {
		fileCfg.LogLevel = strings.ToLower(*logLevelFlag)
	}
	if *logFormatFlag != "" {
		fileCfg.LogFormat = strings.ToLower(*logFormatFlag)
	}

	cfg, err := config.New(*fileCfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cmd := &Command{Config: cfg, Name: flagSet.Arg(0)}
	switch cmd.Name {
	case "list", "clear":
		// no arguments
	case "show":
		if flagSet.NArg() < 2 {
			return nil, false, &ExitError{Code: 2, Message: "show requires a FINGERPRINT argument"}
		}
		cmd.Fingerprint = flagSet.Arg(1)
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", cmd.Name)}
	}

	return cmd, false, nil
}
