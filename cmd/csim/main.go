// Package main provides the csim command, a trace-driven cache simulator.
//
// Usage:
//
//	csim [-hv] -s <num> -E <num> -b <num> -t <file>
//	csim sweep -t <file> --config <sweep.json> [--format table|csv|json]
//	csim sessions <recording.sqlite3>
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/csim/config"
)

const programName = "csim"

func main() {
	atexit.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks errors that should be followed by the usage text.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// run executes the command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}

	_, _ = fmt.Fprintf(stderr, "%s: %v\n", programName, err)

	var cfgErr *config.Error
	var usageErr *usageError
	if errors.As(err, &cfgErr) || errors.As(err, &usageErr) {
		_, _ = fmt.Fprint(stderr, cmd.UsageString())
	}

	return 1
}

func flagError(_ *cobra.Command, err error) error {
	return &usageError{err: err}
}
