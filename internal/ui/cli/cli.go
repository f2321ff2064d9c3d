// Package cli implements the sapling command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"sapling/internal/core/config"

	"github.com/spf13/cobra"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	appName     = "sapling"
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagFormat  = "format"
	flagOutput  = "output"
)

// errRejected signals that at least one grammar failed to decode or
// validate. The details were already rendered.
var errRejected = errors.New("one or more grammars were rejected")

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type rootParams struct {
	configPath string
	verbose    bool
	format     string
	output     string
}

// Execute runs the command line with args and returns the process exit
// code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rt := &runtime{stdout: stdout, stderr: stderr}
	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	rt.shutdown()

	var uerr usageError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errRejected):
		return exitFailed
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Validate tree-sitter style grammars",
		Long:          "Check grammar rule sets for undefined symbols, unreachable rules, left recursion and inconsistent precedence.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(cmd)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&rt.params.configPath, flagConfig, "c", config.DefaultFile, "path to the configuration file")
	flags.BoolVarP(&rt.params.verbose, flagVerbose, "v", false, "enable debug logging")
	flags.StringVarP(&rt.params.format, flagFormat, "f", "", "output format (text, json, sarif, dot)")
	flags.StringVarP(&rt.params.output, flagOutput, "o", "", "write output to a file instead of stdout")

	root.AddCommand(
		newValidateCommand(rt),
		newGraphCommand(rt),
		newTraceCommand(rt),
		newReferrersCommand(rt),
		newHistoryCommand(rt),
		newWatchCommand(rt),
		newVersionCommand(),
	)
	return root
}
