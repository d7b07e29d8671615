package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/msrp-tools/msrp-contract-tests/endpointtests"
	"github.com/msrp-tools/msrp-contract-tests/framework"
)

const (
	exitFailure      = 1
	exitCommandError = 2
)

// errTestsFailed is returned when the suite ran but at least one test failed.
var errTestsFailed = errors.New("some tests failed")

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	var params commandParams
	cmd := newRootCommand(&params, func(cmd *cobra.Command) error {
		return runTests(cmd, &params, stdout)
	})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errTestsFailed):
		return exitFailure
	default:
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return exitCommandError
	}
}

func runTests(cmd *cobra.Command, params *commandParams, out io.Writer) error {
	config, err := params.harnessConfig(cmd)
	if err != nil {
		return err
	}

	var mainDebugLogger framework.Logger
	if params.debugAll {
		zapLogger, err := framework.NewZapLogger()
		if err != nil {
			return err
		}
		defer func() { _ = zapLogger.Sync() }()
		mainDebugLogger = zapLogger
	}

	// With --json, stdout carries only the JSON results.
	console := out
	if params.jsonOutput {
		console = cmd.ErrOrStderr()
	}

	var endpointCommand commandBuilder
	endpointCommand.add(config.Endpoint.Command...)
	fmt.Fprintf(console, "Endpoint command: %s\n\n", endpointCommand)
	params.filters.Describe(console)

	fmt.Fprintln(console, "Running test suite")

	testLogger := &ConsoleTestLogger{
		Out:                  console,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	results := endpointtests.RunTestSuite(config, params.filters.AsFilter, testLogger, mainDebugLogger)

	fmt.Fprintln(console)
	printResults(console, results)
	if params.jsonOutput {
		if err := writeJSONResults(out, results); err != nil {
			return err
		}
	}
	if !results.OK() {
		return errTestsFailed
	}
	return nil
}
