package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsandas/tlstools-contract-tests/framework"
	"github.com/jsandas/tlstools-contract-tests/tlstests"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var params commandParams
	if err := params.Read(args, stderr); err != nil {
		return 1
	}
	color.NoColor = params.noColor || !isTerminal(stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = framework.LoggerWithPrefix(log.New(stdout, "", log.LstdFlags), "[harness] ")
	}

	harness := framework.NewTestHarness(params.serviceURL, params.requestTimeout, mainDebugLogger)
	if err := harness.AwaitTestService(ctx, params.readyTimeout, stdout); err != nil {
		fmt.Fprintf(stderr, "Test service error: %s\n", err)
		if ctx.Err() != nil {
			return 1
		}
		fmt.Fprintln(stderr, "Running the test suite anyway; checks that cannot reach the service will fail")
	}

	fmt.Fprintln(stdout)
	framework.PrintFilterDescription(stdout, params.filters)

	fmt.Fprintln(stdout, "Running test suite")

	testLogger := &ConsoleTestLogger{
		Out:                  stdout,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	results, err := tlstests.RunTestSuite(ctx, harness, params.parallelism, params.filters.AsFilter, testLogger)
	if err != nil {
		fmt.Fprintf(stderr, "Cannot run test suite: %s\n", err)
		return 1
	}

	fmt.Fprintln(stdout)
	if !results.OK() {
		framework.PrintResults(stderr, results)
		return 1
	}
	framework.PrintResults(stdout, results)
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
