package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jsandas/tlstools-contract-tests/framework"

	"github.com/fatih/color"
)

var (
	failureColor = color.New(color.FgRed, color.Bold)
	errorColor   = color.New(color.FgRed)
	skipColor    = color.New(color.FgYellow)
	debugColor   = color.New(color.Faint)
)

// ConsoleTestLogger prints test progress as it happens. Colors follow color.NoColor.
type ConsoleTestLogger struct {
	Out                  io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	fmt.Fprintf(c.Out, "[%s]\n", id)
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		errorColor.Fprintf(c.Out, "  %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, failed bool, checks int, debugOutput framework.CapturedOutput) {
	if failed {
		failureColor.Fprintf(c.Out, "  FAILED: %s\n", id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		var buf strings.Builder
		debugOutput.Dump(&buf, "    DEBUG ")
		debugColor.Fprint(c.Out, buf.String())
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	if reason == "" {
		skipColor.Fprintf(c.Out, "  SKIPPED: %s\n", id)
	} else {
		skipColor.Fprintf(c.Out, "  SKIPPED: %s (%s)\n", id, reason)
	}
}
