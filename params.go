package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/jsandas/tlstools-contract-tests/framework"
)

const (
	defaultServiceURL     = "http://localhost:8080/api/v1"
	defaultRequestTimeout = time.Second * 90
	defaultReadyTimeout   = time.Second * 30
)

type commandParams struct {
	serviceURL     string
	filters        framework.RegexFilters
	parallelism    int
	requestTimeout time.Duration
	readyTimeout   time.Duration
	debug          bool
	debugAll       bool
	noColor        bool
}

// Read parses the command line. Problems are written to output along with the usage text.
func (c *commandParams) Read(args []string, output io.Writer) error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&c.serviceURL, "url", defaultServiceURL, "base URL of the tlstools API")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.IntVar(&c.parallelism, "parallel", 1, "number of test cases to send to the service at once")
	fs.DurationVar(&c.requestTimeout, "timeout", defaultRequestTimeout, "timeout for each request to the service")
	fs.DurationVar(&c.readyTimeout, "ready-timeout", defaultReadyTimeout, "how long to wait for the service to respond at startup")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	fs.BoolVar(&c.noColor, "no-color", false, "disable colored output")

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	err := c.validate()
	if err != nil {
		fmt.Fprintln(output, err)
		fs.Usage()
	}
	return err
}

func (c *commandParams) validate() error {
	u, err := url.Parse(c.serviceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("-url must be an absolute http or https URL, not %q", c.serviceURL)
	}
	if c.parallelism < 1 {
		return errors.New("-parallel must be at least 1")
	}
	if c.requestTimeout <= 0 || c.readyTimeout <= 0 {
		return errors.New("-timeout and -ready-timeout must be positive")
	}
	return nil
}
