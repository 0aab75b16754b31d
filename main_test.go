package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jsandas/tlstools-contract-tests/tlstests"

	"github.com/fatih/color"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsDefaults(t *testing.T) {
	var params commandParams
	require.NoError(t, params.Read([]string{"tlstools-contract-tests"}, &bytes.Buffer{}))

	assert.Equal(t, defaultServiceURL, params.serviceURL)
	assert.Equal(t, 1, params.parallelism)
	assert.Equal(t, defaultRequestTimeout, params.requestTimeout)
	assert.Equal(t, defaultReadyTimeout, params.readyTimeout)
	assert.False(t, params.filters.IsDefined())
}

func TestParamsFlags(t *testing.T) {
	var params commandParams
	err := params.Read([]string{"tlstools-contract-tests",
		"-url", "https://tlstools.example.com/api/v1", "-parallel", "4", "-timeout", "5s",
		"-run", "^scan/", "-skip", "postfix", "-debug", "-no-color",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "https://tlstools.example.com/api/v1", params.serviceURL)
	assert.Equal(t, 4, params.parallelism)
	assert.Equal(t, time.Second*5, params.requestTimeout)
	assert.True(t, params.debug)
	assert.True(t, params.noColor)
	assert.True(t, params.filters.MustMatch.AnyMatch("scan/nginx_good"))
	assert.True(t, params.filters.MustNotMatch.AnyMatch("scan/postfix_bad:25"))
}

func TestParamsRejectInvalidValues(t *testing.T) {
	for _, args := range [][]string{
		{"-url", "localhost:8080"},
		{"-parallel", "0"},
		{"-timeout", "0s"},
		{"-run", "("},
		{"-unknown"},
	} {
		t.Run(args[0], func(t *testing.T) {
			var params commandParams
			var output bytes.Buffer
			err := params.Read(append([]string{"tlstools-contract-tests"}, args...), &output)
			assert.Error(t, err)
			assert.Contains(t, output.String(), "Usage")
		})
	}
}

func embeddedCheckCount(t *testing.T) int {
	table, err := tlstests.LoadExpectations()
	require.NoError(t, err)
	n := 0
	for _, e := range table.ScanCases() {
		n += len(tlstests.ExpectedScanChecks(e))
	}
	for _, e := range table.ParseCases() {
		n += len(tlstests.ExpectedParseChecks(e))
	}
	return n
}

func TestRunFailsEveryCheckWhenServiceNeverResponds(t *testing.T) {
	server := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	serviceURL := server.URL
	server.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"tlstools-contract-tests", "-url", serviceURL, "-ready-timeout", "100ms", "-debug-all"},
		&stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Test service error")
	assert.Contains(t, stdout.String(), "[harness] Test service not ready")
	assert.Contains(t, stdout.String(), "FAILED: scan/nginx_good")
	assert.Contains(t, stderr.String(), "[parse/ecdsa_csr]: keyType: not checked")

	total := embeddedCheckCount(t)
	assert.True(t, strings.HasSuffix(stderr.String(), fmt.Sprintf("\n %d of %d tests failed\n", total, total)),
		stderr.String())
}

func TestRunReportsFailuresOnStderr(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(500), func(server *httptest.Server) {
		var stdout, stderr bytes.Buffer
		code := run([]string{"tlstools-contract-tests", "-url", server.URL + "/api/v1", "-parallel", "3"},
			&stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.True(t, color.NoColor)
		assert.Contains(t, stdout.String(), "[scan/nginx_good]")
		assert.Contains(t, stdout.String(), "FAILED: scan/nginx_good")
		assert.Contains(t, stderr.String(), "Failed checks:")
		assert.Contains(t, stderr.String(), "[parse/rsa_certificate]: keyType: not checked")
		assert.Regexp(t, `\n (\d+) of (\d+) tests failed\n$`, stderr.String())
	})
}

func TestRunSkipsEverythingExcluded(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(500), func(server *httptest.Server) {
		var stdout, stderr bytes.Buffer
		code := run([]string{"tlstools-contract-tests", "-url", server.URL, "-skip", "."}, &stdout, &stderr)
		assert.Equal(t, 0, code)
		assert.Contains(t, stdout.String(), "Some tests will be skipped")
		assert.Contains(t, stdout.String(), "SKIPPED: scan/nginx_good")
		assert.Contains(t, stdout.String(), " 0 of 0 tests passed\n")
		assert.Empty(t, stderr.String())
	})
}
