package framework

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTestLogger struct {
	started  []string
	errors   []string
	finished []string
	skipped  []string
}

func (r *recordingTestLogger) TestStarted(id TestID) { r.started = append(r.started, id.String()) }

func (r *recordingTestLogger) TestError(id TestID, err error) {
	r.errors = append(r.errors, id.String()+": "+err.Error())
}

func (r *recordingTestLogger) TestFinished(id TestID, failed bool, checks int, _ CapturedOutput) {
	r.finished = append(r.finished, id.String())
}

func (r *recordingTestLogger) TestSkipped(id TestID, reason string) {
	r.skipped = append(r.skipped, id.String()+" ("+reason+")")
}

func TestChecksAreCountedIndividually(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Check("one", nil)
			c.Check("two", errors.New("got x, wanted y"))
			c.Check("three", nil)
		})
		c.Run("b", func(c *Context) {
			c.Check("one", nil)
		})
	})

	s := results.Summarize()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, []string{"[a]: two: got x, wanted y"}, s.Messages)
	assert.False(t, results.OK())

	require.Len(t, results.Tests, 2)
	assert.Equal(t, 3, results.Tests[0].Checks)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "a", results.Failures[0].TestID.String())
}

func TestFailChecksRecordsOneFailurePerCheck(t *testing.T) {
	logger := &recordingTestLogger{}
	cause := errors.New("connection refused")
	results := Run(nil, logger, func(c *Context) {
		c.Run("host", func(c *Context) {
			c.FailChecks([]string{"keyType", "serverHeader", "protocolCount"}, cause)
		})
	})

	s := results.Summarize()
	assert.Equal(t, 3, s.Failed)
	assert.Equal(t, 0, s.Passed)
	assert.Equal(t, "[host]: keyType: not checked: connection refused", s.Messages[0])
	assert.Equal(t, []string{"host: connection refused"}, logger.errors)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, 3, results.Failures[0].Checks)
}

func TestAssertionsCountAsChecks(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("asserts", func(c *Context) {
			assert.Equal(c, "a", "b")
		})
	})
	s := results.Summarize()
	assert.Equal(t, 1, s.Failed)
}

func TestRequireStopsTest(t *testing.T) {
	reached := false
	results := Run(nil, nil, func(c *Context) {
		c.Run("requires", func(c *Context) {
			require.True(c, false)
			reached = true
		})
	})
	assert.False(t, reached)
	assert.Equal(t, 1, results.Summarize().Failed)
}

func TestPanicInTestIsRecordedAsFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("panics", func(c *Context) {
			panic("boom")
		})
		c.Run("after", func(c *Context) {
			c.Check("still runs", nil)
		})
	})
	s := results.Summarize()
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Passed)
	assert.True(t, strings.HasPrefix(s.Messages[0], "[panics]: unexpected panic in test: boom"))
}

func TestSkippedTestRecordsNoChecks(t *testing.T) {
	logger := &recordingTestLogger{}
	results := Run(nil, logger, func(c *Context) {
		c.Run("skipped", func(c *Context) {
			c.SkipWithReason("not today")
		})
	})
	assert.Equal(t, 0, results.Summarize().Total)
	assert.Equal(t, []string{"skipped (not today)"}, logger.skipped)
	assert.True(t, results.OK())

	require.Len(t, results.Tests, 1)
	assert.Equal(t, "skipped", results.Tests[0].TestID.String())
	assert.True(t, results.Tests[0].Skipped)
	assert.Empty(t, results.Failures)
}

func TestFilteredTestIsRecordedAsSkipped(t *testing.T) {
	var filters RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("^b$"))

	results := Run(filters.AsFilter, nil, func(c *Context) {
		c.Run("a", func(c *Context) { c.Check("one", nil) })
		c.Run("b", func(c *Context) { c.Check("one", nil) })
	})

	require.Len(t, results.Tests, 2)
	assert.False(t, results.Tests[0].Skipped)
	assert.Equal(t, 1, results.Tests[0].Checks)
	assert.Equal(t, "b", results.Tests[1].TestID.String())
	assert.True(t, results.Tests[1].Skipped)
	assert.Equal(t, 1, results.Summarize().Total)
}

func TestFilterAppliesToRunButNotRunGroup(t *testing.T) {
	var filters RegexFilters
	require.NoError(t, filters.MustMatch.Set("^scan/b$"))
	logger := &recordingTestLogger{}

	var ran []string
	Run(filters.AsFilter, logger, func(c *Context) {
		c.RunGroup("scan", func(c *Context) {
			for _, name := range []string{"a", "b"} {
				c.Run(name, func(c *Context) {
					ran = append(ran, c.ID().String())
				})
			}
		})
	})

	assert.Equal(t, []string{"scan/b"}, ran)
	assert.Equal(t, []string{"scan/a (excluded by filter parameters)"}, logger.skipped)
}

func TestSummaryString(t *testing.T) {
	assert.Equal(t, "2 of 5 tests failed", Summary{Total: 5, Passed: 3, Failed: 2}.String())
	assert.Equal(t, "5 of 5 tests passed", Summary{Total: 5, Passed: 5}.String())
}

func TestPrintResults(t *testing.T) {
	var results Results
	results.RecordPass()
	results.RecordFail("[x]: keyType: wrong")

	var buf strings.Builder
	PrintResults(&buf, results)
	assert.Equal(t, "Failed checks:\n  [x]: keyType: wrong\n\n 1 of 2 tests failed\n", buf.String())
}

func TestTestIDPlusDoesNotShareBackingArray(t *testing.T) {
	parent := TestID{Path: make([]string, 1, 4)}
	parent.Path[0] = "scan"
	a := parent.Plus("a")
	b := parent.Plus("b")
	assert.Equal(t, "scan/a", a.String())
	assert.Equal(t, "scan/b", b.String())
}
