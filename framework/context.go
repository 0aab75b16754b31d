package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
}

// Context is the state of one test or subtest. Like testing.T, it can be passed to the
// assert and require packages.
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	checks      int
}

// Run runs a root test action and returns the accumulated results once it has finished.
func Run(
	filter Filter,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	c := &Context{env: env}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		if r := recover(); r != nil && !c.skipped {
			c.failed = true
			var addError error
			if _, ok := r.(*Context); ok {
				if len(c.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.recordFailure(addError)
			}
		}
		if len(c.id.Path) == 0 {
			return
		}
		result := TestResult{TestID: c.id, Errors: c.errors, Checks: c.checks, Skipped: c.skipped}
		c.env.results.Tests = append(c.env.results.Tests, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
		}
	}()

	action(c)
}

// ID returns the full identifier of this test.
func (c *Context) ID() TestID {
	return c.id
}

// Run runs a subtest, unless the filter excludes it.
func (c *Context) Run(name string, action func(*Context)) {
	c.runSubtest(name, true, action)
}

// RunGroup runs a subtest that only groups other subtests. The filter is not applied to
// the group itself, only to whatever it runs with Run.
func (c *Context) RunGroup(name string, action func(*Context)) {
	c.runSubtest(name, false, action)
}

func (c *Context) runSubtest(name string, filtered bool, action func(*Context)) {
	id := c.id.Plus(name)

	c.env.testLogger.TestStarted(id)
	if filtered && !c.Selected(name) {
		c.env.results.Tests = append(c.env.results.Tests, TestResult{TestID: id, Skipped: true})
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, c1.failed, c1.checks, c1.debugLogger.Output())
	}
}

// Selected reports whether a subtest with this name would pass the filter.
func (c *Context) Selected(name string) bool {
	return c.env.filter == nil || c.env.filter(c.id.Plus(name))
}

// Check records the outcome of one named check. A nil error is a pass.
func (c *Context) Check(name string, err error) {
	c.checks++
	if err == nil {
		c.env.results.RecordPass()
		return
	}
	c.recordFailure(fmt.Errorf("%s: %w", name, err))
}

// FailChecks records every named check as failed because of a single cause, such as the
// test service being unreachable. The cause is logged once.
func (c *Context) FailChecks(names []string, cause error) {
	c.failed = true
	c.errors = append(c.errors, cause)
	c.env.testLogger.TestError(c.id, cause)
	for _, name := range names {
		c.checks++
		err := TestFailure{ID: c.id, Err: fmt.Errorf("%s: not checked: %w", name, cause)}
		c.env.results.RecordFail(err.Error())
	}
}

// Errorf is called by assertions to log a failure. It counts as one failed check and does
// not cause an immediate exit.
func (c *Context) Errorf(format string, args ...interface{}) {
	c.checks++
	c.recordFailure(fmt.Errorf(format, args...))
}

func (c *Context) recordFailure(err error) {
	c.failed = true
	c.errors = append(c.errors, err)
	c.env.results.RecordFail(TestFailure{ID: c.id, Err: err}.Error())
	c.env.testLogger.TestError(c.id, err)
}

// FailNow is called by the require package to stop the test.
func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}
