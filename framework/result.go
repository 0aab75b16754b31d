package framework

import (
	"fmt"
	"io"
	"strings"
)

// Results accumulates the outcome of a test run: one TestResult per test, and a running
// count of the individual checks made by those tests.
type Results struct {
	Tests    []TestResult
	Failures []TestResult
	passed   int
	failed   int
	messages []string
}

type TestResult struct {
	TestID  TestID
	Errors  []error
	Checks  int
	Skipped bool
}

// Summary is the final tally of a run.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Messages []string
}

func (r *Results) RecordPass() {
	r.passed++
}

func (r *Results) RecordFail(message string) {
	r.failed++
	r.messages = append(r.messages, message)
}

func (r Results) Summarize() Summary {
	return Summary{
		Total:    r.passed + r.failed,
		Passed:   r.passed,
		Failed:   r.failed,
		Messages: append([]string(nil), r.messages...),
	}
}

// OK is true if no check failed.
func (r Results) OK() bool {
	return r.failed == 0
}

func (s Summary) String() string {
	if s.Failed > 0 {
		return fmt.Sprintf("%d of %d tests failed", s.Failed, s.Total)
	}
	return fmt.Sprintf("%d of %d tests passed", s.Passed, s.Total)
}

// PrintResults writes every failure message, if any, followed by the summary line.
func PrintResults(w io.Writer, results Results) {
	s := results.Summarize()
	if s.Failed > 0 {
		fmt.Fprintln(w, "Failed checks:")
		for _, m := range s.Messages {
			fmt.Fprintf(w, "  %s\n", m)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, " %s\n", s)
}

type TestID struct {
	Path []string
}

// Plus returns the identifier of a subtest of this test.
func (t TestID) Plus(name string) TestID {
	return TestID{Path: append(append([]string(nil), t.Path...), name)}
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}

func (f TestFailure) Unwrap() error {
	return f.Err
}
