package framework

// TestLogger receives progress notifications while tests run.
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, failed bool, checks int, debugOutput CapturedOutput)
	TestSkipped(id TestID, reason string)
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                             {}
func (n nullTestLogger) TestError(TestID, error)                        {}
func (n nullTestLogger) TestFinished(TestID, bool, int, CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                     {}
