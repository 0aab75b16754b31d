package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerWithPrefix(t *testing.T) {
	var captured CapturingLogger
	logger := LoggerWithPrefix(&captured, "[harness] ")
	logger.Printf("Test service not ready: %s", "connection refused")
	logger.Printf("done")

	output := captured.Output()
	if assert.Len(t, output, 2) {
		assert.Equal(t, "[harness] Test service not ready: connection refused", output[0].Message)
		assert.Equal(t, "[harness] done", output[1].Message)
	}

	assert.Equal(t, NullLogger(), LoggerWithPrefix(nil, "x"))
}
