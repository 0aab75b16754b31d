package tlstests

import (
	"context"

	"github.com/jsandas/tlstools-contract-tests/framework"
)

// RunTestSuite runs every case of the embedded expectation table against the service
// behind harness.
func RunTestSuite(
	ctx context.Context,
	harness *framework.TestHarness,
	parallelism int,
	filter framework.Filter,
	testLogger framework.TestLogger,
) (framework.Results, error) {
	table, err := LoadExpectations()
	if err != nil {
		return framework.Results{}, err
	}
	driver := NewDriver(NewServiceClient(harness), table, parallelism)
	return driver.Run(ctx, filter, testLogger)
}
