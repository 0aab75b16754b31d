// Package tlstests contains the tlstools contract tests: the table of expected results,
// the client for the service's scan and parse endpoints, the comparison of responses
// against expectations, and the driver that runs every case.
//
// Infrastructure that is not specific to TLS scanning, such as talking to the test service
// and counting checks, is in the lower-level framework package.
package tlstests
