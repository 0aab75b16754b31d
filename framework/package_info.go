// Package framework contains the low-level implementation of test harness infrastructure
// that does not know anything about TLS scanning.
//
// The general model is:
//
// 1. The test harness talks to a test service over HTTP. It first waits for the service
// to become reachable, then sends it one request per test case and reads the response
// body. Anything that prevents a usable response from coming back is a TransportError.
//
// 2. There is a general notion of a test context which is similar to Go's testing.T,
// allowing pieces of test logic to be associated with a test identifier. Every individual
// check made inside a test is counted, so that the final summary reports how many checks
// passed or failed, not just how many tests.
//
// The domain-specific code that knows what is being tested is responsible for providing
// the requests to send to the test service, decoding the responses, and deciding which
// checks to make.
package framework
