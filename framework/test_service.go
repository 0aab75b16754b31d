package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const readinessPollInterval = time.Millisecond * 500

// TestHarness is the harness's connection to the test service. It holds no state between
// requests other than the underlying HTTP client.
type TestHarness struct {
	testServiceBaseURL string
	httpClient         *http.Client
	logger             Logger
}

// ServiceRequest describes one request to the test service. Path is relative to the base
// URL of the service.
type ServiceRequest struct {
	Method      string
	Path        string
	Query       url.Values
	ContentType string
	Body        []byte
}

// TransportError means that no usable response was obtained from the test service: the
// connection failed or timed out, the service returned an error status, or the body could
// not be decoded.
type TransportError struct {
	Target     string
	Method     string
	URL        string
	StatusCode int
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to query test service for %s (%s %s): HTTP %d: %s",
			e.Target, e.Method, e.URL, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("failed to query test service for %s (%s %s): %s", e.Target, e.Method, e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// NewTestHarness creates a TestHarness for the test service at testServiceBaseURL.
// requestTimeout bounds every request to the service.
func NewTestHarness(
	testServiceBaseURL string,
	requestTimeout time.Duration,
	debugLogger Logger,
) *TestHarness {
	if debugLogger == nil {
		debugLogger = NullLogger()
	}
	return &TestHarness{
		testServiceBaseURL: strings.TrimSuffix(testServiceBaseURL, "/"),
		httpClient:         &http.Client{Timeout: requestTimeout},
		logger:             debugLogger,
	}
}

// AwaitTestService polls the base URL until the test service responds. Any HTTP response,
// whatever its status, means the service is up. If there is still no response when
// timeout expires, it returns an error; the harness can still be used, but requests will
// most likely fail.
func (h *TestHarness) AwaitTestService(ctx context.Context, timeout time.Duration, output io.Writer) error {
	fmt.Fprintf(output, "Connecting to test service at %s", h.testServiceBaseURL)

	deadline := time.Now().Add(timeout)
	for {
		fmt.Fprintf(output, ".")
		reqCtx, cancel := context.WithDeadline(ctx, deadline)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, h.testServiceBaseURL, nil)
		if err != nil {
			cancel()
			fmt.Fprintln(output)
			return err
		}
		resp, err := h.httpClient.Do(req)
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			cancel()
			fmt.Fprintln(output)
			fmt.Fprintf(output, "Test service responded with status %d\n", resp.StatusCode)
			return nil
		}
		cancel()
		h.logger.Printf("Test service not ready: %s", err)
		remaining := time.Until(deadline)
		if remaining <= 0 || ctx.Err() != nil {
			fmt.Fprintln(output)
			return fmt.Errorf("test service did not become ready within %s, result of last query was: %w", timeout, err)
		}
		wait := readinessPollInterval
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(output)
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RequestURL returns the absolute URL that Send would use for a request.
func (h *TestHarness) RequestURL(r ServiceRequest) string {
	u := h.testServiceBaseURL + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}

// Send performs one round trip to the test service and returns the response body. target
// names what the request is about, for error messages. Any failure, including a status
// outside the 2xx range, is returned as a *TransportError.
func (h *TestHarness) Send(ctx context.Context, target string, r ServiceRequest, logger Logger) ([]byte, error) {
	if logger == nil {
		logger = h.logger
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	u := h.RequestURL(r)
	fail := func(status int, cause error) error {
		return &TransportError{Target: target, Method: method, URL: u, StatusCode: status, Cause: cause}
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fail(0, err)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}

	logger.Printf("Sending %s %s", method, u)
	logger.Printf("To reproduce: %s", CurlCommand(u, r))
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(0, fmt.Errorf("error reading response body: %w", err))
	}
	logger.Printf("Received HTTP %d: %s", resp.StatusCode, string(data))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(data))
		if message == "" {
			message = "no response body"
		}
		return nil, fail(resp.StatusCode, errors.New(message))
	}
	return data, nil
}
