package tlstests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jsandas/tlstools-contract-tests/framework"
	"github.com/jsandas/tlstools-contract-tests/servicedef"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/require"
)

// scanBodyFor returns a scan response that satisfies every check of exp.
func scanBodyFor(exp ScanExpectation) []byte {
	supported := map[string][]string{}
	for p, n := range exp.CipherCounts {
		supported[p] = makeCiphers(n)
	}
	body := map[string]interface{}{
		"certificates": []interface{}{
			map[string]interface{}{
				"keyType":            exp.KeyType,
				"signatureAlgorithm": "SHA256-RSA",
				"subject":            map[string]interface{}{"commonName": exp.ID},
			},
		},
		"connectionInformation": map[string]interface{}{
			"serverHeader":    exp.ServerHeader,
			"supportedConfig": supported,
		},
		"vulnerabilities": exp.Vulnerabilities,
	}
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return data
}

func parseBodyFor(exp ParseExpectation) []byte {
	data, err := json.Marshal(map[string]interface{}{
		"keyType":            exp.KeyType,
		"signatureAlgorithm": exp.SignatureAlgorithm,
		"subject":            map[string]interface{}{"commonName": exp.CommonName},
	})
	if err != nil {
		panic(err)
	}
	return data
}

// mockServiceHandler answers every request as a service that matches table exactly.
// Hosts listed in failing get an HTTP 500 instead.
func mockServiceHandler(table *ExpectationTable, failing ...string) http.Handler {
	scans := map[string][]byte{}
	for _, e := range table.ScanCases() {
		scans[e.ID] = scanBodyFor(e)
	}
	for _, host := range failing {
		delete(scans, host)
	}
	parses := map[string][]byte{}
	for _, e := range table.ParseCases() {
		parses[string(e.Kind)+"/"+string(e.Input)] = parseBodyFor(e)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		switch r.URL.Path {
		case "/api/v1/scan":
			body = scans[r.URL.Query().Get("host")]
		case "/api/v1/parse/certificate", "/api/v1/parse/csr":
			pem, _ := io.ReadAll(r.Body)
			kind := ParseCertificate
			if r.URL.Path == "/api/v1/parse/csr" {
				kind = ParseCSR
			}
			body = parses[string(kind)+"/"+string(pem)]
		case "/api/v1":
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if body == nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"scan failed"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
}

func withMockService(t *testing.T, handler http.Handler, action func(*framework.TestHarness)) {
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		h := framework.NewTestHarness(server.URL+"/api/v1", time.Second*5, nil)
		require.NoError(t, h.AwaitTestService(context.Background(), time.Second, io.Discard))
		action(h)
	})
}

// fakeService answers from memory, for driver tests that do not need HTTP.
type fakeService struct {
	scans    map[string]servicedef.ScanResponse
	parse    servicedef.ParseResponse
	delay    func(identifier string) time.Duration
	panicOn  string
	lock     sync.Mutex
	requests []string
}

func (f *fakeService) record(identifier string) {
	f.lock.Lock()
	f.requests = append(f.requests, identifier)
	f.lock.Unlock()
}

func (f *fakeService) Scan(ctx context.Context, identifier string, logger framework.Logger) (servicedef.ScanResponse, error) {
	f.record(identifier)
	if f.delay != nil {
		time.Sleep(f.delay(identifier))
	}
	if identifier == f.panicOn {
		panic("boom")
	}
	logger.Printf("scanned %s", identifier)
	resp, ok := f.scans[identifier]
	if !ok {
		return servicedef.ScanResponse{}, &framework.TransportError{
			Target: identifier, Method: "GET", URL: "http://localhost/scan", StatusCode: 500,
			Cause: errors.New("scan failed"),
		}
	}
	return resp, nil
}

func (f *fakeService) ParseCertificate(ctx context.Context, pem []byte, logger framework.Logger) (servicedef.ParseResponse, error) {
	f.record("certificate")
	return f.parse, nil
}

func (f *fakeService) ParseCSR(ctx context.Context, pem []byte, logger framework.Logger) (servicedef.ParseResponse, error) {
	f.record("csr")
	return servicedef.ParseResponse{}, fmt.Errorf("CSR parsing is not supported")
}
