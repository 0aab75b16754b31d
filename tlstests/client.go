package tlstests

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jsandas/tlstools-contract-tests/framework"
	"github.com/jsandas/tlstools-contract-tests/servicedef"
)

const (
	scanPath             = "/scan"
	parseCertificatePath = "/parse/certificate"
	parseCSRPath         = "/parse/csr"
	pemContentType       = "application/octet-stream"
)

// Service is the set of operations the driver needs from the tlstools service.
type Service interface {
	Scan(ctx context.Context, identifier string, logger framework.Logger) (servicedef.ScanResponse, error)
	ParseCertificate(ctx context.Context, pem []byte, logger framework.Logger) (servicedef.ParseResponse, error)
	ParseCSR(ctx context.Context, pem []byte, logger framework.Logger) (servicedef.ParseResponse, error)
}

// ServiceClient calls the tlstools HTTP endpoints. Each call makes exactly one request;
// every error it returns is a *framework.TransportError.
type ServiceClient struct {
	harness *framework.TestHarness
}

func NewServiceClient(harness *framework.TestHarness) *ServiceClient {
	return &ServiceClient{harness: harness}
}

// Scan asks the service to scan a host, given as host or host:port.
func (c *ServiceClient) Scan(
	ctx context.Context,
	identifier string,
	logger framework.Logger,
) (servicedef.ScanResponse, error) {
	req := framework.ServiceRequest{
		Method: http.MethodGet,
		Path:   scanPath,
		Query:  url.Values{"host": {identifier}},
	}
	data, err := c.harness.Send(ctx, identifier, req, logger)
	if err != nil {
		return servicedef.ScanResponse{}, err
	}
	resp, err := servicedef.DecodeScanResponse(data)
	if err != nil {
		return servicedef.ScanResponse{}, c.decodeError(identifier, req, err)
	}
	return resp, nil
}

// ParseCertificate sends PEM certificate bytes to the certificate parser.
func (c *ServiceClient) ParseCertificate(
	ctx context.Context,
	pem []byte,
	logger framework.Logger,
) (servicedef.ParseResponse, error) {
	return c.parse(ctx, "certificate", parseCertificatePath, pem, logger)
}

// ParseCSR sends PEM CSR bytes to the CSR parser.
func (c *ServiceClient) ParseCSR(
	ctx context.Context,
	pem []byte,
	logger framework.Logger,
) (servicedef.ParseResponse, error) {
	return c.parse(ctx, "CSR", parseCSRPath, pem, logger)
}

func (c *ServiceClient) parse(
	ctx context.Context,
	target string,
	path string,
	pem []byte,
	logger framework.Logger,
) (servicedef.ParseResponse, error) {
	req := framework.ServiceRequest{
		Method:      http.MethodPost,
		Path:        path,
		ContentType: pemContentType,
		Body:        pem,
	}
	data, err := c.harness.Send(ctx, target, req, logger)
	if err != nil {
		return servicedef.ParseResponse{}, err
	}
	resp, err := servicedef.DecodeParseResponse(data)
	if err != nil {
		return servicedef.ParseResponse{}, c.decodeError(target, req, err)
	}
	return resp, nil
}

func (c *ServiceClient) decodeError(target string, req framework.ServiceRequest, err error) error {
	return &framework.TransportError{
		Target: target,
		Method: req.Method,
		URL:    c.harness.RequestURL(req),
		Cause:  fmt.Errorf("unusable response: %w", err),
	}
}

// parseWith returns the Service operation matching a parse case.
func parseWith(s Service, kind ParseKind) func(context.Context, []byte, framework.Logger) (servicedef.ParseResponse, error) {
	if kind == ParseCSR {
		return s.ParseCSR
	}
	return s.ParseCertificate
}
