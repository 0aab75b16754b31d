package servicedef

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ScanResponse is the decoded body of GET /scan.
type ScanResponse struct {
	Certificates          []Certificate
	ConnectionInformation ConnectionInformation
	Vulnerabilities       map[string]VulnFlag
}

// Certificate is one entry of the certificate chain reported by a scan. Only the fields
// the harness checks are kept.
type Certificate struct {
	KeyType            string
	SignatureAlgorithm string
	Subject            Subject
}

type ConnectionInformation struct {
	ServerHeader    string
	SupportedConfig map[string][]string
}

// ParseResponse is the decoded body of POST /parse/certificate and POST /parse/csr.
type ParseResponse struct {
	KeyType            string
	SignatureAlgorithm string
	Subject            Subject
}

type Subject struct {
	CommonName         string
	CountryName        string
	OrganizationName   string
	StateOrProvince    string
	LocalityName       string
	OrganizationalUnit string
}

// SchemaError means that a response body was valid JSON but did not have the expected
// shape, for instance because a required field was missing or had the wrong type.
type SchemaError struct {
	Field   string
	Problem string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "response schema violation: " + e.Problem
	}
	return fmt.Sprintf("response schema violation at %s: %s", e.Field, e.Problem)
}

func missing(field string) error {
	return &SchemaError{Field: field, Problem: "field is missing"}
}

type subjectJSON struct {
	CommonName             *string `json:"commonName"`
	CountryName            string  `json:"countryName"`
	OrganizationName       string  `json:"organizationName"`
	StateOrProvinceName    string  `json:"stateOrProvinceName"`
	LocalityName           string  `json:"localityName"`
	OrganizationalUnitName string  `json:"organizationalUnitName"`
}

type certificateJSON struct {
	KeyType            *string      `json:"keyType"`
	SignatureAlgorithm string       `json:"signatureAlgorithm"`
	Subject            *subjectJSON `json:"subject"`
}

type connectionInformationJSON struct {
	ServerHeader    *string             `json:"serverHeader"`
	SupportedConfig map[string][]string `json:"supportedConfig"`
}

type scanResponseJSON struct {
	Certificates          json.RawMessage            `json:"certificates"`
	ConnectionInformation *connectionInformationJSON `json:"connectionInformation"`
	Vulnerabilities       map[string]ldvalue.Value   `json:"vulnerabilities"`
}

type parseResponseJSON struct {
	KeyType            *string      `json:"keyType"`
	SignatureAlgorithm *string      `json:"signatureAlgorithm"`
	Subject            *subjectJSON `json:"subject"`
}

func (s *subjectJSON) toSubject() Subject {
	ret := Subject{
		CountryName:        s.CountryName,
		OrganizationName:   s.OrganizationName,
		StateOrProvince:    s.StateOrProvinceName,
		LocalityName:       s.LocalityName,
		OrganizationalUnit: s.OrganizationalUnitName,
	}
	if s.CommonName != nil {
		ret.CommonName = *s.CommonName
	}
	return ret
}

// DecodeScanResponse decodes a scan response body. It fails on malformed JSON or on any
// missing required field rather than substituting an empty value. An empty or null
// certificate list is allowed; it is up to the caller to decide what that means.
func DecodeScanResponse(data []byte) (ScanResponse, error) {
	var raw scanResponseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return ScanResponse{}, fmt.Errorf("malformed JSON in scan response: %w", err)
	}
	if len(raw.Certificates) == 0 {
		return ScanResponse{}, missing("certificates")
	}
	// The service reports an empty chain as null.
	var certs []certificateJSON
	if err := json.Unmarshal(raw.Certificates, &certs); err != nil {
		return ScanResponse{}, &SchemaError{Field: "certificates", Problem: err.Error()}
	}
	if raw.ConnectionInformation == nil {
		return ScanResponse{}, missing("connectionInformation")
	}
	if raw.ConnectionInformation.ServerHeader == nil {
		return ScanResponse{}, missing("connectionInformation.serverHeader")
	}
	if raw.ConnectionInformation.SupportedConfig == nil {
		return ScanResponse{}, missing("connectionInformation.supportedConfig")
	}
	if raw.Vulnerabilities == nil {
		return ScanResponse{}, missing("vulnerabilities")
	}

	var ret ScanResponse
	for i, c := range certs {
		if c.KeyType == nil {
			return ScanResponse{}, missing(fmt.Sprintf("certificates[%d].keyType", i))
		}
		cert := Certificate{KeyType: *c.KeyType, SignatureAlgorithm: c.SignatureAlgorithm}
		if c.Subject != nil {
			cert.Subject = c.Subject.toSubject()
		}
		ret.Certificates = append(ret.Certificates, cert)
	}
	ret.ConnectionInformation = ConnectionInformation{
		ServerHeader:    *raw.ConnectionInformation.ServerHeader,
		SupportedConfig: raw.ConnectionInformation.SupportedConfig,
	}

	names := make([]string, 0, len(raw.Vulnerabilities))
	for name := range raw.Vulnerabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	ret.Vulnerabilities = make(map[string]VulnFlag, len(names))
	for _, name := range names {
		flag, err := FlagFromValue("vulnerabilities."+name, raw.Vulnerabilities[name])
		if err != nil {
			return ScanResponse{}, err
		}
		ret.Vulnerabilities[name] = flag
	}
	return ret, nil
}

// DecodeParseResponse decodes the body returned by either parse endpoint.
func DecodeParseResponse(data []byte) (ParseResponse, error) {
	var raw parseResponseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return ParseResponse{}, fmt.Errorf("malformed JSON in parse response: %w", err)
	}
	if raw.KeyType == nil {
		return ParseResponse{}, missing("keyType")
	}
	if raw.SignatureAlgorithm == nil {
		return ParseResponse{}, missing("signatureAlgorithm")
	}
	if raw.Subject == nil {
		return ParseResponse{}, missing("subject")
	}
	if raw.Subject.CommonName == nil {
		return ParseResponse{}, missing("subject.commonName")
	}
	return ParseResponse{
		KeyType:            *raw.KeyType,
		SignatureAlgorithm: *raw.SignatureAlgorithm,
		Subject:            raw.Subject.toSubject(),
	}, nil
}
