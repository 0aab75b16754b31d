package tlstests

import (
	"fmt"
	"sort"

	"github.com/jsandas/tlstools-contract-tests/servicedef"
)

// Check names. Per-protocol and per-vulnerability checks append the key.
const (
	checkKeyType            = "keyType"
	checkServerHeader       = "serverHeader"
	checkProtocolCount      = "protocolCount"
	checkSignatureAlgorithm = "signatureAlgorithm"
	checkCommonName         = "subject.commonName"
)

func cipherCountCheck(protocol string) string {
	return fmt.Sprintf("cipherCount[%s]", protocol)
}

func vulnerabilityCheck(name string) string {
	return "vulnerabilities." + name
}

func pass(check string) Outcome {
	return Outcome{Check: check}
}

func fail(check string, class FailureClass, format string, args ...interface{}) Outcome {
	return Outcome{Check: check, Failure: &Failure{Class: class, Message: fmt.Sprintf(format, args...)}}
}

// CompareScalar requires two strings to be identical.
func CompareScalar(check, actual, expected string) Outcome {
	if actual == expected {
		return pass(check)
	}
	return fail(check, FieldMismatch, "got %q, wanted %q", actual, expected)
}

// CompareCount requires a collection to have exactly the expected size.
func CompareCount(check string, actual, expected int) Outcome {
	if actual == expected {
		return pass(check)
	}
	return fail(check, FieldMismatch, "got %d, wanted %d", actual, expected)
}

// CompareStructured compares two vulnerability flags as whole values. Flags in different
// representations fail with SchemaMismatch; they are never converted into each other.
func CompareStructured(check string, actual, expected servicedef.VulnFlag) Outcome {
	if actual.Kind() != expected.Kind() {
		return fail(check, SchemaMismatch, "got %s %s, wanted %s %s",
			actual.Kind(), actual, expected.Kind(), expected)
	}
	if actual.Equal(expected) {
		return pass(check)
	}
	return fail(check, FieldMismatch, "got %s, wanted %s", actual, expected)
}

// CompareCipherCounts checks the number of ciphers for each protocol the service reported.
// A reported protocol with no expected count, or an expected protocol that was not
// reported, fails with MissingKey. Outcomes are ordered by protocol name.
func CompareCipherCounts(actual map[string][]string, expected map[string]int) []Outcome {
	protocols := make([]string, 0, len(actual)+len(expected))
	for p := range actual {
		protocols = append(protocols, p)
	}
	for p := range expected {
		if _, ok := actual[p]; !ok {
			protocols = append(protocols, p)
		}
	}
	sort.Strings(protocols)

	ret := make([]Outcome, 0, len(protocols))
	for _, p := range protocols {
		check := cipherCountCheck(p)
		ciphers, reported := actual[p]
		want, known := expected[p]
		switch {
		case !known:
			ret = append(ret, fail(check, MissingKey,
				"protocol %s was reported with %d ciphers but has no expected cipher count", p, len(ciphers)))
		case !reported:
			ret = append(ret, fail(check, MissingKey,
				"protocol %s was not reported, wanted %d ciphers", p, want))
		default:
			ret = append(ret, CompareCount(check, len(ciphers), want))
		}
	}
	return ret
}

// CompareScan compares a scan response with its expectation. The key type is taken from
// the first certificate of the chain.
func CompareScan(exp ScanExpectation, resp servicedef.ScanResponse) []Outcome {
	var ret []Outcome

	if len(resp.Certificates) == 0 {
		ret = append(ret, fail(checkKeyType, MissingKey, "no certificates were reported, wanted %q", exp.KeyType))
	} else {
		ret = append(ret, CompareScalar(checkKeyType, resp.Certificates[0].KeyType, exp.KeyType))
	}

	conn := resp.ConnectionInformation
	ret = append(ret, CompareScalar(checkServerHeader, conn.ServerHeader, exp.ServerHeader))
	ret = append(ret, CompareCount(checkProtocolCount, len(conn.SupportedConfig), exp.ProtocolCount))
	ret = append(ret, CompareCipherCounts(conn.SupportedConfig, exp.CipherCounts)...)

	for _, name := range sortedKeys(exp.Vulnerabilities) {
		check := vulnerabilityCheck(name)
		want := exp.Vulnerabilities[name]
		got, ok := resp.Vulnerabilities[name]
		if !ok {
			ret = append(ret, fail(check, MissingKey, "vulnerability was not reported, wanted %s", want))
			continue
		}
		ret = append(ret, CompareStructured(check, got, want))
	}
	return ret
}

// CompareParse compares a certificate or CSR parse response with its expectation.
func CompareParse(exp ParseExpectation, resp servicedef.ParseResponse) []Outcome {
	return []Outcome{
		CompareScalar(checkKeyType, resp.KeyType, exp.KeyType),
		CompareScalar(checkSignatureAlgorithm, resp.SignatureAlgorithm, exp.SignatureAlgorithm),
		CompareScalar(checkCommonName, resp.Subject.CommonName, exp.CommonName),
	}
}

// ExpectedScanChecks names the checks a scan case makes when the response contains exactly
// the expected protocols. These are the checks counted as failed when no response could
// be obtained.
func ExpectedScanChecks(exp ScanExpectation) []string {
	ret := []string{checkKeyType, checkServerHeader, checkProtocolCount}
	for _, p := range sortedKeys(exp.CipherCounts) {
		ret = append(ret, cipherCountCheck(p))
	}
	for _, name := range sortedKeys(exp.Vulnerabilities) {
		ret = append(ret, vulnerabilityCheck(name))
	}
	return ret
}

// ExpectedParseChecks names the checks a parse case makes.
func ExpectedParseChecks(ParseExpectation) []string {
	return []string{checkKeyType, checkSignatureAlgorithm, checkCommonName}
}

func sortedKeys[V any](m map[string]V) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
