package tlstests

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jsandas/tlstools-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
	"gopkg.in/yaml.v3"
)

//go:embed testdata/expectations.yaml testdata/*.pem
var embeddedTestData embed.FS

// ParseKind selects the parse endpoint for a parse case.
type ParseKind string

const (
	ParseCertificate ParseKind = "certificate"
	ParseCSR         ParseKind = "csr"
)

// ScanExpectation is the expected result of scanning one host.
type ScanExpectation struct {
	ID              string
	KeyType         string
	ServerHeader    string
	ProtocolCount   int
	CipherCounts    map[string]int
	Vulnerabilities map[string]servicedef.VulnFlag
}

// ParseExpectation is the expected result of parsing one fixed certificate or CSR.
type ParseExpectation struct {
	ID                 string
	Kind               ParseKind
	InputName          string
	Input              []byte
	KeyType            string
	SignatureAlgorithm string
	CommonName         string
}

// ExpectationTable holds every test case. It is not modified after it is loaded.
type ExpectationTable struct {
	scan  []ScanExpectation
	parse []ParseExpectation
}

type tableYAML struct {
	Scan  map[string]scanYAML  `yaml:"scan"`
	Parse map[string]parseYAML `yaml:"parse"`
}

type scanYAML struct {
	KeyType         string              `yaml:"keyType"`
	ServerHeader    string              `yaml:"serverHeader"`
	ProtocolCount   *int                `yaml:"protocolCount"`
	CipherCounts    map[string]int      `yaml:"cipherCounts"`
	Vulnerabilities map[string]flagYAML `yaml:"vulnerabilities"`
}

type parseYAML struct {
	Kind               ParseKind `yaml:"kind"`
	Input              string    `yaml:"input"`
	KeyType            string    `yaml:"keyType"`
	SignatureAlgorithm string    `yaml:"signatureAlgorithm"`
	CommonName         string    `yaml:"commonName"`
}

// flagYAML picks the flag representation from the YAML node: a mapping is a structured
// record, a string is a text flag, a boolean is a plain boolean flag.
type flagYAML struct {
	flag servicedef.VulnFlag
}

func (f *flagYAML) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var m map[string]interface{}
		if err := node.Decode(&m); err != nil {
			return err
		}
		flag, err := servicedef.StructuredFlag(ldvalue.CopyArbitraryValue(m))
		if err != nil {
			return err
		}
		f.flag = flag
		return nil
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!str":
			f.flag = servicedef.TextFlag(node.Value)
			return nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return err
			}
			f.flag = servicedef.BoolFlag(b)
			return nil
		}
	}
	return fmt.Errorf("line %d: a vulnerability flag must be a mapping, a string or a boolean", node.Line)
}

// LoadExpectations loads the table embedded in this package.
func LoadExpectations() (*ExpectationTable, error) {
	data, err := embeddedTestData.ReadFile("testdata/expectations.yaml")
	if err != nil {
		return nil, err
	}
	inputs, err := fs.Sub(embeddedTestData, "testdata")
	if err != nil {
		return nil, err
	}
	return ParseExpectations(data, inputs)
}

// ParseExpectations decodes and validates an expectation table. Input files named by
// parse cases are read from inputs.
func ParseExpectations(data []byte, inputs fs.FS) (*ExpectationTable, error) {
	var raw tableYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed expectation table: %w", err)
	}

	var problems []error
	problem := func(id, format string, args ...interface{}) {
		problems = append(problems, fmt.Errorf("expectation %q: %s", id, fmt.Sprintf(format, args...)))
	}

	t := &ExpectationTable{}
	for id, s := range raw.Scan {
		if s.KeyType == "" {
			problem(id, "keyType is required")
		}
		e := ScanExpectation{
			ID:              id,
			KeyType:         s.KeyType,
			ServerHeader:    s.ServerHeader,
			ProtocolCount:   len(s.CipherCounts),
			CipherCounts:    map[string]int{},
			Vulnerabilities: map[string]servicedef.VulnFlag{},
		}
		if s.ProtocolCount != nil {
			e.ProtocolCount = *s.ProtocolCount
		}
		if e.ProtocolCount < 0 {
			problem(id, "protocolCount cannot be negative")
		}
		for p, n := range s.CipherCounts {
			if n < 0 {
				problem(id, "cipher count for %s cannot be negative", p)
			}
			e.CipherCounts[p] = n
		}
		for name, f := range s.Vulnerabilities {
			e.Vulnerabilities[name] = f.flag
		}
		t.scan = append(t.scan, e)
	}

	for id, p := range raw.Parse {
		if _, dup := raw.Scan[id]; dup {
			problem(id, "identifier is used by both a scan case and a parse case")
		}
		if p.Kind != ParseCertificate && p.Kind != ParseCSR {
			problem(id, "kind must be %q or %q, not %q", ParseCertificate, ParseCSR, p.Kind)
		}
		if p.KeyType == "" || p.SignatureAlgorithm == "" || p.CommonName == "" {
			problem(id, "keyType, signatureAlgorithm and commonName are required")
		}
		e := ParseExpectation{
			ID:                 id,
			Kind:               p.Kind,
			InputName:          p.Input,
			KeyType:            p.KeyType,
			SignatureAlgorithm: p.SignatureAlgorithm,
			CommonName:         p.CommonName,
		}
		if p.Input == "" {
			problem(id, "input is required")
		} else if input, err := fs.ReadFile(inputs, p.Input); err != nil {
			problem(id, "cannot read input: %s", err)
		} else if len(input) == 0 {
			problem(id, "input %s is empty", p.Input)
		} else {
			e.Input = input
		}
		t.parse = append(t.parse, e)
	}

	if len(problems) > 0 {
		sort.Slice(problems, func(i, j int) bool { return problems[i].Error() < problems[j].Error() })
		return nil, errors.Join(problems...)
	}

	sort.Slice(t.scan, func(i, j int) bool { return t.scan[i].ID < t.scan[j].ID })
	sort.Slice(t.parse, func(i, j int) bool { return t.parse[i].ID < t.parse[j].ID })
	return t, nil
}

// ScanCases returns the scan cases sorted by identifier.
func (t *ExpectationTable) ScanCases() []ScanExpectation {
	return append([]ScanExpectation(nil), t.scan...)
}

// ParseCases returns the parse cases sorted by identifier.
func (t *ExpectationTable) ParseCases() []ParseExpectation {
	return append([]ParseExpectation(nil), t.parse...)
}

func (t *ExpectationTable) Len() int {
	return len(t.scan) + len(t.parse)
}
