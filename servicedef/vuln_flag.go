package servicedef

import (
	"encoding/json"
	"fmt"

	jsoncanonicalizer "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// FlagKind says which representation a vulnerability flag uses. Older versions of the
// service report a plain "yes"/"no" string (or a bare boolean, for debianWeakKey); newer
// ones report a record of named values such as {"vulnerable": false, "extension": true}.
type FlagKind int

const (
	FlagStructured FlagKind = iota + 1
	FlagText
	FlagBool
)

func (k FlagKind) String() string {
	switch k {
	case FlagStructured:
		return "structured record"
	case FlagText:
		return "text"
	case FlagBool:
		return "boolean"
	default:
		return "undefined"
	}
}

// VulnFlag is one entry of the vulnerabilities block. The zero value has no kind and is
// not equal to any decoded flag.
type VulnFlag struct {
	kind   FlagKind
	record ldvalue.Value
	text   string
	value  bool
}

// StructuredFlag returns a flag whose record is the given JSON object.
func StructuredFlag(record ldvalue.Value) (VulnFlag, error) {
	if record.Type() != ldvalue.ObjectType {
		return VulnFlag{}, fmt.Errorf("structured vulnerability flag must be an object, not %s", record.Type())
	}
	return VulnFlag{kind: FlagStructured, record: record}, nil
}

// BoolFlags is a shortcut for a structured flag whose members are all booleans.
func BoolFlags(fields map[string]bool) VulnFlag {
	b := ldvalue.ObjectBuild()
	for k, v := range fields {
		b.Set(k, ldvalue.Bool(v))
	}
	return VulnFlag{kind: FlagStructured, record: b.Build()}
}

func TextFlag(text string) VulnFlag {
	return VulnFlag{kind: FlagText, text: text}
}

func BoolFlag(value bool) VulnFlag {
	return VulnFlag{kind: FlagBool, value: value}
}

// FlagFromValue tags an undecoded JSON value. Anything other than an object, a string or
// a boolean is a schema violation.
func FlagFromValue(field string, v ldvalue.Value) (VulnFlag, error) {
	switch v.Type() {
	case ldvalue.ObjectType:
		return VulnFlag{kind: FlagStructured, record: v}, nil
	case ldvalue.StringType:
		return VulnFlag{kind: FlagText, text: v.StringValue()}, nil
	case ldvalue.BoolType:
		return VulnFlag{kind: FlagBool, value: v.BoolValue()}, nil
	default:
		return VulnFlag{}, &SchemaError{Field: field, Problem: fmt.Sprintf("expected an object, a string or a boolean, got %s", v.Type())}
	}
}

func (f VulnFlag) Kind() FlagKind { return f.kind }

func (f VulnFlag) Text() string { return f.text }

func (f VulnFlag) Bool() bool { return f.value }

// CanonicalJSON returns the flag as JSON. A structured record is put in RFC 8785
// canonical form, so that two records with the same members in a different order have
// the same representation.
func (f VulnFlag) CanonicalJSON() string {
	switch f.kind {
	case FlagStructured:
		raw := []byte(f.record.JSONString())
		canonical, err := jsoncanonicalizer.Transform(raw)
		if err != nil {
			return string(raw)
		}
		return string(canonical)
	case FlagText:
		data, _ := json.Marshal(f.text)
		return string(data)
	case FlagBool:
		data, _ := json.Marshal(f.value)
		return string(data)
	default:
		return "null"
	}
}

// Equal is true if both flags have the same kind and the same canonical content.
func (f VulnFlag) Equal(other VulnFlag) bool {
	return f.kind != 0 && f.kind == other.kind && f.CanonicalJSON() == other.CanonicalJSON()
}

func (f VulnFlag) String() string {
	return f.CanonicalJSON()
}

func (f VulnFlag) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case FlagStructured:
		return f.record.MarshalJSON()
	case FlagText:
		return json.Marshal(f.text)
	case FlagBool:
		return json.Marshal(f.value)
	default:
		return []byte("null"), nil
	}
}

func (f *VulnFlag) UnmarshalJSON(data []byte) error {
	var v ldvalue.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	flag, err := FlagFromValue("", v)
	if err != nil {
		return err
	}
	*f = flag
	return nil
}
