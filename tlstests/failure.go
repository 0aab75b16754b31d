package tlstests

import (
	"errors"

	"github.com/jsandas/tlstools-contract-tests/framework"
)

// FailureClass is the category of a failed check.
type FailureClass string

const (
	// Transport means no usable response was obtained, so the check was not made.
	Transport FailureClass = "TRANSPORT"
	// FieldMismatch means a reported value differs from the expected one.
	FieldMismatch FailureClass = "FIELD_MISMATCH"
	// MissingKey means a key exists on only one side of the comparison.
	MissingKey FailureClass = "MISSING_KEY"
	// SchemaMismatch means the reported value uses a different representation than the
	// expected one, for instance a "yes"/"no" string where a record was expected.
	SchemaMismatch FailureClass = "SCHEMA_MISMATCH"
)

// Failure describes why a check failed.
type Failure struct {
	Class   FailureClass
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Outcome is the result of a single check. Failure is nil if the check passed.
type Outcome struct {
	Check   string
	Failure *Failure
}

func (o Outcome) Passed() bool {
	return o.Failure == nil
}

// Err returns the failure as an error, or nil if the check passed.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

func (o Outcome) String() string {
	if o.Failure == nil {
		return o.Check + ": ok"
	}
	return o.Check + ": " + o.Failure.Message
}

// ClassOf returns the FailureClass of an error recorded for a check.
func ClassOf(err error) FailureClass {
	var f *Failure
	if errors.As(err, &f) {
		return f.Class
	}
	var te *framework.TransportError
	if errors.As(err, &te) {
		return Transport
	}
	return ""
}
