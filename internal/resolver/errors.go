package resolver

import (
	"errors"
	"fmt"

	"github.com/roach88/nullg/internal/ir"
)

// ErrorCode categorizes decode failures.
type ErrorCode string

const (
	// ErrCodeMissingDiscriminator: a variant field was reached but its
	// discriminator sibling has no value.
	ErrCodeMissingDiscriminator ErrorCode = "MISSING_DISCRIMINATOR"

	// ErrCodeUnknownVariant: the discriminator value is not a code of the family.
	ErrCodeUnknownVariant ErrorCode = "UNKNOWN_VARIANT"

	// ErrCodeFieldOrderViolation: a variant field is declared before its
	// discriminator, so the discriminator cannot have been resolved yet.
	ErrCodeFieldOrderViolation ErrorCode = "FIELD_ORDER_VIOLATION"

	// ErrCodeTypeMismatch: a raw value does not match the declared type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeMissingField: a required field is absent.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeDepthExceeded: the raw tree nests deeper than the resolver allows.
	ErrCodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"
)

// DecodeError is the single error type returned for bad raw input. Decoding
// stops at the first error; no partial record is returned with it.
type DecodeError struct {
	Code ErrorCode

	// Path locates the offending value, e.g. "totalWar.equipmentList[2].name".
	// Empty for the record root.
	Path string

	// Expected and Actual are set for TYPE_MISMATCH.
	Expected string
	Actual   string

	// Family and Discriminator are set for variant errors.
	Family        string
	Discriminator string

	// Value is the unrecognized discriminator value for UNKNOWN_VARIANT.
	Value ir.Value
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	where := e.Path
	if where == "" {
		where = "(root)"
	}
	switch e.Code {
	case ErrCodeTypeMismatch:
		return fmt.Sprintf("%s at %s: expected %s, got %s", e.Code, where, e.Expected, e.Actual)
	case ErrCodeUnknownVariant:
		v, _ := ir.MarshalValue(e.Value)
		return fmt.Sprintf("%s at %s: %s=%s is not a variant of %s", e.Code, where, e.Discriminator, v, e.Family)
	case ErrCodeMissingDiscriminator:
		return fmt.Sprintf("%s at %s: %s requires %s to be set", e.Code, where, e.Family, e.Discriminator)
	case ErrCodeFieldOrderViolation:
		return fmt.Sprintf("%s at %s: %s must be declared before the variant field", e.Code, where, e.Discriminator)
	}
	return fmt.Sprintf("%s at %s", e.Code, where)
}

// AsDecodeError unwraps err to a *DecodeError.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsDecodeError reports whether err is a DecodeError with the given code.
func IsDecodeError(err error, code ErrorCode) bool {
	de, ok := AsDecodeError(err)
	return ok && de.Code == code
}

func typeMismatch(p path, expected, actual string) *DecodeError {
	return &DecodeError{Code: ErrCodeTypeMismatch, Path: p.String(), Expected: expected, Actual: actual}
}

func missingField(p path) *DecodeError {
	return &DecodeError{Code: ErrCodeMissingField, Path: p.String()}
}
