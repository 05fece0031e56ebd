package queryir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes rejected expressions.
type ErrorCode string

const (
	// ErrCodeOperatorNotAllowed: a filter used an operator outside the allow-list.
	ErrCodeOperatorNotAllowed ErrorCode = "OPERATOR_NOT_ALLOWED"

	// ErrCodeStageNotAllowed: a pipeline used a deny-listed stage.
	ErrCodeStageNotAllowed ErrorCode = "STAGE_NOT_ALLOWED"

	// ErrCodeDepthExceeded: the expression nests deeper than allowed.
	ErrCodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeMalformed: the expression is not a tree of mappings, sequences
	// and scalars, or a filter operator has the wrong operand shape.
	ErrCodeMalformed ErrorCode = "MALFORMED"
)

// SecurityError reports why an expression was rejected.
type SecurityError struct {
	Code ErrorCode

	// Key is the offending operator or stage, e.g. "$merge".
	Key string

	// Path locates Key, e.g. "$and[1]".
	Path string

	Message string
}

// Error implements the error interface.
func (e *SecurityError) Error() string {
	switch e.Code {
	case ErrCodeOperatorNotAllowed:
		return fmt.Sprintf("%s: operator %s is not allowed in filters (at %s)", e.Code, e.Key, e.where())
	case ErrCodeStageNotAllowed:
		return fmt.Sprintf("%s: stage %s is not allowed in pipelines (at %s)", e.Code, e.Key, e.where())
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.where())
	}
	return fmt.Sprintf("%s (at %s)", e.Code, e.where())
}

func (e *SecurityError) where() string {
	if e.Path == "" {
		return "(root)"
	}
	return e.Path
}

// AsSecurityError unwraps err to a *SecurityError.
func AsSecurityError(err error) (*SecurityError, bool) {
	var se *SecurityError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsSecurityError reports whether err is a SecurityError with the given code.
func IsSecurityError(err error, code ErrorCode) bool {
	se, ok := AsSecurityError(err)
	return ok && se.Code == code
}

func malformed(path, format string, args ...any) *SecurityError {
	return &SecurityError{Code: ErrCodeMalformed, Path: path, Message: fmt.Sprintf(format, args...)}
}
