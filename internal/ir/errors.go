package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes cache errors. Codes are stable strings so scenario
// files and CLI output can match on them.
type ErrorCode string

const (
	// ErrCodeUnknownType indicates a record type the schema does not define.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_TYPE"

	// ErrCodeUnknownAttribute indicates an attribute the model does not define.
	ErrCodeUnknownAttribute ErrorCode = "UNKNOWN_ATTRIBUTE"

	// ErrCodeUnknownRelationship indicates a relationship the model does not define.
	ErrCodeUnknownRelationship ErrorCode = "UNKNOWN_RELATIONSHIP"

	// ErrCodeUnknownKey indicates a key the model does not define.
	ErrCodeUnknownKey ErrorCode = "UNKNOWN_KEY"

	// ErrCodeRelationshipKind indicates a to-one value for a hasMany
	// relationship or the reverse.
	ErrCodeRelationshipKind ErrorCode = "RELATIONSHIP_KIND"

	// ErrCodeRelatedType indicates a related identity of the wrong type.
	ErrCodeRelatedType ErrorCode = "RELATED_TYPE"

	// ErrCodeAttributeType indicates a value that does not match the declared
	// attribute type.
	ErrCodeAttributeType ErrorCode = "ATTRIBUTE_TYPE"

	// ErrCodeInvalidOperation indicates a malformed operation.
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// ErrCodeInvalidExpression indicates a malformed query expression.
	ErrCodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"

	// ErrCodeRecordNotFound indicates an absent record under strict lookups.
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
)

// ValidationError reports a structurally invalid operation or expression.
// It signals a programming error and is raised regardless of any not-found
// leniency.
type ValidationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Type is the record type involved, when known.
	Type string

	// Field is the attribute, relationship or key involved, when known.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Type != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (type=%s, field=%s)", e.Code, e.Message, e.Type, e.Field)
	case e.Type != "":
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFoundError reports a record that must exist but does not.
type NotFoundError struct {
	// Record is the absent record.
	Record RecordIdentity

	// Relationship is set when the lookup went through a relationship.
	Relationship string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Relationship != "" {
		return fmt.Sprintf("%s: record %s not found (relationship=%s)", ErrCodeRecordNotFound, e.Record, e.Relationship)
	}
	return fmt.Sprintf("%s: record %s not found", ErrCodeRecordNotFound, e.Record)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFoundError reports whether err wraps a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// coder is implemented by errors outside this package that carry a code.
type coder interface {
	ErrorCode() string
}

// CodeOf extracts the error code from err, or "" when err carries none.
func CodeOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return string(ErrCodeRecordNotFound)
	}
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// NewValidationError builds a ValidationError.
func NewValidationError(code ErrorCode, typ, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Type:    typ,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
