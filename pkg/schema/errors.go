package schema

import (
	"errors"
	"fmt"
)

// Error codes reported in a validation context's message map.
const (
	CodeRequired    = "required"
	CodeNoValue     = "noValue"
	CodeIsNull      = "isNull"
	CodeInvalidType = "invalidType"
	CodeInvalidDate = "invalidDate"
	CodeMinNumber   = "minNumber"
	CodeMaxNumber   = "maxNumber"
	CodeMinString   = "minString"
	CodeMaxString   = "maxString"
	CodeMinArray    = "minArray"
	CodeMaxArray    = "maxArray"
	CodeMinDate     = "minDate"
	CodeMaxDate     = "maxDate"
	CodeNotAllowed  = "notAllowed"
	CodeNotInSchema = "notInSchema"
	CodeInvalid     = "invalid"
	CodeError       = "error"
)

var (
	// ErrUnknownType is returned when a type token cannot be resolved to a descriptor.
	ErrUnknownType = errors.New("unknown type")
	// ErrEmptyComposite is returned when a composite type is declared without arguments.
	ErrEmptyComposite = errors.New("composite type requires at least one type")
	// ErrInvalidFieldName is returned for field names that are not identifier-like.
	ErrInvalidFieldName = errors.New("invalid field name")
	// ErrInvalidOption is returned for malformed field options.
	ErrInvalidOption = errors.New("invalid field option")
	// ErrUnknownField is returned by SetMessage for fields the schema does not declare.
	ErrUnknownField = errors.New("field not declared in schema")
)

// ConfigError describes a programming error in a schema declaration or in the
// use of a validation context. It is never produced by validating data.
type ConfigError struct {
	Field  string // Field name, empty when not field specific
	Reason string // Human-readable detail
	Err    error  // One of the Err* sentinels
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: %v: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("schema: field %q: %v: %s", e.Field, e.Err, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(field string, err error, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: err, Reason: fmt.Sprintf(format, args...)}
}
