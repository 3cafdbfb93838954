// Package errors defines the error taxonomy shared by the HL7 v2 codec.
//
// Field-level failures (FormatError, ConstraintViolation) are returned from
// setters and recorded on fields during lenient parsing; they are aggregated
// into issue lists by segment and message validation. Only StructuralError is
// allowed to abort parsing of a whole message.
package errors

import (
	"errors"
	"fmt"
)

// Class classifies codec errors for callers that branch on the kind of failure.
type Class int

const (
	// ClassFormat means raw text does not parse into the field's typed value.
	ClassFormat Class = iota
	// ClassConstraint means a value is present but violates length, range or requiredness rules.
	ClassConstraint
	// ClassStructure means a message cannot be decomposed or lacks a mandatory segment.
	ClassStructure
	// ClassUnknown is returned by Classify for errors outside the taxonomy.
	ClassUnknown
)

// String returns the string representation of the Class.
func (c Class) String() string {
	switch c {
	case ClassFormat:
		return "format"
	case ClassConstraint:
		return "constraint"
	case ClassStructure:
		return "structure"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by errors.Is against the typed errors below.
var (
	ErrFormat     = errors.New("format error")
	ErrConstraint = errors.New("constraint violation")
	ErrStructure  = errors.New("structural error")

	// Registry errors
	ErrRegistryFrozen    = errors.New("registry is frozen")
	ErrDuplicatePlugin   = errors.New("registration already exists")
	ErrInvalidKey        = errors.New("invalid registry key")
	ErrSchemaMismatch    = errors.New("segment schema does not match accessor")
	ErrSegmentOutOfRange = errors.New("segment index out of range")
)

// FormatError reports raw text that does not parse into a typed value.
type FormatError struct {
	Type   string // data type code, e.g. "DT"
	Value  string // offending raw text
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s value %q: %s", e.Type, truncate(e.Value), e.Reason)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ConstraintViolation reports a present value that fails a rule.
type ConstraintViolation struct {
	Field  string // field name or address
	Rule   string // "max-length", "range", "required", "plausibility"
	Detail string
}

// Error implements the error interface.
func (e *ConstraintViolation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s violated: %s", e.Rule, e.Detail)
	}
	return fmt.Sprintf("%s: %s violated: %s", e.Field, e.Rule, e.Detail)
}

// Is reports whether target is ErrConstraint.
func (e *ConstraintViolation) Is(target error) bool {
	return target == ErrConstraint
}

// StructuralError reports input that cannot be decomposed into segments,
// or a message missing a mandatory segment.
type StructuralError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structural error: %s: %v", e.Reason, e.Err)
	}
	return "structural error: " + e.Reason
}

// Is reports whether target is ErrStructure.
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructure
}

// Unwrap returns the underlying error.
func (e *StructuralError) Unwrap() error {
	return e.Err
}

// NewFormat creates a FormatError.
func NewFormat(typ, value, reason string) error {
	return &FormatError{Type: typ, Value: value, Reason: reason}
}

// NewConstraint creates a ConstraintViolation.
func NewConstraint(field, rule, detail string) error {
	return &ConstraintViolation{Field: field, Rule: rule, Detail: detail}
}

// NewStructural creates a StructuralError.
func NewStructural(reason string) error {
	return &StructuralError{Reason: reason}
}

// IsFormat checks if an error is a FormatError.
func IsFormat(err error) bool {
	return err != nil && errors.Is(err, ErrFormat)
}

// IsConstraint checks if an error is a ConstraintViolation.
func IsConstraint(err error) bool {
	return err != nil && errors.Is(err, ErrConstraint)
}

// IsStructural checks if an error is a StructuralError.
func IsStructural(err error) bool {
	return err != nil && errors.Is(err, ErrStructure)
}

// Classify returns the class for an error.
func Classify(err error) Class {
	switch {
	case IsFormat(err):
		return ClassFormat
	case IsConstraint(err):
		return ClassConstraint
	case IsStructural(err):
		return ClassStructure
	default:
		return ClassUnknown
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func truncate(s string) string {
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}
