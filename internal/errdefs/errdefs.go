// Package errdefs defines the error kinds raised while building and evaluating
// operator graphs. Every kind is a sentinel usable with errors.Is; the Error
// type attaches the operator key and slot that triggered it.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrArgumentCount is returned when a variadic operator receives too few or too many inputs.
	ErrArgumentCount = errors.New("wrong number of arguments")
	// ErrSchemaMismatch is returned when inputs expected to agree on features or index do not.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrSamplingMismatch is returned when inputs must share a sampling and do not.
	ErrSamplingMismatch = errors.New("sampling mismatch")
	// ErrDTypeConstraint is returned when an operator-specific dtype requirement is violated.
	ErrDTypeConstraint = errors.New("dtype constraint violated")
	// ErrOverflow is returned when a checked cast would lose representable range.
	ErrOverflow = errors.New("overflow")
	// ErrMalformedOperator is returned by Check when an operator populated the wrong slots.
	ErrMalformedOperator = errors.New("malformed operator")
	// ErrCyclicGraph is returned by the engine when the operator graph has a cycle.
	ErrCyclicGraph = errors.New("cyclic graph")
	// ErrUnregisteredOperator is returned when no definition or implementation exists for a key.
	ErrUnregisteredOperator = errors.New("unregistered operator")
	// ErrInvalidArgument is returned for malformed attribute values or concrete data.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnboundInput is returned when a graph leaf has no concrete data at evaluation time.
	ErrUnboundInput = errors.New("unbound input")
)

// Error is a classified failure naming the operator and slot involved.
type Error struct {
	Kind     error
	Operator string
	Slot     string
	Detail   string
}

// Newf creates an Error of the given kind. Operator and slot may be empty.
func Newf(kind error, operator, slot, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Operator: operator,
		Slot:     slot,
		Detail:   fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Operator != "" {
		sb.WriteString(e.Operator)
		sb.WriteString(": ")
	}
	if e.Slot != "" {
		sb.WriteString(fmt.Sprintf("%q: ", e.Slot))
	}
	sb.WriteString(e.Kind.Error())
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

// Unwrap exposes the error kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

// WithOperator returns err annotated with the operator key when err is an
// *Error that does not name one yet. Other errors are returned unchanged.
func WithOperator(err error, operator string) error {
	var e *Error
	if errors.As(err, &e) && e.Operator == "" {
		annotated := *e
		annotated.Operator = operator
		return &annotated
	}
	return err
}

// WithSlot is like WithOperator for the slot name.
func WithSlot(err error, slot string) error {
	var e *Error
	if errors.As(err, &e) && e.Slot == "" {
		annotated := *e
		annotated.Slot = slot
		return &annotated
	}
	return err
}
