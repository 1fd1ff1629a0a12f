package output

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape reports a Flat with a non-positive size or a Tensor
	// with no children, at any depth.
	ErrInvalidShape = errors.New("invalid output shape")

	// ErrTypeMismatch reports a narrowing conversion on the wrong kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrIncompatibleResolvedType reports a composite child that resolved to
	// a kind the composite does not accept.
	ErrIncompatibleResolvedType = errors.New("incompatible resolved type")

	// ErrLengthMismatch reports two vectors of different lengths where the
	// caller needs them to line up.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrDepthExceeded reports a Shape or Value tree nested deeper than
	// MaxDepth.
	ErrDepthExceeded = errors.New("nesting depth exceeded")
)

// ShapeError carries the shape that failed validation.
type ShapeError struct {
	Shape Shape
}

func (e *ShapeError) Error() string { return "Invalid output shape " + e.Shape.String() }
func (e *ShapeError) Unwrap() error { return ErrInvalidShape }

// TypeMismatchError is returned by Float64 and Float64s.
type TypeMismatchError struct {
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("Incorrect output type, expected %s, got %s", e.Expected, e.Actual)
}
func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// IncompatibleTypeError is returned by Resolve when a composite child
// resolves to something other than a scalar. Shape is the rendered shape of
// the offending child, empty if it has none.
type IncompatibleTypeError struct {
	Expected string
	Actual   string
	Shape    string
}

func (e *IncompatibleTypeError) Error() string {
	if e.Shape == "" {
		return fmt.Sprintf("Incorrect output type, expected %s, got %s", e.Expected, e.Actual)
	}
	return fmt.Sprintf("Incorrect output type, expected %s, got %s %s", e.Expected, e.Actual, e.Shape)
}
func (e *IncompatibleTypeError) Unwrap() error { return ErrIncompatibleResolvedType }

// LengthMismatchError names both lengths.
type LengthMismatchError struct {
	Left, Right int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("Length mismatch between two arrays, array1: %d, array2: %d", e.Left, e.Right)
}
func (e *LengthMismatchError) Unwrap() error { return ErrLengthMismatch }

func depthError() error {
	return fmt.Errorf("%w: limit %d", ErrDepthExceeded, MaxDepth)
}
