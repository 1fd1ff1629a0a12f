package strategy

import (
	"errors"
	"fmt"

	"tautils/internal/output"
)

// Strategy errors. Validation and parse failures wrap one of these, so
// callers match with errors.Is.
var (
	ErrMissingElseBranch      = errors.New("if node is missing an else branch")
	ErrEmptySequence          = errors.New("sequence node must contain at least one child")
	ErrIncompatibleShapes     = errors.New("incompatible shapes")
	ErrInvalidIndicatorPeriod = errors.New("invalid indicator period")
	ErrEmptyIterator          = errors.New("empty iterator")
	ErrSerialization          = errors.New("serialization error")
	ErrIO                     = errors.New("io error")
	ErrConfiguration          = errors.New("configuration error")
)

// IncompatibleShapesError reports a condition whose operands cannot be
// compared because their shapes differ.
type IncompatibleShapesError struct {
	Name      string
	Indicator output.Shape
	Value     output.Shape
}

func (e *IncompatibleShapesError) Error() string {
	return fmt.Sprintf("incompatible shapes: %s vs %s for '%s'", e.Indicator, e.Value, e.Name)
}

func (e *IncompatibleShapesError) Unwrap() error { return ErrIncompatibleShapes }

// InvalidPeriodError reports an indicator configured with an unusable period.
type InvalidPeriodError struct {
	Period int
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid indicator period: %d", e.Period)
}

func (e *InvalidPeriodError) Unwrap() error { return ErrInvalidIndicatorPeriod }

func configError(format string, args ...any) error {
	return fmt.Errorf("%w, %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func serializationError(err error) error {
	return fmt.Errorf("%w: %w", ErrSerialization, err)
}

func ioError(err error) error {
	return fmt.Errorf("%w: %w", ErrIO, err)
}
