// Package errs holds the general error catalog shared by indicators,
// strategies and the stores. Callers match with errors.Is; the helpers attach
// detail with %w wrapping so the sentinel always survives.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter reports a bad constructor or call argument.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnallowed reports an operation that is not permitted, such as
	// modifying something that is immutable.
	ErrUnallowed = errors.New("unallowed operation")

	// ErrUnexpected reports a state that should not be reachable.
	ErrUnexpected = errors.New("unexpected error")

	// ErrLang reports a failure in the strategy definition language.
	ErrLang = errors.New("lang error")
)

// InvalidParameter wraps ErrInvalidParameter with the offending parameter.
func InvalidParameter(format string, args ...any) error {
	return fmt.Errorf("%w '%s' found", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// Unallowed wraps ErrUnallowed.
func Unallowed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnallowed, fmt.Sprintf(format, args...))
}

// Unexpected wraps ErrUnexpected.
func Unexpected(format string, args ...any) error {
	return fmt.Errorf("%w, %s", ErrUnexpected, fmt.Sprintf(format, args...))
}

// Lang wraps ErrLang.
func Lang(format string, args ...any) error {
	return fmt.Errorf("%w %s", ErrLang, fmt.Sprintf(format, args...))
}
