// Package indicator defines the contract concrete indicators implement and a
// few data-plumbing indicators that only forward or delay market fields.
//
// Indicators receive one model.Candle per Next call and produce an
// output.Value, which may still hold symbolic field references for the
// strategy layer to resolve.
package indicator

import (
	"errors"
	"fmt"

	"tautils/internal/errs"
	"tautils/internal/model"
	"tautils/internal/output"
)

// ErrNotReady is returned by Next while an indicator is still filling its
// window. It is not a failure of the input.
var ErrNotReady = errors.New("indicator not ready")

// Period is implemented by anything with a lookback length.
type Period interface {
	Period() int
}

// Reset returns an indicator to its initial state.
type Reset interface {
	Reset()
}

// Indicator is the interface for all indicators.
type Indicator interface {
	Period
	Reset

	// Name returns the display name, e.g. "LAG_CLOSE_3".
	Name() string

	// OutputShape is the shape every successful Next result has.
	OutputShape() output.Shape

	// Next feeds one candle and returns the output for it.
	Next(c model.Candle) (output.Value, error)

	// Ready reports whether Next has enough history to produce output.
	Ready() bool
}

// Named returns the display name of v: Name() when v has one, otherwise its
// String() form, otherwise the %v rendering.
func Named(v any) string {
	switch n := v.(type) {
	case interface{ Name() string }:
		return n.Name()
	case fmt.Stringer:
		return n.String()
	}
	return fmt.Sprintf("%v", v)
}

// Unit is the empty indicator. Next always fails.
type Unit struct{}

func (Unit) Name() string              { return "UNIT" }
func (Unit) Period() int               { return 0 }
func (Unit) Reset()                    {}
func (Unit) Ready() bool               { return false }
func (Unit) OutputShape() output.Shape { return output.Flat(1) }

func (Unit) Next(model.Candle) (output.Value, error) {
	return output.Value{}, errs.InvalidParameter("Cannot call next on unit type")
}
