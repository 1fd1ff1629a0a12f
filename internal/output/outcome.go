package output

import (
	"fmt"
	"strings"
)

// Ordering is the result of a successful Compare.
type Ordering int8

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// Reverse flips Less and Greater.
func (o Ordering) Reverse() Ordering { return -o }

func (o Ordering) String() string {
	switch o {
	case Less:
		return "Less"
	case Equal:
		return "Equal"
	case Greater:
		return "Greater"
	}
	return fmt.Sprintf("Ordering(%d)", int8(o))
}

// Outcome is the symbolic result of a predicate evaluated by the strategy
// layer: whether something was above, equal to or below a reference, or
// whether it held at all.
type Outcome uint8

const (
	OutcomeGreater Outcome = iota
	OutcomeEqual
	OutcomeLess
	OutcomeTrue
	OutcomeFalse
)

var outcomeNames = [...]string{
	OutcomeGreater: "Greater",
	OutcomeEqual:   "Equal",
	OutcomeLess:    "Less",
	OutcomeTrue:    "True",
	OutcomeFalse:   "False",
}

// outcomeOrder is how an outcome orders against any scalar. The scalar's
// value is never consulted.
var outcomeOrder = [...]Ordering{
	OutcomeGreater: Greater,
	OutcomeEqual:   Equal,
	OutcomeLess:    Less,
	OutcomeTrue:    Equal,
	OutcomeFalse:   Equal,
}

// outcomeEquals is whether an outcome equals any scalar.
var outcomeEquals = [...]bool{
	OutcomeGreater: false,
	OutcomeEqual:   true,
	OutcomeLess:    false,
	OutcomeTrue:    true,
	OutcomeFalse:   false,
}

// OutcomeOf maps a predicate result to True or False.
func OutcomeOf(ok bool) Outcome {
	if ok {
		return OutcomeTrue
	}
	return OutcomeFalse
}

// Valid reports whether o is one of the five declared outcomes.
func (o Outcome) Valid() bool { return int(o) < len(outcomeNames) }

func (o Outcome) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
	return outcomeNames[o]
}

// ParseOutcome accepts the outcome names case-insensitively.
func ParseOutcome(s string) (Outcome, error) {
	for i, name := range outcomeNames {
		if strings.EqualFold(s, name) {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// CompareScalar orders o against a scalar using the sentinel table. The
// scalar argument does not influence the result.
func (o Outcome) CompareScalar(_ float64) (Ordering, bool) {
	if !o.Valid() {
		return 0, false
	}
	return outcomeOrder[o], true
}

// EqualsScalar reports sentinel equality against a scalar.
func (o Outcome) EqualsScalar(_ float64) bool {
	return o.Valid() && outcomeEquals[o]
}

// MarshalText encodes the outcome name.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("cannot encode %s", o)
	}
	return []byte(outcomeNames[o]), nil
}

// UnmarshalText parses an outcome name.
func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
