package strategy

import (
	"fmt"

	"tautils/internal/output"
)

// Shapes looks up the declared output shape of a named indicator.
// *indicator.Set satisfies it.
type Shapes interface {
	Shape(name string) (output.Shape, bool)
}

// Validate checks a strategy tree before it is run: every if has both
// branches, every sequence has children, every action and operator is known,
// every input is declared in shapes, and both sides of a condition have the
// same shape. shapes may be nil when the tree uses no inputs.
func Validate(n Node, shapes Shapes) error {
	return validate(n, shapes, 0)
}

func validate(n Node, shapes Shapes, depth int) error {
	if depth > output.MaxDepth {
		return configError("strategy tree deeper than %d", output.MaxDepth)
	}
	switch n.Kind {
	case NodeIf:
		if n.If == nil || n.If.Then == nil {
			return configError("if node is missing a then branch")
		}
		if n.If.Else == nil {
			return ErrMissingElseBranch
		}
		if err := validateCondition(n.If.Cond, shapes); err != nil {
			return err
		}
		if err := validate(*n.If.Then, shapes, depth+1); err != nil {
			return err
		}
		return validate(*n.If.Else, shapes, depth+1)

	case NodeSequence:
		if len(n.Sequence) == 0 {
			return ErrEmptySequence
		}
		for _, child := range n.Sequence {
			if err := validate(child, shapes, depth+1); err != nil {
				return err
			}
		}
		return nil

	case NodeEmit:
		if !n.Emit.Valid() {
			return configError("unknown action %q", n.Emit)
		}
		return nil
	}
	return configError("empty node")
}

func validateCondition(c Condition, shapes Shapes) error {
	if !c.Op.Valid() {
		return configError("unknown operator %q", c.Op)
	}
	left, err := operandShape(c.Left, shapes)
	if err != nil {
		return err
	}
	right, err := operandShape(c.Right, shapes)
	if err != nil {
		return err
	}
	if left.Equal(right) {
		return nil
	}

	// Name the indicator side when there is one.
	e := &IncompatibleShapesError{Name: c.String(), Indicator: left, Value: right}
	switch {
	case c.Left.IsInput():
		e.Name = c.Left.Input
	case c.Right.IsInput():
		e.Name, e.Indicator, e.Value = c.Right.Input, right, left
	}
	return e
}

func operandShape(o Operand, shapes Shapes) (output.Shape, error) {
	if !o.IsInput() {
		s, err := o.Value.Shape()
		if err != nil {
			return output.Shape{}, fmt.Errorf("operand %s: %w", o, err)
		}
		return s, nil
	}
	if shapes == nil {
		return output.Shape{}, configError("unknown input %s", o.Input)
	}
	s, ok := shapes.Shape(o.Input)
	if !ok {
		return output.Shape{}, configError("unknown input %s", o.Input)
	}
	return output.Validate(s)
}
