package strategy

import (
	"fmt"
	"strings"

	"tautils/internal/errs"
	"tautils/internal/output"
)

// Inputs are the current indicator outputs, keyed by indicator name.
type Inputs map[string]output.Value

// Emission is one action reached while walking a tree. Reason lists the
// conditions taken on the way, with negated ones for else branches.
type Emission struct {
	Action Action
	Reason string
}

// Result is the outcome of one Evaluate call.
type Result struct {
	Emissions []Emission

	// Incomparable counts ordering conditions whose operands had no
	// ordering. Each of them evaluated to false.
	Incomparable int
}

// Evaluate walks a validated tree against one sample. Operands are resolved
// against s before comparing, so field references read the sample's fields.
//
// gt, lt, ge and le go through output.Compare; an incomparable pair is
// false. eq and ne use output.Equals and are never incomparable.
func Evaluate(n Node, s output.Sample, in Inputs) (Result, error) {
	ev := evaluator{sample: s, inputs: in}
	if err := ev.walk(n, 0); err != nil {
		return Result{}, err
	}
	return ev.res, nil
}

type evaluator struct {
	sample output.Sample
	inputs Inputs
	trail  []string
	res    Result
}

func (ev *evaluator) walk(n Node, depth int) error {
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
		ok, err := ev.condition(n.If.Cond)
		if err != nil {
			return err
		}
		branch, label := n.If.Then, n.If.Cond.String()
		if !ok {
			branch, label = n.If.Else, "!("+label+")"
		}
		ev.trail = append(ev.trail, label)
		err = ev.walk(*branch, depth+1)
		ev.trail = ev.trail[:len(ev.trail)-1]
		return err

	case NodeSequence:
		if len(n.Sequence) == 0 {
			return ErrEmptySequence
		}
		for _, child := range n.Sequence {
			if err := ev.walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil

	case NodeEmit:
		ev.res.Emissions = append(ev.res.Emissions, Emission{
			Action: n.Emit,
			Reason: strings.Join(ev.trail, " && "),
		})
		return nil
	}
	return configError("empty node")
}

func (ev *evaluator) condition(c Condition) (bool, error) {
	l, err := ev.operand(c.Left)
	if err != nil {
		return false, err
	}
	r, err := ev.operand(c.Right)
	if err != nil {
		return false, err
	}

	switch c.Op {
	case OpEQ:
		return output.Equals(l, r), nil
	case OpNE:
		return !output.Equals(l, r), nil
	}

	ord, ok := output.Compare(l, r)
	if !ok {
		ev.res.Incomparable++
		return false, nil
	}
	switch c.Op {
	case OpGT:
		return ord == output.Greater, nil
	case OpLT:
		return ord == output.Less, nil
	case OpGE:
		return ord != output.Less, nil
	case OpLE:
		return ord != output.Greater, nil
	}
	return false, errs.Unexpected("operator %q", c.Op)
}

func (ev *evaluator) operand(o Operand) (output.Value, error) {
	v := o.Value
	if o.IsInput() {
		in, ok := ev.inputs[o.Input]
		if !ok {
			return output.Value{}, configError("unknown input %s", o.Input)
		}
		v = in
	}
	r, err := output.Resolve(v, ev.sample)
	if err != nil {
		return output.Value{}, fmt.Errorf("operand %s: %w", o, err)
	}
	return r, nil
}
