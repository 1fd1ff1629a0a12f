package strategy

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"tautils/internal/errs"
	"tautils/internal/output"
)

// Action represents a trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionExit Action = "EXIT"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionExit:
		return true
	}
	return false
}

// Op is a condition operator.
type Op string

const (
	OpGT Op = "gt"
	OpLT Op = "lt"
	OpEQ Op = "eq"
	OpGE Op = "ge"
	OpLE Op = "le"
	OpNE Op = "ne"
)

// Valid reports whether o is a known operator.
func (o Op) Valid() bool {
	switch o {
	case OpGT, OpLT, OpEQ, OpGE, OpLE, OpNE:
		return true
	}
	return false
}

// Operand is one side of a condition: a literal or field Value, or the
// current output of a named indicator.
type Operand struct {
	Value output.Value
	Input string
}

// Lit is a literal or field reference operand.
func Lit(v output.Value) Operand { return Operand{Value: v} }

// In is an indicator input operand.
func In(name string) Operand { return Operand{Input: name} }

// IsInput reports whether the operand names an indicator.
func (o Operand) IsInput() bool { return o.Input != "" }

func (o Operand) String() string {
	if o.IsInput() {
		return o.Input
	}
	return o.Value.String()
}

// UnmarshalYAML accepts {input: NAME} or any Value form.
func (o *Operand) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode && len(node.Content) == 2 && node.Content[0].Value == "input" {
		var name string
		if err := node.Content[1].Decode(&name); err != nil {
			return err
		}
		if name == "" {
			return fmt.Errorf("line %d: empty input name", node.Line)
		}
		*o = In(name)
		return nil
	}
	var v output.Value
	if err := v.UnmarshalYAML(node); err != nil {
		return err
	}
	*o = Lit(v)
	return nil
}

// MarshalYAML is the inverse of UnmarshalYAML.
func (o Operand) MarshalYAML() (interface{}, error) {
	if o.IsInput() {
		return map[string]string{"input": o.Input}, nil
	}
	return o.Value.MarshalYAML()
}

// Condition compares two operands.
type Condition struct {
	Left  Operand `yaml:"left"`
	Op    Op      `yaml:"op"`
	Right Operand `yaml:"right"`
}

func (c Condition) String() string {
	return c.Left.String() + " " + string(c.Op) + " " + c.Right.String()
}

// NodeKind tags a Node.
type NodeKind uint8

const (
	NodeInvalid NodeKind = iota
	NodeIf
	NodeSequence
	NodeEmit
)

var nodeKindNames = [...]string{"invalid", "if", "sequence", "emit"}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "invalid"
}

// Node is one element of a strategy tree. Kind selects which of the other
// fields is meaningful.
type Node struct {
	Kind     NodeKind
	If       *IfNode
	Sequence []Node
	Emit     Action
}

// IfNode branches on a condition. Else is required.
type IfNode struct {
	Cond Condition `yaml:"cond"`
	Then *Node     `yaml:"then"`
	Else *Node     `yaml:"else"`
}

// If builds an if node. els may be nil only to construct a tree that
// Validate rejects.
func If(cond Condition, then, els *Node) Node {
	return Node{Kind: NodeIf, If: &IfNode{Cond: cond, Then: then, Else: els}}
}

// Sequence builds a node that evaluates every child in order.
func Sequence(nodes ...Node) Node {
	return Node{Kind: NodeSequence, Sequence: append([]Node{}, nodes...)}
}

// Emit builds a leaf that emits a signal.
func Emit(a Action) Node { return Node{Kind: NodeEmit, Emit: a} }

// Ptr returns a pointer to n for use as an If branch.
func (n Node) Ptr() *Node { return &n }

// UnmarshalYAML reads a mapping with exactly one of the keys if, sequence
// or emit.
func (n *Node) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return errs.Lang("line %d: node wants exactly one of if, sequence, emit", node.Line)
	}
	key, body := node.Content[0].Value, node.Content[1]
	switch key {
	case "if":
		var in IfNode
		if err := body.Decode(&in); err != nil {
			return err
		}
		*n = Node{Kind: NodeIf, If: &in}
	case "sequence":
		seq := []Node{}
		if err := body.Decode(&seq); err != nil {
			return err
		}
		*n = Node{Kind: NodeSequence, Sequence: seq}
	case "emit":
		var a string
		if err := body.Decode(&a); err != nil {
			return err
		}
		*n = Emit(Action(strings.ToUpper(a)))
	default:
		return errs.Lang("line %d: unknown node %q", node.Line, key)
	}
	return nil
}

// MarshalYAML writes the form UnmarshalYAML reads.
func (n Node) MarshalYAML() (interface{}, error) {
	switch n.Kind {
	case NodeIf:
		return map[string]*IfNode{"if": n.If}, nil
	case NodeSequence:
		return map[string][]Node{"sequence": n.Sequence}, nil
	case NodeEmit:
		return map[string]Action{"emit": n.Emit}, nil
	}
	return nil, configError("cannot encode %s node", n.Kind)
}
