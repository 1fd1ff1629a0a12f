package output

import (
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNumber Kind = iota
	KindNumberVector
	KindOpen
	KindClose
	KindHigh
	KindLow
	KindVolume
	KindComposite
	KindOutcome
	KindOutcomeVector
)

var kindNames = [...]string{
	KindNumber:        "Number",
	KindNumberVector:  "NumberVector",
	KindOpen:          "Open",
	KindClose:         "Close",
	KindHigh:          "High",
	KindLow:           "Low",
	KindVolume:        "Volume",
	KindComposite:     "Composite",
	KindOutcome:       "Outcome",
	KindOutcomeVector: "OutcomeVector",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsFieldRef reports whether k is one of the market data placeholders.
func (k Kind) IsFieldRef() bool { return k >= KindOpen && k <= KindVolume }

// Value is an indicator or strategy output. The zero Value is Number(0).
//
// Values are immutable: constructors copy their slices and accessors hand
// out copies.
type Value struct {
	kind     Kind
	num      float64
	nums     []float64
	outcome  Outcome
	outcomes []Outcome
	children []Value
}

// FromFloat returns a scalar Number.
func FromFloat(f float64) Value { return Value{kind: KindNumber, num: f} }

// FromFloats returns a NumberVector.
func FromFloats(fs []float64) Value {
	cp := make([]float64, len(fs))
	copy(cp, fs)
	return Value{kind: KindNumberVector, nums: cp}
}

// Vector is FromFloats for literal arguments.
func Vector(fs ...float64) Value { return FromFloats(fs) }

// FromOutcome returns a scalar Outcome value.
func FromOutcome(o Outcome) Value { return Value{kind: KindOutcome, outcome: o} }

// FromOutcomes returns an OutcomeVector.
func FromOutcomes(os ...Outcome) Value {
	cp := make([]Outcome, len(os))
	copy(cp, os)
	return Value{kind: KindOutcomeVector, outcomes: cp}
}

// Composite nests sub-values.
func Composite(children ...Value) Value {
	cp := make([]Value, len(children))
	copy(cp, children)
	return Value{kind: KindComposite, children: cp}
}

func OpenRef() Value   { return Value{kind: KindOpen} }
func CloseRef() Value  { return Value{kind: KindClose} }
func HighRef() Value   { return Value{kind: KindHigh} }
func LowRef() Value    { return Value{kind: KindLow} }
func VolumeRef() Value { return Value{kind: KindVolume} }

// FieldRef returns the placeholder for k, or false if k is not a field kind.
func FieldRef(k Kind) (Value, bool) {
	if !k.IsFieldRef() {
		return Value{}, false
	}
	return Value{kind: k}, true
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Float64 narrows a Number. No other kind converts.
func (v Value) Float64() (float64, error) {
	if v.kind != KindNumber {
		return 0, &TypeMismatchError{Expected: "scalar", Actual: v.kind.String()}
	}
	return v.num, nil
}

// Float64s narrows a NumberVector. A scalar is never widened.
func (v Value) Float64s() ([]float64, error) {
	if v.kind != KindNumberVector {
		return nil, &TypeMismatchError{Expected: "vector", Actual: v.kind.String()}
	}
	cp := make([]float64, len(v.nums))
	copy(cp, v.nums)
	return cp, nil
}

// Outcome returns the payload of an Outcome value.
func (v Value) Outcome() (Outcome, bool) {
	if v.kind != KindOutcome {
		return 0, false
	}
	return v.outcome, true
}

// Outcomes returns a copy of an OutcomeVector's payload.
func (v Value) Outcomes() ([]Outcome, bool) {
	if v.kind != KindOutcomeVector {
		return nil, false
	}
	cp := make([]Outcome, len(v.outcomes))
	copy(cp, v.outcomes)
	return cp, true
}

// Children returns a copy of a Composite's children.
func (v Value) Children() ([]Value, bool) {
	if v.kind != KindComposite {
		return nil, false
	}
	cp := make([]Value, len(v.children))
	copy(cp, v.children)
	return cp, true
}

// IsResolved reports whether v holds no field references at any depth.
func (v Value) IsResolved() bool {
	if v.kind.IsFieldRef() {
		return false
	}
	for _, c := range v.children {
		if !c.IsResolved() {
			return false
		}
	}
	return true
}

// Shape derives v's shape. Vectors must be non-empty and a composite's shape
// is the validated tensor of its children's shapes.
func (v Value) Shape() (Shape, error) {
	return v.shape(0)
}

func (v Value) shape(depth int) (Shape, error) {
	if depth > MaxDepth {
		return Shape{}, depthError()
	}
	switch v.kind {
	case KindNumberVector:
		return validate(Flat(len(v.nums)), depth)
	case KindOutcomeVector:
		return validate(Flat(len(v.outcomes)), depth)
	case KindComposite:
		shapes := make([]Shape, 0, len(v.children))
		for _, c := range v.children {
			s, err := c.shape(depth + 1)
			if err != nil {
				return Shape{}, err
			}
			shapes = append(shapes, s)
		}
		return validate(Shape{tensor: true, children: shapes}, depth)
	}
	return Flat(1), nil
}

func (v Value) String() string {
	var b strings.Builder
	v.render(&b)
	return b.String()
}

func (v Value) render(b *strings.Builder) {
	b.WriteString(v.kind.String())
	switch v.kind {
	case KindNumber:
		b.WriteByte('(')
		b.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
		b.WriteByte(')')
	case KindNumberVector:
		b.WriteString("([")
		for i, f := range v.nums {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
		b.WriteString("])")
	case KindOutcome:
		b.WriteByte('(')
		b.WriteString(v.outcome.String())
		b.WriteByte(')')
	case KindOutcomeVector:
		b.WriteString("([")
		for i, o := range v.outcomes {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o.String())
		}
		b.WriteString("])")
	case KindComposite:
		b.WriteByte('(')
		for i, c := range v.children {
			if i > 0 {
				b.WriteString(", ")
			}
			c.render(b)
		}
		b.WriteByte(')')
	}
}
