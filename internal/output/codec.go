package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wire tags. Each payload kind encodes as a single-key object keyed by its
// tag; field references encode as bare strings.
const (
	tagSingle  = "Single"
	tagArray   = "Array"
	tagCustom  = "Custom"
	tagStatic  = "Static"
	tagStatics = "Statics"

	tagShape  = "Shape"
	tagTensor = "Tensor"
)

// tagKinds also accepts the Kind names on decode.
var tagKinds = map[string]Kind{
	tagSingle:  KindNumber,
	tagArray:   KindNumberVector,
	tagCustom:  KindComposite,
	tagStatic:  KindOutcome,
	tagStatics: KindOutcomeVector,

	"Number":        KindNumber,
	"NumberVector":  KindNumberVector,
	"Composite":     KindComposite,
	"Outcome":       KindOutcome,
	"OutcomeVector": KindOutcomeVector,
}

func parseFieldRef(s string) (Value, bool) {
	for k := KindOpen; k <= KindVolume; k++ {
		if strings.EqualFold(s, kindNames[k]) {
			return Value{kind: k}, true
		}
	}
	return Value{}, false
}

// JSONFloat carries the floats JSON cannot: NaN is written as null and the
// infinities as the strings "inf" and "-inf".
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte("null"), nil
	case math.IsInf(v, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	}
	return json.Marshal(v)
}

func (f *JSONFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = JSONFloat(math.NaN())
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(s) {
		case "inf", "+inf":
			*f = JSONFloat(math.Inf(1))
		case "-inf":
			*f = JSONFloat(math.Inf(-1))
		case "nan":
			*f = JSONFloat(math.NaN())
		default:
			return fmt.Errorf("invalid float %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = JSONFloat(v)
	return nil
}

// JSONFloats converts fs for encoding.
func JSONFloats(fs []float64) []JSONFloat {
	if fs == nil {
		return nil
	}
	out := make([]JSONFloat, len(fs))
	for i, f := range fs {
		out[i] = JSONFloat(f)
	}
	return out
}

// FromJSONFloats converts decoded floats back.
func FromJSONFloats(fs []JSONFloat) []float64 {
	if fs == nil {
		return nil
	}
	out := make([]float64, len(fs))
	for i, f := range fs {
		out[i] = float64(f)
	}
	return out
}

func outcomeNamesOf(os []Outcome) ([]string, error) {
	names := make([]string, len(os))
	for i, o := range os {
		if !o.Valid() {
			return nil, fmt.Errorf("cannot encode %s", o)
		}
		names[i] = outcomeNames[o]
	}
	return names, nil
}

func parseOutcomes(names []string) ([]Outcome, error) {
	out := make([]Outcome, len(names))
	for i, n := range names {
		o, err := ParseOutcome(n)
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

// MarshalJSON encodes v in the tagged wire form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(map[string]JSONFloat{tagSingle: JSONFloat(v.num)})
	case KindNumberVector:
		fs := make([]JSONFloat, len(v.nums))
		for i, f := range v.nums {
			fs[i] = JSONFloat(f)
		}
		return json.Marshal(map[string][]JSONFloat{tagArray: fs})
	case KindComposite:
		children := v.children
		if children == nil {
			children = []Value{}
		}
		return json.Marshal(map[string][]Value{tagCustom: children})
	case KindOutcome:
		name, err := v.outcome.MarshalText()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{tagStatic: string(name)})
	case KindOutcomeVector:
		names, err := outcomeNamesOf(v.outcomes)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string][]string{tagStatics: names})
	}
	if v.kind.IsFieldRef() {
		return json.Marshal(v.kind.String())
	}
	return nil, fmt.Errorf("cannot encode value of %s", v.kind)
}

// UnmarshalJSON decodes the tagged wire form.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		ref, ok := parseFieldRef(name)
		if !ok {
			return fmt.Errorf("unknown field reference %q", name)
		}
		*v = ref
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("decode value: want exactly one tag, got %d", len(obj))
	}
	for tag, raw := range obj {
		kind, ok := tagKinds[tag]
		if !ok {
			return fmt.Errorf("decode value: unknown tag %q", tag)
		}
		return v.decodeTagged(kind, raw)
	}
	return nil
}

func (v *Value) decodeTagged(kind Kind, raw json.RawMessage) error {
	switch kind {
	case KindNumber:
		var f JSONFloat
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		*v = FromFloat(float64(f))
	case KindNumberVector:
		var fs []JSONFloat
		if err := json.Unmarshal(raw, &fs); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		nums := make([]float64, len(fs))
		for i, f := range fs {
			nums[i] = float64(f)
		}
		*v = Value{kind: KindNumberVector, nums: nums}
	case KindComposite:
		var children []Value
		if err := json.Unmarshal(raw, &children); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		if children == nil {
			children = []Value{}
		}
		*v = Value{kind: KindComposite, children: children}
	case KindOutcome:
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		o, err := ParseOutcome(name)
		if err != nil {
			return err
		}
		*v = FromOutcome(o)
	case KindOutcomeVector:
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		os, err := parseOutcomes(names)
		if err != nil {
			return err
		}
		*v = Value{kind: KindOutcomeVector, outcomes: os}
	}
	return nil
}

// MarshalJSON encodes {"Shape":n} or {"Tensor":[...]}.
func (s Shape) MarshalJSON() ([]byte, error) {
	if !s.tensor {
		return json.Marshal(map[string]int{tagShape: s.size})
	}
	children := s.children
	if children == nil {
		children = []Shape{}
	}
	return json.Marshal(map[string][]Shape{tagTensor: children})
}

// UnmarshalJSON decodes the form written by MarshalJSON. It does not
// validate; call Validate on the result.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode shape: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("decode shape: want exactly one tag, got %d", len(obj))
	}
	if raw, ok := obj[tagShape]; ok {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("decode shape: %w", err)
		}
		*s = Flat(n)
		return nil
	}
	if raw, ok := obj[tagTensor]; ok {
		var children []Shape
		if err := json.Unmarshal(raw, &children); err != nil {
			return fmt.Errorf("decode tensor: %w", err)
		}
		*s = Shape{tensor: true, children: children}
		return nil
	}
	return fmt.Errorf("decode shape: unknown tag")
}

// MarshalYAML writes the short forms used in strategy files: a number, a
// list of numbers, a field or outcome name, or a list of outcome names.
// Composites keep the tagged form so they decode back as composites.
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindNumberVector:
		return append([]float64{}, v.nums...), nil
	case KindOutcome:
		return v.outcome.String(), nil
	case KindOutcomeVector:
		return outcomeNamesOf(v.outcomes)
	case KindComposite:
		children := v.children
		if children == nil {
			children = []Value{}
		}
		return map[string][]Value{tagCustom: children}, nil
	}
	if v.kind.IsFieldRef() {
		return strings.ToLower(v.kind.String()), nil
	}
	return nil, fmt.Errorf("cannot encode value of %s", v.kind)
}

// UnmarshalYAML reads the short forms written by MarshalYAML as well as the
// tagged mapping form. A bool scalar decodes to True/False. A sequence
// becomes a NumberVector when every item is a number, an OutcomeVector when
// every item is an outcome, and a Composite otherwise.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return v.decodeYAMLScalar(node)

	case yaml.SequenceNode:
		items := make([]Value, len(node.Content))
		for i, n := range node.Content {
			if err := items[i].UnmarshalYAML(n); err != nil {
				return err
			}
		}
		*v = fromItems(items)
		return nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: value mapping wants exactly one tag", node.Line)
		}
		tag := node.Content[0].Value
		kind, ok := tagKinds[tag]
		if !ok {
			return fmt.Errorf("line %d: unknown value tag %q", node.Line, tag)
		}
		return v.decodeYAMLTagged(kind, node.Content[1])

	case yaml.AliasNode:
		return v.UnmarshalYAML(node.Alias)
	}
	return fmt.Errorf("line %d: unsupported value node", node.Line)
}

func (v *Value) decodeYAMLScalar(node *yaml.Node) error {
	switch node.ShortTag() {
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = FromFloat(f)
		return nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = FromOutcome(OutcomeOf(b))
		return nil
	}
	if ref, ok := parseFieldRef(node.Value); ok {
		*v = ref
		return nil
	}
	if o, err := ParseOutcome(node.Value); err == nil {
		*v = FromOutcome(o)
		return nil
	}
	return fmt.Errorf("line %d: %q is not a number, field or outcome", node.Line, node.Value)
}

func (v *Value) decodeYAMLTagged(kind Kind, node *yaml.Node) error {
	switch kind {
	case KindNumber:
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = FromFloat(f)
	case KindNumberVector:
		var fs []float64
		if err := node.Decode(&fs); err != nil {
			return err
		}
		*v = FromFloats(fs)
	case KindComposite:
		var children []Value
		if err := node.Decode(&children); err != nil {
			return err
		}
		*v = Composite(children...)
	case KindOutcome:
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		o, err := ParseOutcome(name)
		if err != nil {
			return err
		}
		*v = FromOutcome(o)
	case KindOutcomeVector:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		os, err := parseOutcomes(names)
		if err != nil {
			return err
		}
		*v = FromOutcomes(os...)
	}
	return nil
}

func fromItems(items []Value) Value {
	if len(items) == 0 {
		return FromFloats(nil)
	}
	allNums, allOutcomes := true, true
	for _, it := range items {
		allNums = allNums && it.kind == KindNumber
		allOutcomes = allOutcomes && it.kind == KindOutcome
	}
	switch {
	case allNums:
		nums := make([]float64, len(items))
		for i, it := range items {
			nums[i] = it.num
		}
		return Value{kind: KindNumberVector, nums: nums}
	case allOutcomes:
		os := make([]Outcome, len(items))
		for i, it := range items {
			os[i] = it.outcome
		}
		return Value{kind: KindOutcomeVector, outcomes: os}
	}
	return Composite(items...)
}
