package output

// Sample is the market data capability Resolve reads from. model.Bar and
// model.MarketData satisfy it.
type Sample interface {
	Open() float64
	Close() float64
	High() float64
	Low() float64
	Volume() float64
}

// Resolve replaces field references in v with numbers read from s.
//
// Concrete kinds come back unchanged. A composite resolves child by child and
// only accepts children that end up as Number or Outcome; the first child
// that resolves to a vector or a nested composite fails the whole call with
// an *IncompatibleTypeError.
func Resolve(v Value, s Sample) (Value, error) {
	return resolve(v, s, 0)
}

func resolve(v Value, s Sample, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, depthError()
	}
	switch v.kind {
	case KindOpen:
		return FromFloat(s.Open()), nil
	case KindClose:
		return FromFloat(s.Close()), nil
	case KindHigh:
		return FromFloat(s.High()), nil
	case KindLow:
		return FromFloat(s.Low()), nil
	case KindVolume:
		return FromFloat(s.Volume()), nil
	case KindComposite:
		out := make([]Value, 0, len(v.children))
		for _, c := range v.children {
			r, err := resolve(c, s, depth+1)
			if err != nil {
				return Value{}, err
			}
			switch r.kind {
			case KindNumber, KindOutcome:
				out = append(out, r)
			default:
				// TODO: accept vector and nested children once callers can
				// consume non-flat composite shapes.
				e := &IncompatibleTypeError{Expected: "scalar", Actual: r.kind.String()}
				if sh, err := r.shape(depth + 1); err == nil {
					e.Shape = sh.String()
				}
				return Value{}, e
			}
		}
		return Value{kind: KindComposite, children: out}, nil
	}
	return v, nil
}
