package indicator

import (
	"strconv"
	"strings"

	"tautils/internal/errs"
	"tautils/internal/model"
	"tautils/internal/output"
	"tautils/internal/queue"
)

// ParseField maps "open", "close", "high", "low" or "volume" to its Kind.
func ParseField(s string) (output.Kind, error) {
	for k := output.KindOpen; k <= output.KindVolume; k++ {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, errs.InvalidParameter("field=%s", s)
}

// Field forwards a market field as an unresolved reference. The strategy
// layer resolves it against the same candle.
type Field struct {
	ref output.Value
}

// NewField creates a forwarding indicator for a field kind.
func NewField(k output.Kind) (*Field, error) {
	ref, ok := output.FieldRef(k)
	if !ok {
		return nil, errs.InvalidParameter("field=%s", k)
	}
	return &Field{ref: ref}, nil
}

func (f *Field) Name() string              { return "FIELD_" + strings.ToUpper(f.ref.Kind().String()) }
func (f *Field) Period() int               { return 1 }
func (f *Field) Reset()                    {}
func (f *Field) Ready() bool               { return true }
func (f *Field) OutputShape() output.Shape { return output.Flat(1) }

func (f *Field) Next(model.Candle) (output.Value, error) { return f.ref, nil }

// Lag emits the value a field had period candles ago.
type Lag struct {
	field  output.Value
	period int
	window *queue.Queue[float64]
}

// NewLag creates a Lag over field k. period must be at least 1.
func NewLag(k output.Kind, period int) (*Lag, error) {
	ref, ok := output.FieldRef(k)
	if !ok {
		return nil, errs.InvalidParameter("field=%s", k)
	}
	if period < 1 {
		return nil, errs.InvalidParameter("period=%d", period)
	}
	// One slot for the current candle plus period of history.
	w, err := queue.New[float64](period + 1)
	if err != nil {
		return nil, err
	}
	return &Lag{field: ref, period: period, window: w}, nil
}

func (l *Lag) Name() string {
	return "LAG_" + strings.ToUpper(l.field.Kind().String()) + "_" + strconv.Itoa(l.period)
}

func (l *Lag) Period() int               { return l.period }
func (l *Lag) Reset()                    { l.window.Reset() }
func (l *Lag) Ready() bool               { return l.window.IsFull() }
func (l *Lag) OutputShape() output.Shape { return output.Flat(1) }

func (l *Lag) Next(c model.Candle) (output.Value, error) {
	v, err := output.Resolve(l.field, c)
	if err != nil {
		return output.Value{}, err
	}
	f, err := v.Float64()
	if err != nil {
		return output.Value{}, err
	}
	l.window.Push(f)
	if !l.window.IsFull() {
		return output.Value{}, ErrNotReady
	}
	old, _ := l.window.Front()
	return output.FromFloat(old), nil
}
