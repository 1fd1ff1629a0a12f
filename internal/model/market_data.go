package model

import "math"

type dataKind uint8

const (
	kindBar dataKind = iota
	kindFloat
)

// MarketData is what the strategy engine hands to strategies and indicators:
// either a full Bar or a bare price.
type MarketData struct {
	kind  dataKind
	bar   Bar
	value float64
}

// FromBar wraps a Bar.
func FromBar(b Bar) MarketData { return MarketData{kind: kindBar, bar: b} }

// FromFloat wraps a single price.
func FromFloat(v float64) MarketData { return MarketData{kind: kindFloat, value: v} }

// Bar returns the wrapped Bar and true, or false for a float sample.
func (m MarketData) Bar() (Bar, bool) {
	if m.kind != kindBar {
		return Bar{}, false
	}
	return m.bar, true
}

// IsFloat reports whether the sample is a bare price.
func (m MarketData) IsFloat() bool { return m.kind == kindFloat }

func (m MarketData) pick(f func(Bar) float64) float64 {
	if m.kind == kindBar {
		return f(m.bar)
	}
	return m.value
}

func (m MarketData) Open() float64         { return m.pick(Bar.Open) }
func (m MarketData) High() float64         { return m.pick(Bar.High) }
func (m MarketData) Low() float64          { return m.pick(Bar.Low) }
func (m MarketData) Close() float64        { return m.pick(Bar.Close) }
func (m MarketData) Price() float64        { return m.pick(Bar.Price) }
func (m MarketData) TypicalPrice() float64 { return m.pick(Bar.TypicalPrice) }

// Volume is NaN for float samples.
func (m MarketData) Volume() float64 {
	if m.kind == kindBar {
		return m.bar.volume
	}
	return math.NaN()
}
