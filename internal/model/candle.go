package model

import "math"

// Candle is the read-only view of one market data sample that indicators and
// strategies consume. Implementations must not mutate on read.
type Candle interface {
	Open() float64
	High() float64
	Low() float64
	Close() float64
	Price() float64

	// Volume returns NaN when the sample carries no volume.
	Volume() float64
}

// PriceCandle is a price-only sample. Every OHLC getter reports the price and
// Volume is NaN.
type PriceCandle float64

func (p PriceCandle) Open() float64   { return float64(p) }
func (p PriceCandle) High() float64   { return float64(p) }
func (p PriceCandle) Low() float64    { return float64(p) }
func (p PriceCandle) Close() float64  { return float64(p) }
func (p PriceCandle) Price() float64  { return float64(p) }
func (p PriceCandle) Volume() float64 { return math.NaN() }

// ToBar copies any Candle into a concrete Bar.
func ToBar(c Candle) Bar {
	return NewBar().
		SetOpen(c.Open()).
		SetHigh(c.High()).
		SetLow(c.Low()).
		SetClose(c.Close()).
		SetPrice(c.Price()).
		SetVolume(c.Volume())
}
