package model

import (
	"encoding/json"
	"time"
)

// Bar is a single OHLCV sample. Prices are plain float64; callers that keep
// integer minor units convert before building a Bar.
//
// Fields are reached through the Candle getters so a Bar can be passed
// anywhere a Candle is expected.
type Bar struct {
	symbol string
	ts     time.Time
	open   float64
	high   float64
	low    float64
	close  float64
	price  float64
	volume float64
}

// NewBar returns a zeroed Bar ready for the chained setters.
func NewBar() Bar { return Bar{} }

func (b Bar) SetOpen(v float64) Bar   { b.open = v; return b }
func (b Bar) SetHigh(v float64) Bar   { b.high = v; return b }
func (b Bar) SetLow(v float64) Bar    { b.low = v; return b }
func (b Bar) SetClose(v float64) Bar  { b.close = v; return b }
func (b Bar) SetPrice(v float64) Bar  { b.price = v; return b }
func (b Bar) SetVolume(v float64) Bar { b.volume = v; return b }

// SetTime stamps the bar with its bucket start time (stored as UTC).
func (b Bar) SetTime(ts time.Time) Bar { b.ts = ts.UTC(); return b }

// SetSymbol tags the bar with its instrument.
func (b Bar) SetSymbol(s string) Bar { b.symbol = s; return b }

func (b Bar) Symbol() string  { return b.symbol }
func (b Bar) Time() time.Time { return b.ts }
func (b Bar) Open() float64   { return b.open }
func (b Bar) High() float64   { return b.high }
func (b Bar) Low() float64    { return b.low }
func (b Bar) Close() float64  { return b.close }
func (b Bar) Price() float64  { return b.price }
func (b Bar) Volume() float64 { return b.volume }

// TypicalPrice returns (high + low + close) / 3.
func (b Bar) TypicalPrice() float64 {
	return (b.high + b.low + b.close) / 3.0
}

type barJSON struct {
	Symbol string    `json:"symbol,omitempty"`
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
}

// MarshalJSON encodes the bar with lowercase OHLCV keys.
func (b Bar) MarshalJSON() ([]byte, error) {
	return json.Marshal(barJSON{
		Symbol: b.symbol, TS: b.ts,
		Open: b.open, High: b.high, Low: b.low, Close: b.close,
		Price: b.price, Volume: b.volume,
	})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (b *Bar) UnmarshalJSON(data []byte) error {
	var w barJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Bar{
		symbol: w.Symbol, ts: w.TS,
		open: w.Open, high: w.High, low: w.Low, close: w.Close,
		price: w.Price, volume: w.Volume,
	}
	return nil
}
