// Package replay reads historical bars and emits them as market data at a
// configurable speed for offline strategy evaluation.
package replay

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"tautils/internal/model"
	"tautils/internal/strategy"
)

// maxGap caps the simulated wait between two bars.
const maxGap = 5 * time.Second

// BarSource reads stored bars. *sqlite.Reader satisfies it.
type BarSource interface {
	ReadBars(symbol string, afterTS int64) ([]model.Bar, error)
}

// Replayer replays bars from a BarSource.
type Replayer struct {
	source BarSource
}

// New creates a Replayer.
func New(source BarSource) *Replayer {
	return &Replayer{source: source}
}

// Run replays bars of the given symbols with ts > fromTS, merged in time
// order, into outCh. speed controls the playback rate: 1.0 = real-time,
// 10.0 = 10x, 0 = as fast as possible. Returns the number of bars emitted.
// Finding no bars at all is an error wrapping strategy.ErrEmptyIterator.
func (r *Replayer) Run(ctx context.Context, symbols []string, fromTS int64, speed float64, outCh chan<- model.MarketData) (int, error) {
	var all []model.Bar
	for _, sym := range symbols {
		bars, err := r.source.ReadBars(sym, fromTS)
		if err != nil {
			return 0, err
		}
		all = append(all, bars...)
	}

	if len(all) == 0 {
		log.Warn().Strs("symbols", symbols).Msg("[replay] no bars found")
		return 0, fmt.Errorf("%w: no bars for %v after %d", strategy.ErrEmptyIterator, symbols, fromTS)
	}

	// Interleave symbols by time. Bars of one symbol keep their order.
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time().Before(all[j].Time()) })

	log.Info().Int("bars", len(all)).Int("symbols", len(symbols)).Float64("speed", speed).Msg("[replay] loaded")

	var prevTS time.Time
	emitted := 0
	for _, b := range all {
		if speed > 0 && !prevTS.IsZero() {
			if gap := b.Time().Sub(prevTS); gap > 0 {
				scaled := time.Duration(float64(gap) / speed)
				if scaled > maxGap {
					scaled = maxGap
				}
				select {
				case <-ctx.Done():
					return emitted, ctx.Err()
				case <-time.After(scaled):
				}
			}
		}
		prevTS = b.Time()

		select {
		case <-ctx.Done():
			log.Info().Int("emitted", emitted).Msg("[replay] cancelled")
			return emitted, ctx.Err()
		case outCh <- model.FromBar(b):
			emitted++
		}
	}

	log.Info().Int("emitted", emitted).Msg("[replay] completed")
	return emitted, nil
}
