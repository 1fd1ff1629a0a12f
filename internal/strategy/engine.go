// Package strategy evaluates rule trees over indicator outputs.
//
// A Strategy pairs a set of indicators with a rule tree of if, sequence and
// emit nodes. The Engine feeds each market sample to every registered
// strategy, evaluates its tree once the indicators are warm, and emits
// trading signals (BUY/SELL/EXIT).
package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tautils/internal/indicator"
	"tautils/internal/metrics"
	"tautils/internal/model"
	"tautils/internal/output"
)

// Signal represents a trading signal emitted by a strategy.
type Signal struct {
	StrategyName string    `json:"strategy_name"`
	Action       Action    `json:"action"` // BUY, SELL, EXIT
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"` // close of the triggering sample
	Time         time.Time `json:"time"`
	Reason       string    `json:"reason"`
}

// Strategy is a validated rule tree with the indicators it reads.
type Strategy struct {
	name       string
	symbol     string
	indicators *indicator.Set
	rule       Node
}

// NewStrategy validates rule against the shapes of inds. symbol restricts
// the strategy to bars of one symbol; empty accepts every sample.
func NewStrategy(name, symbol string, inds *indicator.Set, rule Node) (*Strategy, error) {
	if name == "" {
		return nil, configError("strategy name is required")
	}
	if inds == nil {
		inds, _ = indicator.NewSetOf()
	}
	if err := Validate(rule, inds); err != nil {
		return nil, err
	}
	return &Strategy{name: name, symbol: symbol, indicators: inds, rule: rule}, nil
}

// Name returns the unique name of the strategy.
func (s *Strategy) Name() string { return s.name }

// Symbol returns the symbol filter, or "" for none.
func (s *Strategy) Symbol() string { return s.symbol }

// Indicators returns the strategy's indicator set.
func (s *Strategy) Indicators() *indicator.Set { return s.indicators }

// Rule returns the strategy's tree.
func (s *Strategy) Rule() Node { return s.rule }

func (s *Strategy) accepts(md model.MarketData) bool {
	if s.symbol == "" {
		return true
	}
	b, ok := md.Bar()
	return ok && b.Symbol() == s.symbol
}

// Evaluation is what one strategy did with one sample.
type Evaluation struct {
	Strategy string
	Symbol   string
	Time     time.Time
	Outputs  []indicator.Result
	// Resolved holds Outputs with field references read from the sample.
	// An output that cannot be resolved keeps its raw value.
	Resolved []indicator.Result

	// Ready is false while any indicator is still warming up; the tree is
	// not evaluated then.
	Ready        bool
	Signals      []Signal
	Incomparable int
	Err          error
}

// Engine manages registered strategies and routes market data to them.
// Step and Run are meant for one goroutine.
type Engine struct {
	strategies []*Strategy
	signalCh   chan Signal
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records evaluation metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger. The default discards.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a new strategy engine.
func NewEngine(signalBufferSize int, opts ...Option) *Engine {
	e := &Engine{
		signalCh: make(chan Signal, signalBufferSize),
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Register adds a strategy to the engine. Names must be unique.
func (e *Engine) Register(s *Strategy) error {
	for _, have := range e.strategies {
		if have.name == s.name {
			return configError("duplicate strategy %s", s.name)
		}
	}
	e.strategies = append(e.strategies, s)
	return nil
}

// Strategies returns the registered strategies in registration order.
func (e *Engine) Strategies() []*Strategy {
	return append([]*Strategy(nil), e.strategies...)
}

// Signals returns the channel of signals emitted by Run.
func (e *Engine) Signals() <-chan Signal {
	return e.signalCh
}

// Step feeds one sample to every strategy that accepts it and returns what
// each one did. A failing strategy is reported in its Evaluation and does not
// stop the others.
func (e *Engine) Step(md model.MarketData) []Evaluation {
	start := time.Now()
	var symbol string
	var ts time.Time
	if b, ok := md.Bar(); ok {
		symbol, ts = b.Symbol(), b.Time()
	}

	evals := make([]Evaluation, 0, len(e.strategies))
	for _, s := range e.strategies {
		if !s.accepts(md) {
			continue
		}
		ev := e.evaluate(s, md)
		ev.Symbol, ev.Time = symbol, ts
		for i := range ev.Signals {
			ev.Signals[i].Symbol, ev.Signals[i].Time = symbol, ts
		}
		evals = append(evals, ev)
	}

	if e.metrics != nil {
		e.metrics.EvaluateDur.Observe(time.Since(start).Seconds())
	}
	return evals
}

func (e *Engine) evaluate(s *Strategy, md model.MarketData) Evaluation {
	ev := Evaluation{Strategy: s.name}

	results, err := s.indicators.Process(md)
	if err != nil {
		ev.Err = err
		e.log.Error().Err(err).Str("strategy", s.name).Msg("indicator update failed")
		return ev
	}
	ev.Outputs = results
	ev.Resolved = make([]indicator.Result, len(results))
	for i, r := range results {
		ev.Resolved[i] = r
		if !r.Ready {
			continue
		}
		if v, err := output.Resolve(r.Value, md); err == nil {
			ev.Resolved[i].Value = v
		}
	}

	inputs := make(Inputs, len(results))
	for _, r := range results {
		if !r.Ready {
			return ev
		}
		inputs[r.Name] = r.Value
	}
	ev.Ready = true

	if e.metrics != nil {
		e.metrics.EvaluationsTotal.WithLabelValues(s.name).Inc()
	}
	res, err := Evaluate(s.rule, md, inputs)
	if err != nil {
		ev.Err = err
		if e.metrics != nil && errors.Is(err, output.ErrIncompatibleResolvedType) {
			e.metrics.ResolveErrorsTotal.WithLabelValues(s.name).Inc()
		}
		e.log.Error().Err(err).Str("strategy", s.name).Msg("evaluate failed")
		return ev
	}

	ev.Incomparable = res.Incomparable
	if res.Incomparable > 0 {
		if e.metrics != nil {
			e.metrics.IncomparableTotal.WithLabelValues(s.name).Add(float64(res.Incomparable))
		}
		e.log.Debug().Str("strategy", s.name).Int("count", res.Incomparable).
			Msg("incomparable operands treated as false")
	}

	price := md.Close()
	for _, em := range res.Emissions {
		ev.Signals = append(ev.Signals, Signal{
			StrategyName: s.name,
			Action:       em.Action,
			Price:        price,
			Reason:       em.Reason,
		})
		if e.metrics != nil {
			e.metrics.SignalsTotal.WithLabelValues(s.name, string(em.Action)).Inc()
		}
	}
	return ev
}

// Reset resets every strategy's indicators.
func (e *Engine) Reset() {
	for _, s := range e.strategies {
		s.indicators.Reset()
	}
}

// Run consumes samples and routes them to all registered strategies.
// Blocks until ctx is cancelled or dataCh is closed.
func (e *Engine) Run(ctx context.Context, dataCh <-chan model.MarketData) {
	for {
		select {
		case <-ctx.Done():
			return
		case md, ok := <-dataCh:
			if !ok {
				return
			}
			for _, ev := range e.Step(md) {
				for _, sig := range ev.Signals {
					select {
					case e.signalCh <- sig:
					default:
						// signal channel full, drop
						if e.metrics != nil {
							e.metrics.SignalDropsTotal.Inc()
						}
						e.log.Warn().Str("strategy", sig.StrategyName).
							Str("action", string(sig.Action)).Msg("signal dropped")
					}
				}
			}
		}
	}
}
