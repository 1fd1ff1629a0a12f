package indicator

import (
	"errors"
	"fmt"
	"strings"

	"tautils/internal/errs"
	"tautils/internal/model"
	"tautils/internal/output"
)

// Indicator type names accepted by New.
const (
	TypeField = "FIELD"
	TypeLag   = "LAG"
)

// Config specifies a single indicator to build.
type Config struct {
	Type   string `yaml:"type" validate:"required,oneof=FIELD LAG field lag"`
	Field  string `yaml:"field" validate:"required"`
	Period int    `yaml:"period" default:"1" validate:"gte=1"`
}

// New builds an indicator from its config.
func New(cfg Config) (Indicator, error) {
	k, err := ParseField(cfg.Field)
	if err != nil {
		return nil, err
	}
	switch strings.ToUpper(cfg.Type) {
	case TypeField:
		return NewField(k)
	case TypeLag:
		return NewLag(k, cfg.Period)
	}
	return nil, errs.InvalidParameter("indicator type=%s", cfg.Type)
}

// Result is one indicator's output for one candle.
type Result struct {
	Name  string
	Value output.Value
	Ready bool
}

// Set updates a group of indicators together. It is meant for a single
// goroutine; no locks are taken.
type Set struct {
	indicators []Indicator
	byName     map[string]int
}

// NewSet builds a set from configs. Names must be unique.
func NewSet(configs []Config) (*Set, error) {
	inds := make([]Indicator, 0, len(configs))
	for _, c := range configs {
		ind, err := New(c)
		if err != nil {
			return nil, err
		}
		inds = append(inds, ind)
	}
	return NewSetOf(inds...)
}

// NewSetOf wraps already built indicators.
func NewSetOf(inds ...Indicator) (*Set, error) {
	s := &Set{byName: make(map[string]int, len(inds))}
	for _, ind := range inds {
		name := ind.Name()
		if _, dup := s.byName[name]; dup {
			return nil, errs.InvalidParameter("duplicate indicator %s", name)
		}
		s.byName[name] = len(s.indicators)
		s.indicators = append(s.indicators, ind)
	}
	return s, nil
}

// Names lists indicator names in registration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.indicators))
	for i, ind := range s.indicators {
		out[i] = ind.Name()
	}
	return out
}

// Shape returns the declared output shape of a named indicator.
func (s *Set) Shape(name string) (output.Shape, bool) {
	i, ok := s.byName[name]
	if !ok {
		return output.Shape{}, false
	}
	return s.indicators[i].OutputShape(), true
}

// Process feeds c to every indicator. Indicators still warming up report
// Ready=false with a zero Value; any other error aborts the pass.
func (s *Set) Process(c model.Candle) ([]Result, error) {
	results := make([]Result, 0, len(s.indicators))
	for _, ind := range s.indicators {
		v, err := ind.Next(c)
		switch {
		case errors.Is(err, ErrNotReady):
			results = append(results, Result{Name: ind.Name()})
		case err != nil:
			return nil, fmt.Errorf("indicator %s: %w", ind.Name(), err)
		default:
			results = append(results, Result{Name: ind.Name(), Value: v, Ready: true})
		}
	}
	return results, nil
}

// Reset resets every indicator.
func (s *Set) Reset() {
	for _, ind := range s.indicators {
		ind.Reset()
	}
}
