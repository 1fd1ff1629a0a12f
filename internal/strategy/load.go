package strategy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tautils/internal/indicator"
)

var structValidator = validator.New()

// Document is a strategy file.
//
//	strategies:
//	  - name: breakout
//	    symbol: NIFTY
//	    indicators:
//	      - {type: lag, field: high, period: 1}
//	    rule:
//	      if:
//	        cond: {left: close, op: gt, right: {input: LAG_HIGH_1}}
//	        then: {emit: BUY}
//	        else: {emit: EXIT}
type Document struct {
	Strategies []Definition `yaml:"strategies" validate:"required,min=1,dive"`
}

// Definition is one strategy in a Document.
type Definition struct {
	Name       string             `yaml:"name" validate:"required"`
	Symbol     string             `yaml:"symbol"`
	Indicators []indicator.Config `yaml:"indicators" validate:"dive"`
	Rule       Node               `yaml:"rule" validate:"-"`
}

// Load reads and builds the strategies in a YAML file.
func Load(path string) ([]*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(err)
	}
	return Parse(data)
}

// Parse builds the strategies in a YAML document.
func Parse(data []byte) ([]*Strategy, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

// Decode parses a YAML document, fills defaults and validates it without
// building any indicators.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, serializationError(err)
	}
	for i := range doc.Strategies {
		cfgs := doc.Strategies[i].Indicators
		for j := range cfgs {
			if err := defaults.Set(&cfgs[j]); err != nil {
				return nil, configError("defaults: %v", err)
			}
			if cfgs[j].Period < 1 {
				return nil, &InvalidPeriodError{Period: cfgs[j].Period}
			}
		}
	}
	if err := structValidator.Struct(&doc); err != nil {
		return nil, validationError(err)
	}
	return &doc, nil
}

// Build validates every rule against its indicators and returns the
// strategies in document order. Strategy names must be unique.
func (d *Document) Build() ([]*Strategy, error) {
	seen := make(map[string]bool, len(d.Strategies))
	out := make([]*Strategy, 0, len(d.Strategies))
	for _, def := range d.Strategies {
		if seen[def.Name] {
			return nil, configError("duplicate strategy %s", def.Name)
		}
		seen[def.Name] = true

		set, err := indicator.NewSet(def.Indicators)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", def.Name, err)
		}
		s, err := NewStrategy(def.Name, def.Symbol, set, def.Rule)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", def.Name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Encode writes a Document back to YAML.
func Encode(d *Document) ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, serializationError(err)
	}
	return data, nil
}

func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return configError("%v", err)
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Namespace(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return configError("%s", strings.Join(msgs, "; "))
}
