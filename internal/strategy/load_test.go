package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tautils/internal/errs"
	"tautils/internal/output"
)

const breakoutYAML = `
strategies:
  - name: breakout
    symbol: NIFTY
    indicators:
      - {type: lag, field: high}
      - {type: field, field: volume}
    rule:
      sequence:
        - if:
            cond: {left: close, op: gt, right: {input: LAG_HIGH_1}}
            then: {emit: buy}
            else:
              if:
                cond: {left: {input: FIELD_VOLUME}, op: lt, right: 1000}
                then: {emit: EXIT}
                else: {emit: SELL}
        - if:
            cond: {left: Greater, op: ge, right: open}
            then: {emit: BUY}
            else: {emit: SELL}
  - name: flat
    rule: {emit: EXIT}
`

func TestParse_BuildsStrategies(t *testing.T) {
	ss, err := Parse([]byte(breakoutYAML))
	require.NoError(t, err)
	require.Len(t, ss, 2)

	b := ss[0]
	require.Equal(t, "breakout", b.Name())
	require.Equal(t, "NIFTY", b.Symbol())
	require.Equal(t, []string{"LAG_HIGH_1", "FIELD_VOLUME"}, b.Indicators().Names())

	rule := b.Rule()
	require.Equal(t, NodeSequence, rule.Kind)
	require.Len(t, rule.Sequence, 2)
	first := rule.Sequence[0].If
	require.Equal(t, output.KindClose, first.Cond.Left.Value.Kind())
	require.Equal(t, "LAG_HIGH_1", first.Cond.Right.Input)
	require.Equal(t, ActionBuy, first.Then.Emit)
	require.Equal(t, NodeIf, first.Else.Kind)

	second := rule.Sequence[1].If
	o, ok := second.Cond.Left.Value.Outcome()
	require.True(t, ok)
	require.Equal(t, output.OutcomeGreater, o)

	require.Equal(t, NodeEmit, ss[1].Rule().Kind)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"bad yaml", "strategies: [", ErrSerialization},
		{"no strategies", "strategies: []", ErrConfiguration},
		{"missing name", "strategies: [{rule: {emit: BUY}}]", ErrConfiguration},
		{"bad indicator type", "strategies: [{name: a, indicators: [{type: ema, field: close}], rule: {emit: BUY}}]", ErrConfiguration},
		{"negative period", "strategies: [{name: a, indicators: [{type: lag, field: close, period: -2}], rule: {emit: BUY}}]", ErrInvalidIndicatorPeriod},
		{"missing else", "strategies: [{name: a, rule: {if: {cond: {left: close, op: gt, right: 1}, then: {emit: BUY}}}}]", ErrMissingElseBranch},
		{"empty sequence", "strategies: [{name: a, rule: {sequence: []}}]", ErrEmptySequence},
		{"shape mismatch", "strategies: [{name: a, indicators: [{type: lag, field: close}], rule: {if: {cond: {left: {input: LAG_CLOSE_1}, op: gt, right: [1, 2]}, then: {emit: BUY}, else: {emit: SELL}}}}]", ErrIncompatibleShapes},
		{"duplicate", "strategies: [{name: a, rule: {emit: BUY}}, {name: a, rule: {emit: SELL}}]", ErrConfiguration},
		{"unknown node", "strategies: [{name: a, rule: {loop: {}}}]", ErrSerialization},
		{"unknown node is a lang error", "strategies: [{name: a, rule: {loop: {}}}]", errs.ErrLang},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, ErrIO)

	path := filepath.Join(t.TempDir(), "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(breakoutYAML), 0o644))
	ss, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ss, 2)
}

func TestEncode_RoundTrip(t *testing.T) {
	doc, err := Decode([]byte(breakoutYAML))
	require.NoError(t, err)
	require.Equal(t, 1, doc.Strategies[0].Indicators[0].Period)

	data, err := Encode(doc)
	require.NoError(t, err)

	again, err := Decode(data)
	require.NoError(t, err)
	ss, err := again.Build()
	require.NoError(t, err)
	require.Equal(t, []string{"LAG_HIGH_1", "FIELD_VOLUME"}, ss[0].Indicators().Names())
	require.Equal(t, "LAG_HIGH_1", ss[0].Rule().Sequence[0].If.Cond.Right.Input)
}
