package strategy

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"tautils/internal/indicator"
	"tautils/internal/model"
	"tautils/internal/output"
)

func sample(px float64) model.MarketData {
	return model.FromBar(model.NewBar().SetOpen(px - 1).SetHigh(px + 2).SetLow(px - 2).SetClose(px).SetVolume(500))
}

func lagSet(t *testing.T) *indicator.Set {
	t.Helper()
	lag, err := indicator.NewLag(output.KindClose, 1)
	require.NoError(t, err)
	set, err := indicator.NewSetOf(lag)
	require.NoError(t, err)
	return set
}

func gt(l, r Operand) Condition { return Condition{Left: l, Op: OpGT, Right: r} }

func TestValidate_Errors(t *testing.T) {
	set := lagSet(t)
	buy := Emit(ActionBuy)

	tests := []struct {
		name string
		node Node
		want error
	}{
		{"missing else", If(gt(Lit(output.CloseRef()), Lit(output.FromFloat(1))), buy.Ptr(), nil), ErrMissingElseBranch},
		{"empty sequence", Sequence(), ErrEmptySequence},
		{"nested empty sequence", Sequence(buy, Sequence()), ErrEmptySequence},
		{"unknown action", Emit("HOLD"), ErrConfiguration},
		{"unknown op", If(Condition{Left: Lit(output.CloseRef()), Op: "xx", Right: Lit(output.FromFloat(1))}, buy.Ptr(), buy.Ptr()), ErrConfiguration},
		{"unknown input", If(gt(In("NOPE"), Lit(output.FromFloat(1))), buy.Ptr(), buy.Ptr()), ErrConfiguration},
		{"empty node", Node{}, ErrConfiguration},
		{"invalid literal shape", If(gt(Lit(output.Vector()), Lit(output.Vector())), buy.Ptr(), buy.Ptr()), output.ErrInvalidShape},
		{"shape mismatch", If(gt(In("LAG_CLOSE_1"), Lit(output.Vector(1, 2))), buy.Ptr(), buy.Ptr()), ErrIncompatibleShapes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, Validate(tt.node, set), tt.want)
		})
	}
}

func TestValidate_IncompatibleShapesNamesIndicator(t *testing.T) {
	buy := Emit(ActionBuy)
	node := If(gt(Lit(output.Vector(1, 2, 3)), In("LAG_CLOSE_1")), buy.Ptr(), buy.Ptr())

	err := Validate(node, lagSet(t))
	var se *IncompatibleShapesError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "LAG_CLOSE_1", se.Name)
	require.True(t, se.Indicator.Equal(output.Flat(1)))
	require.True(t, se.Value.Equal(output.Flat(3)))
	require.Equal(t, "incompatible shapes: Shape(1) vs Shape(3) for 'LAG_CLOSE_1'", err.Error())
}

func TestValidate_OK(t *testing.T) {
	buy, sell := Emit(ActionBuy), Emit(ActionSell)
	node := Sequence(
		If(gt(Lit(output.CloseRef()), In("LAG_CLOSE_1")), buy.Ptr(), sell.Ptr()),
		If(Condition{Left: Lit(output.FromOutcome(output.OutcomeTrue)), Op: OpEQ, Right: Lit(output.VolumeRef())}, Emit(ActionExit).Ptr(), Sequence(buy).Ptr()),
	)
	require.NoError(t, Validate(node, lagSet(t)))
}

func TestEvaluate_Branches(t *testing.T) {
	buy, sell := Emit(ActionBuy), Emit(ActionSell)
	hundred := Lit(output.FromFloat(100))

	tests := []struct {
		name string
		cond Condition
		px   float64
		want Action
	}{
		{"gt true", gt(Lit(output.CloseRef()), hundred), 105, ActionBuy},
		{"gt false", gt(Lit(output.CloseRef()), hundred), 95, ActionSell},
		{"ge equal", Condition{Lit(output.CloseRef()), OpGE, hundred}, 100, ActionBuy},
		{"le equal", Condition{Lit(output.CloseRef()), OpLE, hundred}, 100, ActionBuy},
		{"lt", Condition{Lit(output.LowRef()), OpLT, hundred}, 101, ActionBuy},
		{"eq", Condition{Lit(output.CloseRef()), OpEQ, hundred}, 100, ActionBuy},
		{"ne", Condition{Lit(output.CloseRef()), OpNE, hundred}, 100, ActionSell},
		{"outcome above scalar", gt(Lit(output.FromOutcome(output.OutcomeGreater)), Lit(output.CloseRef())), 1, ActionBuy},
		{"scalar below outcome", gt(Lit(output.CloseRef()), Lit(output.FromOutcome(output.OutcomeGreater))), 1, ActionSell},
		{"true equals scalar", Condition{Lit(output.FromOutcome(output.OutcomeTrue)), OpEQ, Lit(output.CloseRef())}, 7, ActionBuy},
		{"false not equal scalar", Condition{Lit(output.FromOutcome(output.OutcomeFalse)), OpEQ, Lit(output.CloseRef())}, 7, ActionSell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := If(tt.cond, buy.Ptr(), sell.Ptr())
			require.NoError(t, Validate(node, nil))
			res, err := Evaluate(node, sample(tt.px), nil)
			require.NoError(t, err)
			require.Len(t, res.Emissions, 1)
			require.Equal(t, tt.want, res.Emissions[0].Action)
			require.Zero(t, res.Incomparable)
		})
	}
}

func TestEvaluate_IncomparableIsFalse(t *testing.T) {
	node := If(gt(Lit(output.FromFloat(math.NaN())), Lit(output.CloseRef())), Emit(ActionBuy).Ptr(), Emit(ActionExit).Ptr())
	res, err := Evaluate(node, sample(10), nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Incomparable)
	require.Equal(t, []Emission{{Action: ActionExit, Reason: "!(Number(NaN) gt Close)"}}, res.Emissions)
}

func TestEvaluate_SequenceAndReason(t *testing.T) {
	inner := If(gt(Lit(output.HighRef()), In("LAG_CLOSE_1")), Emit(ActionBuy).Ptr(), Emit(ActionSell).Ptr())
	node := Sequence(
		If(gt(Lit(output.CloseRef()), Lit(output.FromFloat(0))), inner.Ptr(), Emit(ActionExit).Ptr()),
		Emit(ActionExit),
	)
	in := Inputs{"LAG_CLOSE_1": output.FromFloat(50)}

	res, err := Evaluate(node, sample(100), in)
	require.NoError(t, err)
	require.Equal(t, []Emission{
		{Action: ActionBuy, Reason: "Close gt Number(0) && High gt LAG_CLOSE_1"},
		{Action: ActionExit, Reason: ""},
	}, res.Emissions)
}

func TestEvaluate_ResolveFailure(t *testing.T) {
	nested := Lit(output.Composite(output.Vector(1, 2)))
	node := If(Condition{Left: nested, Op: OpEQ, Right: nested}, Emit(ActionBuy).Ptr(), Emit(ActionSell).Ptr())
	require.NoError(t, Validate(node, nil))

	_, err := Evaluate(node, sample(1), nil)
	require.ErrorIs(t, err, output.ErrIncompatibleResolvedType)
}

func TestEvaluate_MissingInput(t *testing.T) {
	node := If(gt(In("LAG_CLOSE_1"), Lit(output.FromFloat(1))), Emit(ActionBuy).Ptr(), Emit(ActionSell).Ptr())
	_, err := Evaluate(node, sample(1), Inputs{})
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestEvaluate_ResolvesInputFieldRefs(t *testing.T) {
	// A Field indicator forwards an unresolved reference; the sample fills it.
	field, err := indicator.NewField(output.KindHigh)
	require.NoError(t, err)
	v, err := field.Next(sample(10))
	require.NoError(t, err)

	node := If(Condition{Left: In(field.Name()), Op: OpEQ, Right: Lit(output.FromFloat(12))}, Emit(ActionBuy).Ptr(), Emit(ActionSell).Ptr())
	res, err := Evaluate(node, sample(10), Inputs{field.Name(): v})
	require.NoError(t, err)
	require.Equal(t, ActionBuy, res.Emissions[0].Action)
}

func nested(levels int) Node {
	n := Emit(ActionExit)
	for i := 0; i < levels; i++ {
		n = Sequence(n)
	}
	return n
}

func TestDepthLimitMatchesOutput(t *testing.T) {
	set := lagSet(t)

	// Deepest node at depth MaxDepth is allowed, as for Shape and Value trees.
	ok := nested(output.MaxDepth)
	require.NoError(t, Validate(ok, set))
	res, err := Evaluate(ok, sample(100), Inputs{})
	require.NoError(t, err)
	require.Len(t, res.Emissions, 1)

	deep := nested(output.MaxDepth + 1)
	require.ErrorIs(t, Validate(deep, set), ErrConfiguration)
	_, err = Evaluate(deep, sample(100), Inputs{})
	require.ErrorIs(t, err, ErrConfiguration)
}
