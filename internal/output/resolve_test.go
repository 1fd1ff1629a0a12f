package output

import (
	"errors"
	"math"
	"testing"
)

type testSample struct {
	open, close, high, low, volume float64
	reads                          int
}

func (s *testSample) Open() float64   { s.reads++; return s.open }
func (s *testSample) Close() float64  { s.reads++; return s.close }
func (s *testSample) High() float64   { s.reads++; return s.high }
func (s *testSample) Low() float64    { s.reads++; return s.low }
func (s *testSample) Volume() float64 { s.reads++; return s.volume }

func newSample() *testSample {
	return &testSample{open: 10, close: 12, high: 15, low: 9, volume: 100}
}

func TestResolve_FieldRefs(t *testing.T) {
	s := newSample()
	cases := []struct {
		in   Value
		want float64
	}{
		{OpenRef(), 10},
		{CloseRef(), 12},
		{HighRef(), 15},
		{LowRef(), 9},
		{VolumeRef(), 100},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.in, s)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		f, err := got.Float64()
		if err != nil || f != tc.want {
			t.Errorf("%s: got %v (%v), want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestResolve_ConcreteUnchanged(t *testing.T) {
	s := newSample()
	for _, v := range []Value{
		FromFloat(3),
		Vector(1, 2),
		FromOutcome(OutcomeLess),
		FromOutcomes(OutcomeTrue, OutcomeFalse),
	} {
		got, err := Resolve(v, s)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", v, err)
		}
		if !Equals(got, v) {
			t.Errorf("%s: resolved to %s", v, got)
		}
	}
	if s.reads != 0 {
		t.Errorf("concrete values should not read the sample, got %d reads", s.reads)
	}
}

func TestResolve_Composite(t *testing.T) {
	s := newSample()
	got, err := Resolve(Composite(OpenRef(), CloseRef()), s)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := Composite(FromFloat(10), FromFloat(12))
	if !Equals(got, want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	got, err = Resolve(Composite(FromOutcome(OutcomeGreater), VolumeRef(), FromFloat(1)), s)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want = Composite(FromOutcome(OutcomeGreater), FromFloat(100), FromFloat(1))
	if !Equals(got, want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestResolve_CompositeRejectsNonScalar(t *testing.T) {
	s := newSample()
	cases := []struct {
		name   string
		in     Value
		actual string
		shape  string
	}{
		{"vector", Composite(OpenRef(), Vector(1, 2, 3)), "NumberVector", "Shape(3)"},
		{"outcomes", Composite(FromOutcomes(OutcomeTrue, OutcomeFalse)), "OutcomeVector", "Shape(2)"},
		{"nested", Composite(CloseRef(), Composite(OpenRef(), HighRef())), "Composite", "Shape(2)"},
		{"empty vector", Composite(Vector()), "NumberVector", ""},
	}
	for _, tc := range cases {
		_, err := Resolve(tc.in, s)
		if !errors.Is(err, ErrIncompatibleResolvedType) {
			t.Errorf("%s: expected ErrIncompatibleResolvedType, got %v", tc.name, err)
			continue
		}
		var ie *IncompatibleTypeError
		if !errors.As(err, &ie) {
			t.Fatalf("%s: expected IncompatibleTypeError", tc.name)
		}
		if ie.Expected != "scalar" || ie.Actual != tc.actual || ie.Shape != tc.shape {
			t.Errorf("%s: got %+v", tc.name, ie)
		}
	}
}

func TestResolve_NestedErrorPropagates(t *testing.T) {
	// The inner composite fails on its own vector child before the outer one
	// gets to reject it.
	_, err := Resolve(Composite(Composite(Vector(1, 2))), newSample())
	var ie *IncompatibleTypeError
	if !errors.As(err, &ie) || ie.Actual != "NumberVector" {
		t.Fatalf("expected inner vector rejection, got %v", err)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	s := newSample()
	for _, v := range []Value{
		FromFloat(1),
		Vector(4, 5),
		Composite(OpenRef(), FromOutcome(OutcomeTrue), LowRef()),
		FromOutcomes(OutcomeEqual),
	} {
		once, err := Resolve(v, s)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		twice, err := Resolve(once, s)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if !Equals(once, twice) {
			t.Errorf("%s: resolve not idempotent: %s vs %s", v, once, twice)
		}
		if !once.IsResolved() {
			t.Errorf("%s: result still holds field references", v)
		}
	}
}

func TestResolve_NaNVolume(t *testing.T) {
	s := newSample()
	s.volume = math.NaN()
	got, err := Resolve(VolumeRef(), s)
	if err != nil {
		t.Fatal(err)
	}
	f, _ := got.Float64()
	if !math.IsNaN(f) {
		t.Errorf("expected NaN volume, got %v", f)
	}
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	in := Composite(OpenRef(), CloseRef())
	if _, err := Resolve(in, newSample()); err != nil {
		t.Fatal(err)
	}
	children, _ := in.Children()
	if children[0].Kind() != KindOpen || children[1].Kind() != KindClose {
		t.Errorf("input was mutated: %s", in)
	}
}
