package output

import (
	"errors"
	"testing"
)

func TestValidate_Flat(t *testing.T) {
	for _, n := range []int{1, 2, 7, 1000} {
		got, err := Validate(Flat(n))
		if err != nil {
			t.Fatalf("Flat(%d): unexpected error %v", n, err)
		}
		if !got.Equal(Flat(n)) {
			t.Errorf("Flat(%d): got %s", n, got)
		}
	}
	for _, n := range []int{0, -1} {
		_, err := Validate(Flat(n))
		if !errors.Is(err, ErrInvalidShape) {
			t.Errorf("Flat(%d): expected ErrInvalidShape, got %v", n, err)
		}
		var se *ShapeError
		if !errors.As(err, &se) || !se.Shape.Equal(Flat(n)) {
			t.Errorf("Flat(%d): expected ShapeError carrying the shape, got %v", n, err)
		}
	}
}

func TestValidate_Tensor(t *testing.T) {
	nested := Tensor(Flat(2), Flat(3))

	cases := []struct {
		name    string
		in      Shape
		want    Shape
		wantErr error
	}{
		{"empty", Tensor(), Shape{}, ErrInvalidShape},
		{"collapse one", Tensor(Flat(1)), Flat(1), nil},
		{"collapse three", Tensor(Flat(1), Flat(1), Flat(1)), Flat(3), nil},
		{"collapse child that validates to unit", Tensor(Tensor(Flat(1)), Flat(1)), Flat(2), nil},
		{"keep mixed", Tensor(Flat(1), Flat(2)), Tensor(Flat(1), Flat(2)), nil},
		{"keep nested unchanged", Tensor(Tensor(Flat(1), Flat(1)), Flat(4)), Tensor(Tensor(Flat(1), Flat(1)), Flat(4)), nil},
		{"keep deep", Tensor(nested, nested), Tensor(nested, nested), nil},
		{"bad flat child", Tensor(Flat(2), Flat(0)), Shape{}, ErrInvalidShape},
		{"bad nested child", Tensor(Flat(2), Tensor()), Shape{}, ErrInvalidShape},
		{"bad child beside units", Tensor(Flat(1), Flat(0)), Shape{}, ErrInvalidShape},
	}
	for _, tc := range cases {
		got, err := Validate(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestValidate_FirstFailingChildPropagates(t *testing.T) {
	_, err := Validate(Tensor(Flat(2), Flat(-3), Tensor()))
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if !se.Shape.Equal(Flat(-3)) {
		t.Errorf("expected first failing child Shape(-3), got %s", se.Shape)
	}
}

func TestValidate_DepthExceeded(t *testing.T) {
	s := Flat(2)
	for i := 0; i < MaxDepth+2; i++ {
		s = Tensor(s, Flat(2))
	}
	if _, err := Validate(s); !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
}

func TestShape_String(t *testing.T) {
	cases := []struct {
		in   Shape
		want string
	}{
		{Flat(3), "Shape(3)"},
		{Tensor(Flat(1), Flat(2)), "Tensor(Shape(1), Shape(2))"},
		{Tensor(Tensor(Flat(2)), Flat(5)), "Tensor(Tensor(Shape(2)), Shape(5))"},
		{Tensor(), "Tensor()"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestShape_Immutable(t *testing.T) {
	children := []Shape{Flat(1), Flat(2)}
	s := Tensor(children...)
	children[0] = Flat(9)
	if !s.Children()[0].Equal(Flat(1)) {
		t.Error("Tensor must copy its children")
	}
	got := s.Children()
	got[1] = Flat(9)
	if !s.Children()[1].Equal(Flat(2)) {
		t.Error("Children must return a copy")
	}
	if s.Size() != 0 || Flat(4).Size() != 4 {
		t.Error("unexpected Size")
	}
}
