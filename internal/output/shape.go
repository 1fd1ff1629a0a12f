// Package output describes what an indicator or strategy step produces.
//
// A Value is a tagged union over numeric results, symbolic field references,
// nested composites and symbolic comparison outcomes. Its Shape is derived on
// demand and validated with a collapse rule so that a tuple of N scalars and
// an N-vector look the same. Resolve turns field references into numbers
// against a market data sample, and Compare orders numeric results against
// outcomes using fixed sentinel semantics.
//
// Everything here is pure. Values and Shapes are never mutated once built,
// so distinct trees can be used from many goroutines at once.
package output

import (
	"strconv"
	"strings"
)

// MaxDepth bounds the nesting of Shape and Value trees walked by Validate,
// Value.Shape, Resolve and Equal.
const MaxDepth = 64

// Shape is either Flat(size) or Tensor(children...).
type Shape struct {
	tensor   bool
	size     int
	children []Shape
}

// Flat returns a single axis shape of the given length.
func Flat(size int) Shape { return Shape{size: size} }

// Tensor returns a composite shape. The children slice is copied.
func Tensor(children ...Shape) Shape {
	cp := make([]Shape, len(children))
	copy(cp, children)
	return Shape{tensor: true, children: cp}
}

// IsTensor reports whether s was built with Tensor.
func (s Shape) IsTensor() bool { return s.tensor }

// Size is the flat length, 0 for a tensor.
func (s Shape) Size() int {
	if s.tensor {
		return 0
	}
	return s.size
}

// Children returns a copy of a tensor's children, nil for a flat shape.
func (s Shape) Children() []Shape {
	if !s.tensor {
		return nil
	}
	cp := make([]Shape, len(s.children))
	copy(cp, s.children)
	return cp
}

func (s Shape) isUnit() bool { return !s.tensor && s.size == 1 }

// Equal is structural equality.
func (s Shape) Equal(o Shape) bool {
	if s.tensor != o.tensor {
		return false
	}
	if !s.tensor {
		return s.size == o.size
	}
	if len(s.children) != len(o.children) {
		return false
	}
	for i := range s.children {
		if !s.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// String renders Flat(n) as "Shape(n)" and tensors as
// "Tensor(Shape(1), Shape(2))".
func (s Shape) String() string {
	var b strings.Builder
	s.render(&b)
	return b.String()
}

func (s Shape) render(b *strings.Builder) {
	if !s.tensor {
		b.WriteString("Shape(")
		b.WriteString(strconv.Itoa(s.size))
		b.WriteByte(')')
		return
	}
	b.WriteString("Tensor(")
	for i, c := range s.children {
		if i > 0 {
			b.WriteString(", ")
		}
		c.render(b)
	}
	b.WriteByte(')')
}

// Validate checks s and normalizes it.
//
// A tensor whose children are all Flat(1), or validate to Flat(1), collapses
// to Flat(len(children)). Any other valid tensor is returned as given.
func Validate(s Shape) (Shape, error) {
	return validate(s, 0)
}

func validate(s Shape, depth int) (Shape, error) {
	if depth > MaxDepth {
		return Shape{}, depthError()
	}
	if !s.tensor {
		if s.size <= 0 {
			return Shape{}, &ShapeError{Shape: s}
		}
		return s, nil
	}
	if len(s.children) == 0 {
		return Shape{}, &ShapeError{Shape: s}
	}

	allUnit := true
	for _, c := range s.children {
		v, err := validate(c, depth+1)
		if err != nil {
			return Shape{}, err
		}
		if !v.isUnit() {
			allUnit = false
		}
	}
	if allUnit {
		return Flat(len(s.children)), nil
	}
	return s, nil
}
