// Copyright 2023-2026 The Onego Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and DType, the two value types every operand in a graph
// carries: DType is the element type, Shape pairs a DType with a dimension list.
//
// Example: a tensor holding `[][]float32{{0, 1, 2}, {3, 4, 5}}` has shape `(Float32)[2 3]`:
// rank 2, axis 0 has dimension 2, axis 1 has dimension 3. Construct it with
// `shapes.Make(shapes.Float32, 2, 3)`.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
)

// Shape is the (DType, dimensions) pair describing an operand or tensor.
//
// Use Make to construct one.
type Shape struct {
	DType      DType
	Dimensions []int
}

// Make returns a Shape with the given dtype and dimensions. Every dimension must be positive.
func Make(dtype DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s
}

// Invalid returns an invalid shape. Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: InvalidDType}
}

// Ok returns whether this is a valid shape. A zero-value Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != InvalidDType }

// Rank of the shape, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape has no dimensions (rank == 0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. A negative axis counts from the end, so -1
// refers to the last axis. Panics for an out-of-bound axis, like slice indexing does.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns itself, so a Shape value can stand in wherever something that merely has a
// shape is expected.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer, pretty-printing the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size returns the number of elements this shape holds -- the product of all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the number of bytes an array of this shape occupies.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality of dtype and dimensions.
func (s Shape) Equal(s2 Shape) bool {
	return s.DType == s2.DType && slices.Equal(s.Dimensions, s2.Dimensions)
}
