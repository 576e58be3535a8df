// Copyright 2023-2026 The Onego Authors. SPDX-License-Identifier: Apache-2.0

package shapes

// DType is the element type of a Shape.
type DType int32

const (
	InvalidDType DType = iota
	Bool
	Int32
	Int64
	Float32
	Float64
)

func (dtype DType) String() string {
	switch dtype {
	case Bool:
		return "Bool"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	default:
		return "InvalidDType"
	}
}

// Size returns the number of bytes a single element of dtype occupies.
func (dtype DType) Size() int {
	switch dtype {
	case Bool:
		return 1
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	}
	return 0
}

// Memory returns dtype.Size() as a uintptr, the unit Shape.Memory multiplies by element count.
func (dtype DType) Memory() uintptr {
	return uintptr(dtype.Size())
}
