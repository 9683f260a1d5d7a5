package shmimg

import (
	"fmt"
	"slices"
)

// Element is the set of fixed-width numeric types an Array can hold.
type Element interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

// Array is a dense n-dimensional array of T.
//
// An Array is a view: shape and strides (in elements) over a backing slice
// starting at an offset. Transpose and Slice return views that share the
// backing slice, so an Array need not be contiguous. Arrays returned by
// Store.Read alias shared memory.
type Array[T Element] struct {
	data    []T
	shape   []int
	strides []int
	offset  int
}

// NewArray returns a zeroed contiguous array of the given shape.
func NewArray[T Element](shape ...int) (*Array[T], error) {
	n, err := shapeLen(shape)
	if err != nil {
		return nil, err
	}
	return &Array[T]{
		data:    make([]T, n),
		shape:   slices.Clone(shape),
		strides: rowMajorStrides(shape),
	}, nil
}

// FromSlice wraps data, without copying, as a contiguous array of the given
// shape. len(data) must equal the product of shape.
func FromSlice[T Element](data []T, shape ...int) (*Array[T], error) {
	n, err := shapeLen(shape)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, &InvalidShapeError{Shape: slices.Clone(shape), Reason: fmt.Sprintf("shape holds %d elements, data has %d", n, len(data))}
	}
	return &Array[T]{
		data:    data,
		shape:   slices.Clone(shape),
		strides: rowMajorStrides(shape),
	}, nil
}

func shapeLen(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, &InvalidShapeError{Shape: slices.Clone(shape), Reason: "dimensions must be positive"}
		}
		n *= d
	}
	return n, nil
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// Shape returns a copy of the array's dimensions.
func (a *Array[T]) Shape() []int { return slices.Clone(a.shape) }

// Strides returns a copy of the per-axis strides, in elements.
func (a *Array[T]) Strides() []int { return slices.Clone(a.strides) }

// NDim returns the number of dimensions.
func (a *Array[T]) NDim() int { return len(a.shape) }

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	n := 1
	for _, d := range a.shape {
		n *= d
	}
	return n
}

func (a *Array[T]) index(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("shmimg: %d indices for %d-dimensional array", len(idx), len(a.shape)))
	}
	off := a.offset
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("shmimg: index %d out of range for axis %d with size %d", v, i, a.shape[i]))
		}
		off += v * a.strides[i]
	}
	return off
}

// At returns the element at idx. It panics if idx is out of range.
func (a *Array[T]) At(idx ...int) T { return a.data[a.index(idx)] }

// Set stores v at idx. It panics if idx is out of range.
func (a *Array[T]) Set(v T, idx ...int) { a.data[a.index(idx)] = v }

// IsContiguous reports whether the elements are laid out row-major without
// gaps, so that Data can return them without copying.
func (a *Array[T]) IsContiguous() bool {
	s := 1
	for i := len(a.shape) - 1; i >= 0; i-- {
		if a.shape[i] != 1 && a.strides[i] != s {
			return false
		}
		s *= a.shape[i]
	}
	return true
}

// Contiguous returns a itself when it is contiguous and a row-major copy
// otherwise.
func (a *Array[T]) Contiguous() *Array[T] {
	if a.IsContiguous() {
		return a
	}
	return &Array[T]{
		data:    a.Values(),
		shape:   slices.Clone(a.shape),
		strides: rowMajorStrides(a.shape),
	}
}

// Data returns the elements in row-major order. The result aliases the array
// when it is contiguous and is a fresh copy otherwise.
func (a *Array[T]) Data() []T {
	if a.IsContiguous() {
		n := a.Len()
		return a.data[a.offset : a.offset+n : a.offset+n]
	}
	return a.Values()
}

// Values returns a fresh row-major copy of the elements.
func (a *Array[T]) Values() []T {
	out := make([]T, 0, a.Len())
	idx := make([]int, len(a.shape))
	a.walk(0, a.offset, idx, func(off int) {
		out = append(out, a.data[off])
	})
	return out
}

func (a *Array[T]) walk(axis, off int, idx []int, fn func(off int)) {
	if axis == len(a.shape) {
		fn(off)
		return
	}
	for i := 0; i < a.shape[axis]; i++ {
		idx[axis] = i
		a.walk(axis+1, off+i*a.strides[axis], idx, fn)
	}
}

// CopyFrom copies src into a element by element. Shapes must match.
func (a *Array[T]) CopyFrom(src *Array[T]) error {
	if !slices.Equal(a.shape, src.shape) {
		return unsupported("copy", src.shape, "want shape %v", a.shape)
	}
	if a.IsContiguous() {
		copy(a.Data(), src.Data())
		return nil
	}
	vals := src.Values()
	i := 0
	a.walk(0, a.offset, make([]int, len(a.shape)), func(off int) {
		a.data[off] = vals[i]
		i++
	})
	return nil
}

// Reshape returns a view with a new shape holding the same number of
// elements. Non-contiguous arrays are copied first.
func (a *Array[T]) Reshape(shape ...int) (*Array[T], error) {
	n, err := shapeLen(shape)
	if err != nil {
		return nil, err
	}
	if n != a.Len() {
		return nil, &InvalidShapeError{Shape: slices.Clone(shape), Reason: fmt.Sprintf("cannot reshape %v (%d elements)", a.shape, a.Len())}
	}
	c := a.Contiguous()
	return &Array[T]{
		data:    c.data,
		shape:   slices.Clone(shape),
		strides: rowMajorStrides(shape),
		offset:  c.offset,
	}, nil
}

// ExpandDims returns a view with a new axis of length 1 inserted at axis.
func (a *Array[T]) ExpandDims(axis int) (*Array[T], error) {
	if axis < 0 || axis > len(a.shape) {
		return nil, &InvalidShapeError{Shape: a.Shape(), Reason: fmt.Sprintf("axis %d out of range", axis)}
	}
	stride := 1
	if axis < len(a.shape) {
		stride = a.strides[axis] * a.shape[axis]
	}
	return &Array[T]{
		data:    a.data,
		shape:   slices.Insert(slices.Clone(a.shape), axis, 1),
		strides: slices.Insert(slices.Clone(a.strides), axis, stride),
		offset:  a.offset,
	}, nil
}

// Squeeze returns a view with the length-1 axis removed.
func (a *Array[T]) Squeeze(axis int) (*Array[T], error) {
	if axis < 0 || axis >= len(a.shape) || a.shape[axis] != 1 {
		return nil, &InvalidShapeError{Shape: a.Shape(), Reason: fmt.Sprintf("axis %d is not of length 1", axis)}
	}
	return &Array[T]{
		data:    a.data,
		shape:   slices.Delete(slices.Clone(a.shape), axis, axis+1),
		strides: slices.Delete(slices.Clone(a.strides), axis, axis+1),
		offset:  a.offset,
	}, nil
}

// Transpose returns a view with the axes permuted. With no arguments the
// axis order is reversed.
func (a *Array[T]) Transpose(axes ...int) (*Array[T], error) {
	n := len(a.shape)
	if len(axes) == 0 {
		axes = make([]int, n)
		for i := range axes {
			axes[i] = n - 1 - i
		}
	}
	if len(axes) != n {
		return nil, &InvalidShapeError{Shape: a.Shape(), Reason: fmt.Sprintf("transpose needs %d axes, got %d", n, len(axes))}
	}

	seen := make([]bool, n)
	shape := make([]int, n)
	strides := make([]int, n)
	for i, ax := range axes {
		if ax < 0 || ax >= n || seen[ax] {
			return nil, &InvalidShapeError{Shape: a.Shape(), Reason: fmt.Sprintf("invalid permutation %v", axes)}
		}
		seen[ax] = true
		shape[i] = a.shape[ax]
		strides[i] = a.strides[ax]
	}
	return &Array[T]{data: a.data, shape: shape, strides: strides, offset: a.offset}, nil
}

// Slice returns a view restricted to [start, end) along axis.
func (a *Array[T]) Slice(axis, start, end int) (*Array[T], error) {
	if axis < 0 || axis >= len(a.shape) {
		return nil, &InvalidShapeError{Shape: a.Shape(), Reason: fmt.Sprintf("axis %d out of range", axis)}
	}
	if start < 0 || end > a.shape[axis] || start >= end {
		return nil, &InvalidShapeError{Shape: a.Shape(), Reason: fmt.Sprintf("slice [%d:%d) out of range for axis %d", start, end, axis)}
	}
	shape := slices.Clone(a.shape)
	shape[axis] = end - start
	return &Array[T]{
		data:    a.data,
		shape:   shape,
		strides: slices.Clone(a.strides),
		offset:  a.offset + start*a.strides[axis],
	}, nil
}

// Equal reports whether a and b have the same shape and elements.
func (a *Array[T]) Equal(b *Array[T]) bool {
	if !slices.Equal(a.shape, b.shape) {
		return false
	}
	return slices.Equal(a.Values(), b.Values())
}

func (a *Array[T]) String() string {
	return fmt.Sprintf("Array%v", a.shape)
}
