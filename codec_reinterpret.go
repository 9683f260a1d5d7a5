package shmimg

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

var hostLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

type reinterpretCodec[T Element] struct {
	mode  Mode
	width int
	name  string
}

// Reinterpret returns a codec that views every run of sizeof(T) stored bytes
// as one little-endian T.
//
//	Single decode: (H, W, k) or (1, H, W, k) bytes -> (H, W, 1)
//	Batch decode:  (G, H, W, k) or (H, W, k) bytes -> (G, H, W, 1)
//	Single encode: (H, W) or (H, W, 1)             -> (1, H, W, k) bytes
//	Batch encode:  (G, H, W) or (G, H, W, 1)       -> (G, H, W, k) bytes
//
// where k is sizeof(T). On little-endian hosts both directions alias the
// input when its alignment allows; otherwise a byte-order-correct copy is
// made. The layout used with it must have Channels*ChannelByteWidth == k.
func Reinterpret[T Element](mode Mode) Codec[T] {
	var zero T
	width := int(unsafe.Sizeof(zero))
	return reinterpretCodec[T]{
		mode:  mode,
		width: width,
		name:  fmt.Sprintf("reinterpret%d/%s", width*8, mode),
	}
}

// Float32 returns the codec that packs one float32 into four byte channels.
func Float32(mode Mode) Codec[float32] {
	c := Reinterpret[float32](mode).(reinterpretCodec[float32])
	c.name = "float32/" + mode.String()
	return c
}

func (c reinterpretCodec[T]) Name() string { return c.name }

func (c reinterpretCodec[T]) ByteWidth() int { return c.width }

// slotWidth is the trailing-axis width, in bytes, the codec requires.
func (c reinterpretCodec[T]) slotWidth() int { return c.width }

// singleGroup reports whether decoded slots must hold exactly one image.
func (c reinterpretCodec[T]) singleGroup() bool { return c.mode == Single }

func (c reinterpretCodec[T]) Decode(raw *Array[byte]) (*Array[T], error) {
	op := c.name + " decode"
	shape := raw.shape

	if n := raw.NDim(); n != 3 && n != 4 {
		return nil, unsupported(op, shape, "rank %d, want 3 or 4", n)
	}
	if last := shape[len(shape)-1]; last != c.width {
		return nil, unsupported(op, shape, "trailing axis must be %d bytes, got %d", c.width, last)
	}

	var out []int
	switch {
	case raw.NDim() == 3 && c.mode == Single:
		out = []int{shape[0], shape[1], 1}
	case raw.NDim() == 3:
		out = []int{1, shape[0], shape[1], 1}
	case c.mode == Single:
		if shape[0] != 1 {
			return nil, unsupported(op, shape, "single mode needs a group of 1, got %d", shape[0])
		}
		out = []int{shape[1], shape[2], 1}
	default:
		out = []int{shape[0], shape[1], shape[2], 1}
	}

	return FromSlice(decodeValues[T](raw.Data(), c.width), out...)
}

func (c reinterpretCodec[T]) Encode(img *Array[T]) (*Array[byte], error) {
	op := c.name + " encode"
	shape := img.shape

	var out []int
	switch c.mode {
	case Single:
		switch {
		case img.NDim() == 2, img.NDim() == 3 && shape[2] == 1:
			out = []int{1, shape[0], shape[1], c.width}
		default:
			return nil, unsupported(op, shape, "single mode wants (H, W) or (H, W, 1)")
		}
	default:
		switch {
		case img.NDim() == 3, img.NDim() == 4 && shape[3] == 1:
			out = []int{shape[0], shape[1], shape[2], c.width}
		default:
			return nil, unsupported(op, shape, "batch mode wants (G, H, W) or (G, H, W, 1)")
		}
	}

	return FromSlice(encodeValues(img.Data(), c.width), out...)
}

// decodeValues views b as little-endian values of T.
func decodeValues[T Element](b []byte, width int) []T {
	n := len(b) / width
	if n == 0 {
		return nil
	}
	if hostLittleEndian && uintptr(unsafe.Pointer(&b[0]))%unsafe.Alignof(*new(T)) == 0 {
		return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
	}

	out := make([]T, n)
	ob := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), n*width)
	copy(ob, b)
	if !hostLittleEndian {
		swapBytes(ob, width)
	}
	return out
}

// encodeValues returns the little-endian bytes of v.
func encodeValues[T Element](v []T, width int) []byte {
	if len(v) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*width)
	if hostLittleEndian {
		return b
	}

	out := make([]byte, len(b))
	copy(out, b)
	swapBytes(out, width)
	return out
}

func swapBytes(b []byte, width int) {
	if width == 1 {
		return
	}
	for i := 0; i+width <= len(b); i += width {
		run := b[i : i+width]
		for l, r := 0, width-1; l < r; l, r = l+1, r-1 {
			run[l], run[r] = run[r], run[l]
		}
	}
}
