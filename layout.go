package shmimg

import (
	"fmt"
	"slices"

	"github.com/hupe1980/shmimg/internal/conv"
)

// Layout describes how grouped images are packed into one segment.
//
// A segment holds GroupCount slots. Each slot holds GroupSize images of
// Height x Width x Channels values, every value ChannelByteWidth bytes wide,
// stored row-major with the channel axis innermost.
type Layout struct {
	Height           int
	Width            int
	Channels         int
	ChannelByteWidth int
	GroupSize        int
	GroupCount       int
}

// ComputeLayout derives a Layout from a logical image shape, (H, W) or
// (H, W, C), and the grouping parameters. A two-element shape has one channel.
func ComputeLayout(shape []int, channelByteWidth, groupSize, groupCount int) (Layout, error) {
	if len(shape) != 2 && len(shape) != 3 {
		return Layout{}, &InvalidShapeError{Shape: slices.Clone(shape), Reason: fmt.Sprintf("rank %d, want 2 or 3", len(shape))}
	}

	l := Layout{
		Height:           shape[0],
		Width:            shape[1],
		Channels:         1,
		ChannelByteWidth: channelByteWidth,
		GroupSize:        groupSize,
		GroupCount:       groupCount,
	}
	if len(shape) == 3 {
		l.Channels = shape[2]
	}

	if err := l.validate(); err != nil {
		return Layout{}, &InvalidShapeError{Shape: slices.Clone(shape), Reason: err.Error()}
	}
	return l, nil
}

func (l Layout) validate() error {
	fields := []struct {
		name string
		v    int
	}{
		{"height", l.Height},
		{"width", l.Width},
		{"channels", l.Channels},
		{"channel byte width", l.ChannelByteWidth},
		{"group size", l.GroupSize},
		{"group count", l.GroupCount},
	}
	for _, f := range fields {
		if f.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", f.name, f.v)
		}
	}

	if _, err := conv.MulInt(l.Height, l.Width, l.Channels, l.ChannelByteWidth, l.GroupSize, l.GroupCount); err != nil {
		return err
	}
	return nil
}

// Validate reports whether l could have been produced by ComputeLayout.
func (l Layout) Validate() error {
	if err := l.validate(); err != nil {
		return &InvalidShapeError{Shape: []int{l.Height, l.Width, l.Channels}, Reason: err.Error()}
	}
	return nil
}

// ImageByteSize is the size of one image: H*W*C*ChannelByteWidth.
func (l Layout) ImageByteSize() int {
	return l.Height * l.Width * l.Channels * l.ChannelByteWidth
}

// SlotByteCapacity is the size of one slot: ImageByteSize*GroupSize.
func (l Layout) SlotByteCapacity() int {
	return l.ImageByteSize() * l.GroupSize
}

// SegmentByteSize is the exact size the segment must have.
func (l Layout) SegmentByteSize() int {
	return l.SlotByteCapacity() * l.GroupCount
}

// NumImages is the total number of images the segment holds.
func (l Layout) NumImages() int {
	return l.GroupCount * l.GroupSize
}

// ImageShape is the byte-level shape of one image: (H, W, C*ChannelByteWidth).
func (l Layout) ImageShape() []int {
	return []int{l.Height, l.Width, l.Channels * l.ChannelByteWidth}
}

// GroupedShape is the byte-level shape of one slot:
// (GroupSize, H, W, C*ChannelByteWidth).
func (l Layout) GroupedShape() []int {
	return []int{l.GroupSize, l.Height, l.Width, l.Channels * l.ChannelByteWidth}
}

// SlotRange returns the half-open byte range of slot index.
func (l Layout) SlotRange(index int) (start, end int) {
	c := l.SlotByteCapacity()
	return index * c, (index + 1) * c
}

func (l Layout) String() string {
	return fmt.Sprintf("%dx%dx%d cbw=%d group=%d count=%d", l.Height, l.Width, l.Channels, l.ChannelByteWidth, l.GroupSize, l.GroupCount)
}
