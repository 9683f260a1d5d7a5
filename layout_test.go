package shmimg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLayout(t *testing.T) {
	t.Run("sizes", func(t *testing.T) {
		tests := []struct {
			shape               []int
			cbw, group, count   int
			wantCap, wantSize   int
			wantImage, wantGrpd []int
		}{
			{[]int{2, 2}, 1, 1, 3, 4, 12, []int{2, 2, 1}, []int{1, 2, 2, 1}},
			{[]int{4, 5, 3}, 1, 2, 7, 120, 840, []int{4, 5, 3}, []int{2, 4, 5, 3}},
			{[]int{480, 640}, 4, 1, 20, 1228800, 24576000, []int{480, 640, 4}, []int{1, 480, 640, 4}},
			{[]int{3, 3, 2}, 2, 4, 5, 144, 720, []int{3, 3, 4}, []int{4, 3, 3, 4}},
		}
		for _, tt := range tests {
			l, err := ComputeLayout(tt.shape, tt.cbw, tt.group, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCap, l.SlotByteCapacity())
			assert.Equal(t, tt.wantSize, l.SegmentByteSize())
			assert.Equal(t, tt.wantImage, l.ImageShape())
			assert.Equal(t, tt.wantGrpd, l.GroupedShape())
			assert.Equal(t, tt.count*tt.group, l.NumImages())
		}
	})

	t.Run("segment size is the product", func(t *testing.T) {
		for h := 1; h <= 4; h++ {
			for w := 1; w <= 4; w++ {
				for c := 1; c <= 3; c++ {
					for _, cbw := range []int{1, 2, 4, 8} {
						l, err := ComputeLayout([]int{h, w, c}, cbw, 3, 5)
						require.NoError(t, err)
						assert.Equal(t, 5*3*h*w*c*cbw, l.SegmentByteSize())
					}
				}
			}
		}
	})

	t.Run("two element shape has one channel", func(t *testing.T) {
		l, err := ComputeLayout([]int{7, 9}, 1, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, l.Channels)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name              string
			shape             []int
			cbw, group, count int
		}{
			{"rank 1", []int{4}, 1, 1, 1},
			{"rank 4", []int{1, 2, 3, 4}, 1, 1, 1},
			{"nil shape", nil, 1, 1, 1},
			{"zero height", []int{0, 2}, 1, 1, 1},
			{"negative width", []int{2, -2}, 1, 1, 1},
			{"zero channels", []int{2, 2, 0}, 1, 1, 1},
			{"zero byte width", []int{2, 2}, 0, 1, 1},
			{"zero group size", []int{2, 2}, 1, 0, 1},
			{"zero group count", []int{2, 2}, 1, 1, 0},
			{"overflow", []int{math.MaxInt / 2, 4}, 1, 1, 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := ComputeLayout(tt.shape, tt.cbw, tt.group, tt.count)
				require.ErrorIs(t, err, ErrInvalidShape)
				var ise *InvalidShapeError
				assert.ErrorAs(t, err, &ise)
			})
		}
	})
}

func TestComputeLayout_ErrorKeepsShape(t *testing.T) {
	shape := []int{0, 4, 3}
	_, err := ComputeLayout(shape, 1, 1, 1)
	var ise *InvalidShapeError
	require.ErrorAs(t, err, &ise)

	shape[0] = 99
	assert.Equal(t, []int{0, 4, 3}, ise.Shape)

	rank := []int{1}
	_, err = ComputeLayout(rank, 1, 1, 1)
	require.ErrorAs(t, err, &ise)
	rank[0] = 7
	assert.Equal(t, []int{1}, ise.Shape)
}

func TestLayout_SlotRange(t *testing.T) {
	l, err := ComputeLayout([]int{2, 2}, 1, 1, 3)
	require.NoError(t, err)

	for i := 0; i < l.GroupCount; i++ {
		start, end := l.SlotRange(i)
		assert.Equal(t, i*4, start)
		assert.Equal(t, (i+1)*4, end)
	}
}

func TestLayout_Validate(t *testing.T) {
	assert.NoError(t, Layout{1, 1, 1, 1, 1, 1}.Validate())
	assert.ErrorIs(t, Layout{}.Validate(), ErrInvalidShape)
}
