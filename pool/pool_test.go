package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/shmimg"
	"github.com/hupe1980/shmimg/resource"
	"github.com/hupe1980/shmimg/testutil"
)

type counterState struct {
	jobs int
}

func TestWorkerName(t *testing.T) {
	tests := []struct {
		prefix, process, want string
	}{
		{"tartanair", "ForkPoolWorker-7", "tartanair_007"},
		{"x", "PoolWorker-123", "x_123"},
		{"x", "PoolWorker-1234", "x_1234"},
		{"x", "MainProcess", "MainProcess"},
		{"x", "", ""},
		{"x", "42", "x_042"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WorkerName(tt.prefix, tt.process), tt.process)
	}
}

func TestMap_OrderedResults(t *testing.T) {
	var setups, teardowns atomic.Int32
	p := New(Config{Workers: 4, Name: "sq"},
		func(ctx context.Context, w *Worker) (*counterState, error) {
			setups.Add(1)
			return &counterState{}, nil
		},
		func(w *Worker, s *counterState) error {
			teardowns.Add(1)
			return nil
		},
	)

	inputs := make([]int, 50)
	for i := range inputs {
		inputs[i] = i
	}

	out, err := Map(context.Background(), p, inputs, func(ctx context.Context, w *Worker, s *counterState, in int) (int, error) {
		s.jobs++
		return in * in, nil
	})
	require.NoError(t, err)

	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
	assert.Equal(t, int32(4), setups.Load())
	assert.Equal(t, int32(4), teardowns.Load())
}

func TestMap_WorkerNamesAreDistinct(t *testing.T) {
	var mu sync.Mutex
	names := map[string]bool{}

	p := New(Config{Workers: 3, Name: "w"},
		func(ctx context.Context, w *Worker) (string, error) {
			mu.Lock()
			names[w.Name] = true
			mu.Unlock()
			return w.Name, nil
		}, nil)

	_, err := Map(context.Background(), p, []int{1, 2, 3}, func(ctx context.Context, w *Worker, s string, in int) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"w_001": true, "w_002": true, "w_003": true}, names)
}

func TestMap_FirstErrorCancels(t *testing.T) {
	boom := errors.New("boom")
	var teardowns atomic.Int32

	p := New(Config{Workers: 2},
		func(ctx context.Context, w *Worker) (int, error) { return 0, nil },
		func(w *Worker, _ int) error {
			teardowns.Add(1)
			return nil
		},
	)

	inputs := make([]int, 100)
	for i := range inputs {
		inputs[i] = i
	}

	_, err := Map(context.Background(), p, inputs, func(ctx context.Context, w *Worker, _ int, in int) (int, error) {
		if in == 4 {
			return 0, boom
		}
		return in, nil
	})
	require.ErrorIs(t, err, boom)

	var je *JobError
	require.ErrorAs(t, err, &je)
	assert.Equal(t, 4, je.Index)
	assert.Equal(t, int32(2), teardowns.Load())
}

func TestMap_SetupError(t *testing.T) {
	bad := errors.New("no segment")
	p := New(Config{Workers: 2},
		func(ctx context.Context, w *Worker) (int, error) { return 0, bad },
		nil,
	)
	_, err := Map(context.Background(), p, []int{1, 2, 3}, func(ctx context.Context, w *Worker, _ int, in int) (int, error) {
		return in, nil
	})
	assert.ErrorIs(t, err, bad)
}

func TestMap_TeardownErrorIsLogged(t *testing.T) {
	p := New(Config{Workers: 1, Logger: shmimg.NoopLogger()},
		func(ctx context.Context, w *Worker) (int, error) { return 0, nil },
		func(w *Worker, _ int) error { return errors.New("detach failed") },
	)
	out, err := Map(context.Background(), p, []int{1}, func(ctx context.Context, w *Worker, _ int, in int) (int, error) {
		return in + 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, out)
}

func TestMap_Empty(t *testing.T) {
	p := New(Config{}, func(ctx context.Context, w *Worker) (int, error) {
		t.Fatal("setup must not run without inputs")
		return 0, nil
	}, nil)
	out, err := Map(context.Background(), p, []int{}, func(ctx context.Context, w *Worker, _ int, in int) (int, error) {
		return in, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, p.Workers())
}

func TestMap_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Config{Workers: 2}, func(ctx context.Context, w *Worker) (int, error) { return 0, nil }, nil)
	_, err := Map(ctx, p, []int{1, 2, 3}, func(ctx context.Context, w *Worker, _ int, in int) (int, error) {
		return in, nil
	})
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
}

func TestMap_Paced(t *testing.T) {
	p := New(Config{Workers: 2, JobsPerSecond: 50},
		func(ctx context.Context, w *Worker) (int, error) { return 0, nil }, nil)

	inputs := make([]int, 60)
	start := time.Now()
	_, err := Map(context.Background(), p, inputs, func(ctx context.Context, w *Worker, _ int, in int) (int, error) {
		return in, nil
	})
	require.NoError(t, err)
	// 50 start immediately, the remaining 10 need ~200ms.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestMap_SharedController(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxWorkers: 2})
	p := New(Config{Workers: 4, Controller: rc},
		func(ctx context.Context, w *Worker) (int, error) { return 0, nil }, nil)

	var running, peak atomic.Int32
	inputs := make([]int, 40)
	_, err := Map(context.Background(), p, inputs, func(ctx context.Context, w *Worker, _ int, in int) (int, error) {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		return in, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.True(t, rc.TryAcquireWorker())
	rc.ReleaseWorker()
}

func TestRun(t *testing.T) {
	var calls atomic.Int32
	p := New(Config{Workers: 3}, func(ctx context.Context, w *Worker) (int, error) { return w.ID, nil }, nil)

	err := Run(context.Background(), p, func(ctx context.Context, w *Worker, id int) error {
		assert.Equal(t, w.ID, id)
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

// Each worker attaches its own store to one segment and sums a slot.
func TestMap_PerWorkerStores(t *testing.T) {
	dir := t.TempDir()
	layout, err := shmimg.ComputeLayout([]int{2, 2}, 4, 1, 8)
	require.NoError(t, err)
	testutil.Segment(t, dir, "frames", layout.SegmentByteSize())

	err = shmimg.With("frames", layout, shmimg.Float32(shmimg.Single), func(s *shmimg.Store[float32]) error {
		for i := range s.Len() {
			img, err := shmimg.FromSlice([]float32{float32(i), 1, 1, 1}, 2, 2)
			if err != nil {
				return err
			}
			if err := s.Write(i, img); err != nil {
				return err
			}
		}
		return nil
	}, shmimg.WithDir(dir))
	require.NoError(t, err)

	p := New(Config{Workers: 3, Name: "reader"},
		func(ctx context.Context, w *Worker) (*shmimg.Store[float32], error) {
			return shmimg.Open("frames", layout, shmimg.Float32(shmimg.Single), shmimg.WithDir(dir))
		},
		func(w *Worker, s *shmimg.Store[float32]) error { return s.Finalize() },
	)

	slots := []int{0, 1, 2, 3, 4, 5, 6, 7}
	sums, err := Map(context.Background(), p, slots, func(ctx context.Context, w *Worker, s *shmimg.Store[float32], idx int) (float32, error) {
		img, err := s.Read(idx)
		if err != nil {
			return 0, err
		}
		var sum float32
		for _, v := range img.Values() {
			sum += v
		}
		return sum, nil
	})
	require.NoError(t, err)
	for i, sum := range sums {
		assert.Equal(t, float32(i+3), sum)
	}
}
