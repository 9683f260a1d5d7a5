package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/shmimg"
	"github.com/hupe1980/shmimg/handoff"
	"github.com/hupe1980/shmimg/pool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var cmdDemo = &cobra.Command{
	Use:   "demo",
	Short: "Run producers and a consumer over a temporary float32 segment",
	Long: `Run producers and a consumer over a temporary float32 segment.

Every producer worker attaches its own store, acquires a free slot from the
handoff ledger, writes a group of synthetic images and publishes the slot.
The consumer reads published slots in order, checks the frame marker and
returns the slot to the free set.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

var flagDemo struct {
	Frames    int
	Producers int
	Height    int
	Width     int
	GroupSize int
	Slots     int
	Rate      float64
}

func init() {
	fs := cmdDemo.Flags()
	fs.IntVar(&flagDemo.Frames, "frames", 256, "Number of slot writes")
	fs.IntVar(&flagDemo.Producers, "producers", 4, "Number of producer workers")
	fs.IntVar(&flagDemo.Height, "height", 120, "Image height")
	fs.IntVar(&flagDemo.Width, "width", 160, "Image width")
	fs.IntVar(&flagDemo.GroupSize, "group-size", 4, "Images per slot")
	fs.IntVar(&flagDemo.Slots, "slots", 8, "Slots in the ring")
	fs.Float64Var(&flagDemo.Rate, "rate", 0, "Frames per second across all producers, 0 for unlimited")
	cmdMain.AddCommand(cmdDemo)
}

type demoResult struct {
	Frames int64
	Mean   float64
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	name := fmt.Sprintf("shmimg-demo-%d", os.Getpid())

	layout, err := shmimg.ComputeLayout([]int{flagDemo.Height, flagDemo.Width}, 4, flagDemo.GroupSize, flagDemo.Slots)
	if err != nil {
		return err
	}

	basic := &shmimg.BasicMetricsCollector{}
	opts := storeOptions(name)
	if app.metrics == nil {
		opts = append(opts, shmimg.WithMetricsCollector(basic))
	}

	if err := shmimg.Provision(name, layout, opts...); err != nil {
		return err
	}
	defer func() { _ = shmimg.Unlink(name, opts...) }()

	ledger, err := handoff.NewLedger(layout.GroupCount)
	if err != nil {
		return err
	}

	producers := pool.New[*shmimg.Store[float32]](pool.Config{
		Workers:       flagDemo.Producers,
		Name:          "producer",
		JobsPerSecond: flagDemo.Rate,
		Logger:        app.logger,
	}, func(context.Context, *pool.Worker) (*shmimg.Store[float32], error) {
		return shmimg.Open(name, layout, shmimg.Float32(shmimg.Batch), opts...)
	}, func(_ *pool.Worker, s *shmimg.Store[float32]) error {
		return s.Finalize()
	})

	frames := make([]int, flagDemo.Frames)
	for i := range frames {
		frames[i] = i
	}

	start := time.Now()
	var res demoResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consume(gctx, name, layout, ledger, opts, &res)
	})

	g.Go(func() error {
		defer ledger.Close()
		_, err := pool.Map[*shmimg.Store[float32], int, struct{}](gctx, producers, frames, func(ctx context.Context, w *pool.Worker, s *shmimg.Store[float32], frame int) (struct{}, error) {
			return struct{}{}, produce(ctx, s, ledger, layout, frame)
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	bytes := uint64(res.Frames) * uint64(layout.SlotByteCapacity())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "segment %s: %s\n", name, layout)
	fmt.Fprintf(out, "%s frames in %s (%s/s), mean pixel %.3f\n",
		humanize.Comma(res.Frames), elapsed.Round(time.Millisecond),
		humanize.IBytes(uint64(float64(bytes)/max(elapsed.Seconds(), 1e-9))), res.Mean)

	if app.metrics == nil {
		st := basic.GetStats()
		fmt.Fprintf(out, "attach=%d write=%d (%s) read=%d finalize=%d errors=%d\n",
			st.AttachCount, st.WriteCount, humanize.IBytes(uint64(st.WriteBytes)), st.ReadCount,
			st.FinalizeCount, st.AttachErrors+st.WriteErrors+st.ReadErrors+st.FinalizeErrors)
	}
	return nil
}

// produce fills one slot. Pixel 0 of every image carries the frame number.
func produce(ctx context.Context, s *shmimg.Store[float32], ledger *handoff.Ledger, layout shmimg.Layout, frame int) error {
	idx, err := ledger.Acquire(ctx)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(uint64(frame), 0x5eed))
	data := make([]float32, layout.GroupSize*layout.Height*layout.Width)
	for i := range data {
		data[i] = rng.Float32()
	}
	for g := range layout.GroupSize {
		data[g*layout.Height*layout.Width] = float32(frame)
	}

	img, err := shmimg.FromSlice(data, layout.GroupSize, layout.Height, layout.Width)
	if err == nil {
		err = s.Write(idx, img)
	}
	if err != nil {
		_ = ledger.Abandon(idx)
		return err
	}
	return ledger.Publish(idx)
}

func consume(ctx context.Context, name string, layout shmimg.Layout, ledger *handoff.Ledger, opts []shmimg.Option, res *demoResult) error {
	s, err := shmimg.Open(name, layout, shmimg.Float32(shmimg.Batch), opts...)
	if err != nil {
		return err
	}
	defer finalize(ctx, name, s.Finalize)

	var sum float64
	var pixels, frames int64

	for {
		idx, err := ledger.Next(ctx)
		if errors.Is(err, handoff.ErrClosed) {
			break
		}
		if err != nil {
			return err
		}

		arr, err := s.Read(idx)
		if err != nil {
			return err
		}
		values := arr.Data()
		marker := values[0]
		for g := range layout.GroupSize {
			if got := values[g*layout.Height*layout.Width]; got != marker {
				return fmt.Errorf("slot %d: image %d carries frame %v, image 0 frame %v", idx, g, got, marker)
			}
		}
		for i, v := range values {
			if i%(layout.Height*layout.Width) != 0 {
				sum += float64(v)
				pixels++
			}
		}
		frames++
		app.logger.WithSlot(idx).DebugContext(ctx, "frame consumed", "frame", marker)

		if err := ledger.Release(idx); err != nil {
			return err
		}
	}

	res.Frames = frames
	if pixels > 0 {
		res.Mean = sum / float64(pixels)
	}
	return nil
}
