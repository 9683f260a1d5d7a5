package pool

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/shmimg"
	"github.com/hupe1980/shmimg/resource"
)

// Config configures a Pool.
type Config struct {
	// Workers is the number of workers. If 0, defaults to 1.
	Workers int

	// Name prefixes worker names, see WorkerName. Defaults to "worker".
	Name string

	// JobsPerSecond paces job starts across all workers. If 0, unlimited.
	JobsPerSecond float64

	// Logger receives worker lifecycle events. If nil, logging is disabled.
	Logger *shmimg.Logger

	// Controller bounds how many jobs run at once across every pool that
	// shares it. If nil, only Workers bounds concurrency.
	Controller *resource.Controller
}

// Worker is the context handed to Setup, jobs and Teardown.
type Worker struct {
	ID     int
	Name   string
	Logger *shmimg.Logger
}

// Setup builds a worker's state. It runs on the worker.
type Setup[S any] func(ctx context.Context, w *Worker) (S, error)

// Teardown releases a worker's state. Its error is logged.
type Teardown[S any] func(w *Worker, state S) error

// Job processes one input with the worker's state.
type Job[S, In, Out any] func(ctx context.Context, w *Worker, state S, in In) (Out, error)

// Pool is a reusable worker configuration. Each Map or Run call starts a
// fresh set of workers.
type Pool[S any] struct {
	cfg      Config
	setup    Setup[S]
	teardown Teardown[S]
	limiter  *rate.Limiter
}

// New returns a pool. teardown may be nil.
func New[S any](cfg Config, setup Setup[S], teardown Teardown[S]) *Pool[S] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Name == "" {
		cfg.Name = "worker"
	}
	if cfg.Logger == nil {
		cfg.Logger = shmimg.NoopLogger()
	}

	p := &Pool[S]{cfg: cfg, setup: setup, teardown: teardown}
	if cfg.JobsPerSecond > 0 {
		burst := max(1, int(cfg.JobsPerSecond))
		p.limiter = rate.NewLimiter(rate.Limit(cfg.JobsPerSecond), burst)
	}
	return p
}

// Workers returns the configured worker count.
func (p *Pool[S]) Workers() int { return p.cfg.Workers }

func (p *Pool[S]) newWorker(id int) *Worker {
	name := WorkerName(p.cfg.Name, fmt.Sprintf("PoolWorker-%d", id+1))
	return &Worker{
		ID:     id,
		Name:   name,
		Logger: p.cfg.Logger.WithWorker(id, name),
	}
}

// run sets a worker up, calls body and tears the worker down.
func (p *Pool[S]) run(ctx context.Context, id int, body func(w *Worker, state S) error) error {
	w := p.newWorker(id)

	state, err := p.setup(ctx, w)
	if err != nil {
		w.Logger.ErrorContext(ctx, "worker setup failed", "error", err)
		return fmt.Errorf("pool: %s setup: %w", w.Name, err)
	}
	w.Logger.DebugContext(ctx, "worker started")

	defer func() {
		if p.teardown == nil {
			return
		}
		if terr := p.teardown(w, state); terr != nil {
			w.Logger.ErrorContext(ctx, "worker teardown failed", "error", terr)
			return
		}
		w.Logger.DebugContext(ctx, "worker stopped")
	}()

	return body(w, state)
}

func (p *Pool[S]) pace(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// acquire takes a slot of the shared job budget, noting when it has to wait.
func (p *Pool[S]) acquire(ctx context.Context, w *Worker) error {
	if p.cfg.Controller.TryAcquireWorker() {
		return nil
	}
	w.Logger.DebugContext(ctx, "waiting for job budget")
	return p.cfg.Controller.AcquireWorker(ctx)
}

// Map runs job over inputs and returns the results in input order.
// The first job error cancels the remaining jobs and is returned once all
// workers have torn down.
func Map[S, In, Out any](ctx context.Context, p *Pool[S], inputs []In, job Job[S, In, Out]) ([]Out, error) {
	out := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)

	next := make(chan int)
	g.Go(func() error {
		defer close(next)
		for i := range inputs {
			select {
			case next <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(p.cfg.Workers, len(inputs))
	for id := range workers {
		g.Go(func() error {
			return p.run(gctx, id, func(w *Worker, state S) error {
				for i := range next {
					if err := gctx.Err(); err != nil {
						return err
					}
					if err := p.pace(gctx); err != nil {
						return err
					}
					if err := p.acquire(gctx, w); err != nil {
						return err
					}
					res, err := job(gctx, w, state, inputs[i])
					p.cfg.Controller.ReleaseWorker()
					if err != nil {
						return &JobError{Index: i, Worker: w.Name, Err: err}
					}
					out[i] = res
				}
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Run starts every worker and calls fn once on each. It returns the first
// error after all workers have torn down.
func Run[S any](ctx context.Context, p *Pool[S], fn func(ctx context.Context, w *Worker, state S) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for id := range p.cfg.Workers {
		g.Go(func() error {
			return p.run(gctx, id, func(w *Worker, state S) error {
				return fn(gctx, w, state)
			})
		})
	}
	return g.Wait()
}

// JobError reports which input failed and on which worker.
type JobError struct {
	Index  int
	Worker string
	Err    error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("pool: job %d on %s: %v", e.Index, e.Worker, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// IsCanceled reports whether err only records that the pool was canceled.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// WorkerName derives a stable worker name from a process or goroutine name:
// the trailing decimal digits of processName become a zero-padded suffix of
// prefix ("PoolWorker-7" -> "prefix_007"). Without trailing digits
// processName is returned unchanged.
func WorkerName(prefix, processName string) string {
	end := len(processName)
	start := end
	for start > 0 && processName[start-1] >= '0' && processName[start-1] <= '9' {
		start--
	}
	if start == end {
		return processName
	}
	n, err := strconv.Atoi(processName[start:end])
	if err != nil {
		return processName
	}
	return fmt.Sprintf("%s_%03d", prefix, n)
}
